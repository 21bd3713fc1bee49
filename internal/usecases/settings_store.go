package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
	"buzzchat/internal/repository"

	"go.uber.org/zap"
)

var ErrStoreNotLoaded = errors.New("settings store not loaded")

// SettingsStore owns the settings document of one namespace. Every change
// goes through Mutate so subscribers see it; persistence is queued and
// debounced, Flush forces it.
type SettingsStore struct {
	ns       string
	selector *BackendSelector
	notifier interfaces.ContentNotifier
	logger   *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	settings *entities.Settings
	repo     repository.SettingsRepository
	timer    *time.Timer
	dirty    bool
	closed   bool

	// serializes persistence so a stale snapshot never lands after a newer one
	writeMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]func(*entities.Settings)
	nextSub     int
}

func NewSettingsStore(ns string, selector *BackendSelector, notifier interfaces.ContentNotifier, logger *zap.Logger, debounce time.Duration) *SettingsStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsStore{
		ns:          ns,
		selector:    selector,
		notifier:    notifier,
		logger:      logger.With(zap.String("namespace", ns)),
		debounce:    debounce,
		subscribers: make(map[int]func(*entities.Settings)),
	}
}

// Namespace returns the namespace the store belongs to
func (s *SettingsStore) Namespace() string { return s.ns }

// Load selects the backend (migrating legacy data once) and reads the
// document from it. A pending write is flushed first, to the account it was
// loaded from; if that account has been deleted the pending write is
// dropped.
func (s *SettingsStore) Load(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		switch {
		case errors.Is(err, ErrStoreNotLoaded):
		case errors.Is(err, repository.ErrNotFound):
			s.logger.Warn("pending settings dropped, account no longer exists")
		default:
			return err
		}
	}

	repo, err := s.selector.Select(ctx)
	if err != nil {
		return fmt.Errorf("select settings backend: %w", err)
	}
	loaded, err := repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	loaded.Normalize()

	s.mu.Lock()
	s.repo = repo
	s.settings = loaded
	s.closed = false
	snapshot := loaded.Clone()
	s.mu.Unlock()

	s.logger.Debug("settings loaded", zap.String("backend", repo.Name()))
	s.publish(snapshot)
	return nil
}

// RepositoryName reports which backend Load selected
func (s *SettingsStore) RepositoryName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		return ""
	}
	return s.repo.Name()
}

// Snapshot returns a deep copy of the current document
func (s *SettingsStore) Snapshot() *entities.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return entities.DefaultSettings()
	}
	return s.settings.Clone()
}

// Mutate applies fn to a copy of the document. If fn fails nothing changes;
// otherwise the copy becomes current, subscribers are notified and a
// debounced save is queued.
func (s *SettingsStore) Mutate(fn func(*entities.Settings) error) error {
	s.mu.Lock()
	if s.settings == nil {
		s.mu.Unlock()
		return ErrStoreNotLoaded
	}
	next := s.settings.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	next.Normalize()
	s.settings = next
	s.dirty = true
	s.scheduleLocked()
	snapshot := next.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
	return nil
}

// MutateNow is Mutate followed by an immediate Flush. Toggles and number
// inputs use it.
func (s *SettingsStore) MutateNow(ctx context.Context, fn func(*entities.Settings) error) error {
	if err := s.Mutate(fn); err != nil {
		return err
	}
	return s.Flush(ctx)
}

// Replace swaps the whole document and persists it immediately
func (s *SettingsStore) Replace(ctx context.Context, next *entities.Settings) error {
	return s.MutateNow(ctx, func(cur *entities.Settings) error {
		*cur = *next.Clone()
		return nil
	})
}

// Save persists the current document now, even if nothing changed
func (s *SettingsStore) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.settings == nil {
		s.mu.Unlock()
		return ErrStoreNotLoaded
	}
	s.dirty = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *SettingsStore) scheduleLocked() {
	if s.closed {
		return
	}
	if s.debounce <= 0 {
		// no timer: writes wait for Flush
		return
	}
	if s.timer != nil {
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Flush(ctx); err != nil {
			s.logger.Error("debounced settings save failed", zap.Error(err))
		}
	})
}

// Flush writes a pending change to the selected backend and then notifies
// the content script. The write is not retried on failure; the in-memory
// document stays ahead of storage until the next successful save.
func (s *SettingsStore) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.settings == nil || s.repo == nil {
		s.mu.Unlock()
		return ErrStoreNotLoaded
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	s.dirty = false
	snapshot := s.settings.Clone()
	repo := s.repo
	s.mu.Unlock()

	if err := repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save settings (%s): %w", repo.Name(), err)
	}

	if s.notifier != nil {
		// the content script may not be injected on the current page
		if err := s.notifier.NotifySettingsChanged(ctx, s.ns, snapshot); err != nil {
			s.logger.Debug("settings change not delivered", zap.Error(err))
		}
	}
	return nil
}

// Pending reports whether a change is waiting to be written
func (s *SettingsStore) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Close flushes and stops the debounce timer. Mutations after Close are
// kept in memory until the next explicit Flush.
func (s *SettingsStore) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if errors.Is(err, ErrStoreNotLoaded) {
		return nil
	}
	return err
}

// Subscribe registers fn to receive a snapshot after every applied change.
// The returned function removes the subscription.
func (s *SettingsStore) Subscribe(fn func(*entities.Settings)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *SettingsStore) publish(snapshot *entities.Settings) {
	s.subMu.Lock()
	subs := make([]func(*entities.Settings), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
