package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"buzzchat/internal/interfaces"
	"buzzchat/internal/repository"

	"go.uber.org/zap"
)

// Workspace is everything bound to one namespace: the loaded settings store
// and the services operating on it.
type Workspace struct {
	Namespace string
	Store     *SettingsStore
	Banner    *TierDisplay
	Usage     *repository.UsageRepository
	Audience  *repository.AudienceRepository

	Welcome      *WelcomeService
	Timers       *TimerService
	FAQ          *FAQService
	Commands     *CommandService
	QuickReplies *QuickReplyService
	Moderation   *ModerationService
	Giveaway     *GiveawayService
	Translation  *TranslationService
	General      *GeneralService
	Templates    *TemplateService
	Inventory    *InventoryService
	Accounts     *AccountManager
	ApiKeys      *ApiKeyManager
	Transfer     *ImportExportService
}

// StoreRegistry keeps one workspace per namespace, loading it on first use.
type StoreRegistry struct {
	kv       interfaces.KeyValueStore
	notifier interfaces.ContentNotifier
	alerts   *AlertService
	keyIndex *repository.ApiKeyIndex
	logger   *zap.Logger
	debounce time.Duration

	mu         sync.Mutex
	workspaces map[string]*Workspace
	onDrop     []func(ns string)
}

func NewStoreRegistry(kv interfaces.KeyValueStore, notifier interfaces.ContentNotifier, alerts *AlertService, logger *zap.Logger, debounce time.Duration) *StoreRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreRegistry{
		kv:         kv,
		notifier:   notifier,
		alerts:     alerts,
		keyIndex:   repository.NewApiKeyIndex(kv),
		logger:     logger,
		debounce:   debounce,
		workspaces: make(map[string]*Workspace),
	}
}

// KeyIndex exposes the key-to-namespace index for API key authentication
func (r *StoreRegistry) KeyIndex() *repository.ApiKeyIndex {
	return r.keyIndex
}

// Get returns the workspace of ns, loading its settings the first time.
// The registry lock is held across the load so a namespace loads once.
func (r *StoreRegistry) Get(ctx context.Context, ns string) (*Workspace, error) {
	if ns == "" || ns == repository.SystemNamespace {
		return nil, ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[ns]; ok {
		return ws, nil
	}

	ws, err := r.build(ctx, ns)
	if err != nil {
		return nil, err
	}
	r.workspaces[ns] = ws
	r.logger.Info("workspace loaded", zap.String("namespace", ns), zap.String("backend", ws.Store.RepositoryName()))
	return ws, nil
}

func (r *StoreRegistry) build(ctx context.Context, ns string) (*Workspace, error) {
	legacy := repository.NewLegacySettingsRepository(r.kv, ns)
	accounts := repository.NewAccountRepository(r.kv, ns)
	selector := NewBackendSelector(legacy, accounts, r.logger)

	store := NewSettingsStore(ns, selector, r.notifier, r.logger, r.debounce)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	banner := NewTierDisplay(store)
	gate := NewFeatureGate(banner.Refresh)
	usage := repository.NewUsageRepository(r.kv, ns)
	audience := repository.NewAudienceRepository(r.kv, ns)

	return &Workspace{
		Namespace:    ns,
		Store:        store,
		Banner:       banner,
		Usage:        usage,
		Audience:     audience,
		Welcome:      NewWelcomeService(store),
		Timers:       NewTimerService(store, gate),
		FAQ:          NewFAQService(store, gate),
		Commands:     NewCommandService(store, gate),
		QuickReplies: NewQuickReplyService(store),
		Moderation:   NewModerationService(store),
		Giveaway:     NewGiveawayService(store, audience, r.notifier),
		Translation:  NewTranslationService(store),
		General:      NewGeneralService(store),
		Templates:    NewTemplateService(store, gate, r.notifier),
		Inventory:    NewInventoryService(store, r.alerts),
		Accounts:     NewAccountManager(accounts, store, r.logger),
		ApiKeys:      NewApiKeyManager(repository.NewApiKeyRepository(r.kv, ns), r.keyIndex, store),
		Transfer:     NewImportExportService(store, usage, audience),
	}, nil
}

// OnDrop registers fn to run whenever a namespace is dropped
func (r *StoreRegistry) OnDrop(fn func(ns string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDrop = append(r.onDrop, fn)
}

// Drop flushes and forgets the workspace of ns
func (r *StoreRegistry) Drop(ctx context.Context, ns string) error {
	r.mu.Lock()
	ws, ok := r.workspaces[ns]
	delete(r.workspaces, ns)
	hooks := append([]func(string){}, r.onDrop...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(ns)
	}
	if !ok {
		return nil
	}
	ws.Banner.Close()
	return ws.Store.Close(ctx)
}

// CloseAll flushes every loaded store. It is called on shutdown.
func (r *StoreRegistry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		all = append(all, ws)
	}
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	var errs []error
	for _, ws := range all {
		ws.Banner.Close()
		if err := ws.Store.Close(ctx); err != nil {
			r.logger.Error("flush on shutdown failed", zap.String("namespace", ws.Namespace), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Loaded returns the number of workspaces in memory
func (r *StoreRegistry) Loaded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
