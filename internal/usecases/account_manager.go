package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"buzzchat/internal/entities"
	"buzzchat/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const MaxAccounts = 10

// AccountManager runs the Business-tier profile operations. Every operation
// rewrites the whole account map; two writers on the same namespace race
// and the last write wins.
type AccountManager struct {
	accounts *repository.AccountRepository
	store    *SettingsStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountManager(accounts *repository.AccountRepository, store *SettingsStore, logger *zap.Logger) *AccountManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountManager{accounts: accounts, store: store, logger: logger, now: time.Now}
}

func (m *AccountManager) requireBusiness() error {
	if m.store.Snapshot().Tier != entities.TierBusiness {
		return ErrBusinessOnly
	}
	return nil
}

// List returns the accounts in creation order with the active one marked.
// It is open to every tier so the popup can show the single default account.
func (m *AccountManager) List(ctx context.Context) ([]entities.AccountSummary, error) {
	all, err := m.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	activeID, err := m.accounts.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.AccountSummary, 0, len(all))
	for _, a := range repository.Sorted(all) {
		out = append(out, entities.AccountSummary{
			ID:        a.ID,
			Name:      a.Name,
			CreatedAt: a.CreatedAt,
			Active:    a.ID == activeID,
		})
	}
	return out, nil
}

func cleanAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxAccountNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// Create adds an account seeded with defaults at the current tier. The
// active account does not change.
func (m *AccountManager) Create(ctx context.Context, name string) (*entities.AccountSummary, error) {
	if err := m.requireBusiness(); err != nil {
		return nil, err
	}
	name, err := cleanAccountName(name)
	if err != nil {
		return nil, err
	}
	if err := m.store.Flush(ctx); err != nil {
		return nil, err
	}

	all, err := m.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) >= MaxAccounts {
		return nil, fmt.Errorf("%w: at most %d accounts", ErrAccountLimit, MaxAccounts)
	}

	seed := entities.DefaultSettings()
	seed.Tier = m.store.Snapshot().Tier
	acc := &entities.Account{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: m.now().UnixMilli(),
		Settings:  seed,
	}
	all[acc.ID] = acc
	if err := m.accounts.SaveAll(ctx, all); err != nil {
		return nil, err
	}
	m.logger.Info("account created", zap.String("account_id", acc.ID))
	return &entities.AccountSummary{ID: acc.ID, Name: acc.Name, CreatedAt: acc.CreatedAt}, nil
}

// SetActive switches the active account. The current document is flushed
// to the old account before the pointer moves, then the store reloads from
// the new one.
func (m *AccountManager) SetActive(ctx context.Context, id string) error {
	if err := m.requireBusiness(); err != nil {
		return err
	}
	if _, err := m.accounts.Get(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	if err := m.store.Flush(ctx); err != nil {
		return err
	}
	if err := m.accounts.SetActiveID(ctx, id); err != nil {
		return err
	}
	if err := m.store.Load(ctx); err != nil {
		return err
	}
	// push the new account's document to the stream page
	return m.store.Save(ctx)
}

// Delete removes an account. "default" can never be deleted; deleting the
// active account moves the pointer back to "default".
func (m *AccountManager) Delete(ctx context.Context, id string, c Confirmation) error {
	if id == entities.DefaultAccountID {
		return ErrDefaultAccount
	}
	if err := m.requireBusiness(); err != nil {
		return err
	}
	if err := requireConfirmation(c); err != nil {
		return err
	}
	if err := m.store.Flush(ctx); err != nil {
		return err
	}

	all, err := m.accounts.List(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return ErrUnknownAccount
	}
	delete(all, id)
	if err := m.accounts.SaveAll(ctx, all); err != nil {
		return err
	}

	activeID, err := m.accounts.ActiveID(ctx)
	if err != nil {
		return err
	}
	if activeID == id {
		if err := m.accounts.SetActiveID(ctx, entities.DefaultAccountID); err != nil {
			return err
		}
		if err := m.store.Load(ctx); err != nil {
			return err
		}
	}
	m.logger.Info("account deleted", zap.String("account_id", id), zap.Bool("was_active", activeID == id))
	return nil
}

func (m *AccountManager) Rename(ctx context.Context, id, name string) error {
	if err := m.requireBusiness(); err != nil {
		return err
	}
	name, err := cleanAccountName(name)
	if err != nil {
		return err
	}
	if err := m.store.Flush(ctx); err != nil {
		return err
	}
	err = m.accounts.Update(ctx, id, func(a *entities.Account) error {
		a.Name = name
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUnknownAccount
	}
	return err
}
