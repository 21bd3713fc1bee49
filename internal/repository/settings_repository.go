package repository

import (
	"context"
	"errors"
	"fmt"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
)

// SettingsRepository persists the settings document of one namespace.
type SettingsRepository interface {
	Load(ctx context.Context) (*entities.Settings, error)
	Save(ctx context.Context, s *entities.Settings) error
	Name() string
}

// LegacySettingsRepository reads and writes the single flat document that
// predates multi-account support.
type LegacySettingsRepository struct {
	kv interfaces.KeyValueStore
	ns string
}

func NewLegacySettingsRepository(kv interfaces.KeyValueStore, ns string) *LegacySettingsRepository {
	return &LegacySettingsRepository{kv: kv, ns: ns}
}

func (r *LegacySettingsRepository) Name() string { return "legacy" }

// Load returns defaults when no legacy document exists.
func (r *LegacySettingsRepository) Load(ctx context.Context) (*entities.Settings, error) {
	raw, err := r.LoadRaw(ctx)
	if errors.Is(err, ErrNotFound) {
		return entities.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	return entities.SettingsFromMap(raw)
}

// LoadRaw returns the stored document without applying defaults
func (r *LegacySettingsRepository) LoadRaw(ctx context.Context) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := getJSON(ctx, r.kv, r.ns, KeyLegacySettings, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *LegacySettingsRepository) Save(ctx context.Context, s *entities.Settings) error {
	if err := setJSON(ctx, r.kv, r.ns, KeyLegacySettings, s); err != nil {
		return fmt.Errorf("save legacy settings: %w", err)
	}
	return nil
}

// AccountSettingsRepository reads and writes the settings of one account.
// A repository built with NewAccountSettingsRepository follows the active
// pointer; ForAccount pins it to an id, so a document loaded from one
// account is never saved into another after a switch.
type AccountSettingsRepository struct {
	accounts  *AccountRepository
	accountID string
}

func NewAccountSettingsRepository(accounts *AccountRepository) *AccountSettingsRepository {
	return &AccountSettingsRepository{accounts: accounts}
}

// ForAccount returns a repository bound to account id
func (r *AccountSettingsRepository) ForAccount(id string) *AccountSettingsRepository {
	return &AccountSettingsRepository{accounts: r.accounts, accountID: id}
}

func (r *AccountSettingsRepository) Name() string { return "account" }

// AccountID is the bound account, "" when following the active pointer
func (r *AccountSettingsRepository) AccountID() string { return r.accountID }

func (r *AccountSettingsRepository) target(ctx context.Context) (string, error) {
	if r.accountID != "" {
		return r.accountID, nil
	}
	return r.accounts.ActiveID(ctx)
}

// Load returns ErrNotFound when there is no account map or the account has
// no settings.
func (r *AccountSettingsRepository) Load(ctx context.Context) (*entities.Settings, error) {
	id, err := r.target(ctx)
	if err != nil {
		return nil, err
	}
	acc, err := r.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.Settings == nil {
		return nil, ErrNotFound
	}
	acc.Settings.Normalize()
	return acc.Settings, nil
}

func (r *AccountSettingsRepository) Save(ctx context.Context, s *entities.Settings) error {
	id, err := r.target(ctx)
	if err != nil {
		return err
	}
	return r.accounts.Update(ctx, id, func(acc *entities.Account) error {
		acc.Settings = s
		return nil
	})
}
