package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/repository"

	"go.uber.org/zap"
)

// BackendSelector picks the settings repository of a namespace at load time,
// migrating the legacy document into the account map first.
type BackendSelector struct {
	legacy   *repository.LegacySettingsRepository
	accounts *repository.AccountRepository
	scoped   *repository.AccountSettingsRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewBackendSelector(legacy *repository.LegacySettingsRepository, accounts *repository.AccountRepository, logger *zap.Logger) *BackendSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackendSelector{
		legacy:   legacy,
		accounts: accounts,
		scoped:   repository.NewAccountSettingsRepository(accounts),
		logger:   logger,
		now:      time.Now,
	}
}

// MigrateLegacy creates the "default" account from the legacy document when
// the account map is empty. It reports whether it migrated; a populated map
// is never touched.
func (b *BackendSelector) MigrateLegacy(ctx context.Context) (bool, error) {
	existing, err := b.accounts.List(ctx)
	if err != nil {
		return false, fmt.Errorf("check accounts: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	legacy, err := b.legacy.LoadRaw(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("read legacy settings: %w", err)
	}
	// arrays in the legacy document replace the defaults wholesale
	seeded, err := entities.SettingsFromMap(legacy)
	if err != nil {
		return false, fmt.Errorf("merge legacy settings: %w", err)
	}

	accounts := map[string]*entities.Account{
		entities.DefaultAccountID: {
			ID:        entities.DefaultAccountID,
			Name:      "Default",
			CreatedAt: b.now().UnixMilli(),
			Settings:  seeded,
		},
	}
	if err := b.accounts.SaveAll(ctx, accounts); err != nil {
		return false, err
	}
	if err := b.accounts.SetActiveID(ctx, entities.DefaultAccountID); err != nil {
		return false, err
	}
	b.logger.Info("migrated legacy settings into default account", zap.Bool("had_legacy", legacy != nil))
	return true, nil
}

// Select runs the migration and returns the repository subsequent saves
// must use: the account-scoped one when the active account has settings,
// the legacy one otherwise.
func (b *BackendSelector) Select(ctx context.Context) (repository.SettingsRepository, error) {
	if _, err := b.MigrateLegacy(ctx); err != nil {
		return nil, err
	}
	activeID, err := b.accounts.ActiveID(ctx)
	if err != nil {
		return nil, err
	}
	// pinned to the account active now; a later switch goes through Load again
	scoped := b.scoped.ForAccount(activeID)
	_, err = scoped.Load(ctx)
	if err == nil {
		return scoped, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load account settings: %w", err)
	}
	b.logger.Debug("no account-scoped settings, using legacy document")
	return b.legacy, nil
}
