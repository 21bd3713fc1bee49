package usecases

import (
	"context"
	"testing"

	"buzzchat/internal/entities"
	"buzzchat/internal/infrastructure"
	"buzzchat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSelector(kv *infrastructure.MemoryStore) (*BackendSelector, *repository.AccountRepository) {
	accounts := repository.NewAccountRepository(kv, testNS)
	return NewBackendSelector(repository.NewLegacySettingsRepository(kv, testNS), accounts, nil), accounts
}

func TestMigrateLegacyDocument(t *testing.T) {
	ctx := context.Background()
	kv := infrastructure.NewMemoryStore()
	legacy := `{"tier":"pro","faq":{"enabled":true,"rules":[{"triggers":["ship"],"reply":"2 days"}]},"timer":{"messages":[]}}`
	require.NoError(t, kv.Set(ctx, testNS, repository.KeyLegacySettings, []byte(legacy)))

	selector, accounts := newSelector(kv)
	repo, err := selector.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "account", repo.Name())

	acc, err := accounts.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultAccountID, acc.ID)
	assert.Equal(t, "Default", acc.Name)
	require.NotNil(t, acc.Settings)
	assert.Equal(t, entities.TierPro, acc.Settings.Tier)
	require.Len(t, acc.Settings.FAQ.Rules, 1)
	assert.Equal(t, "2 days", acc.Settings.FAQ.Rules[0].Reply)
	// missing sections take their defaults
	assert.Equal(t, "enter", acc.Settings.Giveaway.Keyword)
}

func TestMigrateLegacyRunsOnce(t *testing.T) {
	ctx := context.Background()
	kv := infrastructure.NewMemoryStore()
	selector, accounts := newSelector(kv)

	migrated, err := selector.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.True(t, migrated)

	require.NoError(t, accounts.Update(ctx, entities.DefaultAccountID, func(a *entities.Account) error {
		a.Name = "Main shop"
		return nil
	}))

	migrated, err = selector.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.False(t, migrated)

	acc, err := accounts.Get(ctx, entities.DefaultAccountID)
	require.NoError(t, err)
	assert.Equal(t, "Main shop", acc.Name)
}

func TestSelectFallsBackToLegacy(t *testing.T) {
	ctx := context.Background()
	kv := infrastructure.NewMemoryStore()
	selector, accounts := newSelector(kv)

	require.NoError(t, accounts.SaveAll(ctx, map[string]*entities.Account{
		"a1": {ID: "a1", Name: "Shop", Settings: entities.DefaultSettings()},
	}))
	require.NoError(t, accounts.SetActiveID(ctx, "ghost"))

	repo, err := selector.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy", repo.Name())

	// an active account without settings also uses the legacy document
	require.NoError(t, accounts.SetActiveID(ctx, "a2"))
	require.NoError(t, accounts.SaveAll(ctx, map[string]*entities.Account{
		"a2": {ID: "a2", Name: "Empty"},
	}))
	repo, err = selector.Select(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy", repo.Name())
}
