package usecases

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"buzzchat/internal/entities"
	"buzzchat/internal/infrastructure"
	"buzzchat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var confirmed = Confirmation{Confirmed: true}

func TestAccountsNeedBusiness(t *testing.T) {
	env := newTestEnv(t)
	ws := env.workspace(t)
	ctx := context.Background()

	_, err := ws.Accounts.Create(ctx, "Second shop")
	assert.ErrorIs(t, err, ErrBusinessOnly)

	list, err := ws.Accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.DefaultAccountID, list[0].ID)
	assert.True(t, list[0].Active)
}

func TestSwitchAccountReloadsStore(t *testing.T) {
	env := newTestEnv(t)
	ws := env.workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierBusiness)

	require.NoError(t, ws.Welcome.SetMessage(nil, "main shop"))

	second, err := ws.Accounts.Create(ctx, "  Second shop ")
	require.NoError(t, err)
	assert.Equal(t, "Second shop", second.Name)
	assert.False(t, second.Active)
	assert.Equal(t, "main shop", ws.Store.Snapshot().Welcome.Message)

	sent := env.notifier.changes()
	require.NoError(t, ws.Accounts.SetActive(ctx, second.ID))
	snap := ws.Store.Snapshot()
	assert.Equal(t, entities.DefaultSettings().Welcome.Message, snap.Welcome.Message)
	assert.Equal(t, entities.TierBusiness, snap.Tier)
	assert.Greater(t, env.notifier.changes(), sent)

	list, err := ws.Accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Active)
	assert.True(t, list[1].Active)

	require.NoError(t, ws.Accounts.SetActive(ctx, entities.DefaultAccountID))
	assert.Equal(t, "main shop", ws.Store.Snapshot().Welcome.Message)

	assert.ErrorIs(t, ws.Accounts.SetActive(ctx, "nope"), ErrUnknownAccount)
}

func TestDeleteActiveAccountFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t)
	ws := env.workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierBusiness)
	require.NoError(t, ws.Welcome.SetMessage(nil, "main shop"))

	second, err := ws.Accounts.Create(ctx, "Second")
	require.NoError(t, err)
	require.NoError(t, ws.Accounts.SetActive(ctx, second.ID))

	assert.ErrorIs(t, ws.Accounts.Delete(ctx, second.ID, Confirmation{}), ErrNotConfirmed)
	require.NoError(t, ws.Accounts.Delete(ctx, second.ID, confirmed))

	assert.Equal(t, "main shop", ws.Store.Snapshot().Welcome.Message)
	list, err := ws.Accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Active)

	assert.ErrorIs(t, ws.Accounts.Delete(ctx, entities.DefaultAccountID, confirmed), ErrDefaultAccount)
	assert.ErrorIs(t, ws.Accounts.Delete(ctx, "nope", confirmed), ErrUnknownAccount)
}

func TestAccountLimitAndNames(t *testing.T) {
	env := newTestEnv(t)
	ws := env.workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierBusiness)

	_, err := ws.Accounts.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	var last *entities.AccountSummary
	for i := 1; i < MaxAccounts; i++ {
		last, err = ws.Accounts.Create(ctx, fmt.Sprintf("Shop %d", i))
		require.NoError(t, err)
	}
	_, err = ws.Accounts.Create(ctx, "One too many")
	assert.ErrorIs(t, err, ErrAccountLimit)

	require.NoError(t, ws.Accounts.Rename(ctx, last.ID, "Renamed"))
	list, err := ws.Accounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, MaxAccounts)
	assert.ErrorIs(t, ws.Accounts.Rename(ctx, "nope", "x"), ErrUnknownAccount)
}

func TestSwitchKeepsInFlightEditsOnOldAccount(t *testing.T) {
	kv := &hookStore{MemoryStore: infrastructure.NewMemoryStore()}
	env := newTestEnvWithStore(t, kv)
	ws := env.workspace(t)
	ctx := context.Background()

	setTier(t, ws, entities.TierBusiness)
	require.NoError(t, ws.Welcome.SetMessage(nil, "MAIN SHOP"))
	second, err := ws.Accounts.Create(ctx, "Second shop")
	require.NoError(t, err)

	// a chat message lands right after the active pointer moves
	var once sync.Once
	kv.setHook(func(_, key string) {
		if key != repository.KeyActiveAccount {
			return
		}
		once.Do(func() {
			_ = ws.Store.Mutate(func(s *entities.Settings) error {
				s.MessagesUsed++
				return nil
			})
		})
	})
	require.NoError(t, ws.Accounts.SetActive(ctx, second.ID))

	fresh := entities.DefaultSettings().Welcome.Message
	assert.Equal(t, fresh, ws.Store.Snapshot().Welcome.Message)

	accounts := repository.NewAccountRepository(kv, testNS)
	def, err := accounts.Get(ctx, entities.DefaultAccountID)
	require.NoError(t, err)
	assert.Equal(t, "MAIN SHOP", def.Settings.Welcome.Message)
	assert.Equal(t, 1, def.Settings.MessagesUsed)

	other, err := accounts.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh, other.Settings.Welcome.Message)
	assert.Equal(t, 0, other.Settings.MessagesUsed)
}
