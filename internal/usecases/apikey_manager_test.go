package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"buzzchat/internal/entities"
	"buzzchat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiKeysNeedBusiness(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	_, err := ws.ApiKeys.Generate(context.Background(), "Zapier")
	assert.ErrorIs(t, err, ErrBusinessOnly)
}

func TestApiKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ws := env.workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierBusiness)

	key, err := ws.ApiKeys.Generate(ctx, "Zapier")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.Key, ApiKeyPrefix))
	assert.Len(t, key.Key, len(ApiKeyPrefix)+48)
	assert.Nil(t, key.LastUsed)

	ns, err := env.registry.KeyIndex().Lookup(ctx, key.Key)
	require.NoError(t, err)
	assert.Equal(t, testNS, ns)

	listed, err := ws.ApiKeys.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.NotEqual(t, key.Key, listed[0].Key)
	assert.True(t, strings.HasSuffix(listed[0].Key, key.Key[len(key.Key)-4:]))

	got, err := ws.ApiKeys.Authenticate(ctx, key.Key)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsed)

	_, err = ws.ApiKeys.Authenticate(ctx, ApiKeyPrefix+"nope")
	assert.True(t, IsUnknownKey(err))
	_, err = ws.ApiKeys.Authenticate(ctx, "sk_other")
	assert.True(t, IsUnknownKey(err))

	assert.ErrorIs(t, ws.ApiKeys.Revoke(ctx, key.ID, Confirmation{}), ErrNotConfirmed)
	require.NoError(t, ws.ApiKeys.Revoke(ctx, key.ID, confirmed))
	assert.ErrorIs(t, ws.ApiKeys.Revoke(ctx, key.ID, confirmed), ErrUnknownApiKey)

	_, err = env.registry.KeyIndex().Lookup(ctx, key.Key)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = ws.ApiKeys.Authenticate(ctx, key.Key)
	assert.ErrorIs(t, err, ErrUnknownApiKey)
}

func TestApiKeyLimitAndDowngrade(t *testing.T) {
	ws := newTestEnv(t).workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierBusiness)

	var first *entities.ApiKey
	for i := 0; i < MaxApiKeys; i++ {
		k, err := ws.ApiKeys.Generate(ctx, fmt.Sprintf("key %d", i))
		require.NoError(t, err)
		if first == nil {
			first = k
		}
	}
	_, err := ws.ApiKeys.Generate(ctx, "sixth")
	assert.ErrorIs(t, err, ErrApiKeyLimit)

	setTier(t, ws, entities.TierPro)
	_, err = ws.ApiKeys.Authenticate(ctx, first.Key)
	assert.ErrorIs(t, err, ErrBusinessOnly)
}

func TestKeysFromManyNamespacesAllIndexed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const tenants = 8
	keys := make([]*entities.ApiKey, tenants)
	var wg sync.WaitGroup
	for i := 0; i < tenants; i++ {
		ws, err := env.registry.Get(ctx, fmt.Sprintf("tenant_%d", i))
		require.NoError(t, err)
		setTier(t, ws, entities.TierBusiness)

		wg.Add(1)
		go func(i int, ws *Workspace) {
			defer wg.Done()
			k, err := ws.ApiKeys.Generate(ctx, "Zapier")
			if err == nil {
				keys[i] = k
			}
		}(i, ws)
	}
	wg.Wait()

	for i, k := range keys {
		require.NotNil(t, k, "tenant_%d", i)
		ns, err := env.registry.KeyIndex().Lookup(ctx, k.Key)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("tenant_%d", i), ns)
	}
}

func TestRevokeSticksWhileKeyIsInUse(t *testing.T) {
	env := newTestEnv(t)
	ws := env.workspace(t)
	ctx := context.Background()
	setTier(t, ws, entities.TierBusiness)

	key, err := ws.ApiKeys.Generate(ctx, "Zapier")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ws.ApiKeys.Authenticate(ctx, key.Key)
		}()
	}
	require.NoError(t, ws.ApiKeys.Revoke(ctx, key.ID, confirmed))
	wg.Wait()

	listed, err := ws.ApiKeys.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
	_, err = ws.ApiKeys.Authenticate(ctx, key.Key)
	assert.ErrorIs(t, err, ErrUnknownApiKey)
}
