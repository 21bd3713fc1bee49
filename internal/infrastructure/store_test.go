package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"buzzchat/internal/interfaces"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every driver has to share
func exerciseStore(t *testing.T, store interfaces.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "ns1", "settings")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "ns1", "settings", []byte(`{"tier":"free"}`)))
	require.NoError(t, store.Set(ctx, "ns1", "accounts", []byte(`{}`)))
	require.NoError(t, store.Set(ctx, "ns2", "settings", []byte(`{"tier":"pro"}`)))

	got, err := store.Get(ctx, "ns1", "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"free"}`, string(got))

	// overwrite
	require.NoError(t, store.Set(ctx, "ns1", "settings", []byte(`{"tier":"business"}`)))
	got, err = store.Get(ctx, "ns1", "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"business"}`, string(got))

	keys, err := store.Keys(ctx, "ns1")
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "settings"}, keys)

	require.NoError(t, store.Remove(ctx, "ns1", "settings"))
	require.NoError(t, store.Remove(ctx, "ns1", "never-set"))
	_, err = store.Get(ctx, "ns1", "settings")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	keys, err = store.Keys(ctx, "ns1")
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts"}, keys)

	// namespaces are isolated
	got, err = store.Get(ctx, "ns2", "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"pro"}`, string(got))

	keys, err = store.Keys(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// insert-if-absent: one winner, the loser leaves the value alone
	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.SetIfAbsent(ctx, "ns3", "user:ana", []byte(fmt.Sprintf(`{"n":%d}`, i)))
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	before, err := store.Get(ctx, "ns3", "user:ana")
	require.NoError(t, err)
	ok, err := store.SetIfAbsent(ctx, "ns3", "user:ana", []byte(`{"n":99}`))
	require.NoError(t, err)
	assert.False(t, ok)
	after, err := store.Get(ctx, "ns3", "user:ana")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	keys, err = store.Keys(ctx, "ns3")
	require.NoError(t, err)
	assert.Equal(t, []string{"user:ana"}, keys)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buzzchat.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	exerciseStore(t, store)
	require.NoError(t, store.Close())

	// data survives a reopen
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "ns2", "settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"pro"}`, string(got))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)

	assert.True(t, mr.Exists("buzzchat:ns2:settings"))
}

func TestRedisStoreFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "ns", "k", []byte(`1`)))
	members, err := mr.SMembers("buzzchat:ns:__keys")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, members)
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore("redis://" + addr)
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := NewPostgresClient(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Pool.Exec(ctx, "DELETE FROM storage_items WHERE namespace IN ('ns1', 'ns2', 'empty')")
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, StorageOptions{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = OpenStore(ctx, StorageOptions{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = OpenStore(ctx, StorageOptions{Driver: "mongo"})
	assert.Error(t, err)
}
