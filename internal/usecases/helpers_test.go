package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"

	"buzzchat/internal/entities"
	"buzzchat/internal/infrastructure"
	"buzzchat/internal/interfaces"

	"github.com/stretchr/testify/require"
)

const testNS = "tenant_test"

type fakeNotifier struct {
	mu       sync.Mutex
	changed  []*entities.Settings
	requests []entities.MessageType
	ack      *entities.AckPayload
	err      error
}

func (f *fakeNotifier) NotifySettingsChanged(_ context.Context, _ string, s *entities.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, s)
	return f.err
}

func (f *fakeNotifier) Request(_ context.Context, _ string, t entities.MessageType, _ interface{}) (*entities.AckPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, t)
	if f.err != nil {
		return nil, f.err
	}
	if f.ack != nil {
		return f.ack, nil
	}
	return &entities.AckPayload{Success: true}, nil
}

func (f *fakeNotifier) changes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.changed)
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeMessenger) SendMessage(_, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("chat not found")
	}
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeMessenger) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type testEnv struct {
	kv        interfaces.KeyValueStore
	notifier  *fakeNotifier
	messenger *fakeMessenger
	alerts    *AlertService
	registry  *StoreRegistry
}

// newTestEnv builds a registry over an in-memory store. Debounce is off, so
// writes only happen on Flush or MutateNow.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, infrastructure.NewMemoryStore())
}

func newTestEnvWithStore(t *testing.T, kv interfaces.KeyValueStore) *testEnv {
	t.Helper()
	env := &testEnv{
		kv:        kv,
		notifier:  &fakeNotifier{},
		messenger: &fakeMessenger{},
	}
	env.alerts = NewAlertService(env.messenger, "42", nil)
	env.registry = NewStoreRegistry(env.kv, env.notifier, env.alerts, nil, 0)
	return env
}

func (e *testEnv) workspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := e.registry.Get(context.Background(), testNS)
	require.NoError(t, err)
	return ws
}

func setTier(t *testing.T, ws *Workspace, tier entities.Tier) {
	t.Helper()
	require.NoError(t, ws.Store.MutateNow(context.Background(), func(s *entities.Settings) error {
		s.Tier = tier
		return nil
	}))
}

// hookStore is a memory store that calls afterSet once a key is written
type hookStore struct {
	*infrastructure.MemoryStore
	mu       sync.Mutex
	afterSet func(ns, key string)
}

func (h *hookStore) setHook(fn func(ns, key string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterSet = fn
}

func (h *hookStore) Set(ctx context.Context, ns, key string, value []byte) error {
	if err := h.MemoryStore.Set(ctx, ns, key, value); err != nil {
		return err
	}
	h.mu.Lock()
	fn := h.afterSet
	h.mu.Unlock()
	if fn != nil {
		fn(ns, key)
	}
	return nil
}

// failingStore fails every write while failWrites is set
type failingStore struct {
	*infrastructure.MemoryStore
	mu         sync.Mutex
	failWrites bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) setFailing(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = on
}

func (f *failingStore) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWrites
}

func (f *failingStore) Set(ctx context.Context, ns, key string, value []byte) error {
	if f.failing() {
		return errDiskFull
	}
	return f.MemoryStore.Set(ctx, ns, key, value)
}

func (f *failingStore) SetIfAbsent(ctx context.Context, ns, key string, value []byte) (bool, error) {
	if f.failing() {
		return false, errDiskFull
	}
	return f.MemoryStore.SetIfAbsent(ctx, ns, key, value)
}

var _ interfaces.KeyValueStore = (*hookStore)(nil)
var _ interfaces.KeyValueStore = (*failingStore)(nil)
var _ interfaces.ContentNotifier = (*fakeNotifier)(nil)
var _ interfaces.Messenger = (*fakeMessenger)(nil)
