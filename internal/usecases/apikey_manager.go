package usecases

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/repository"

	"github.com/google/uuid"
)

const (
	MaxApiKeys    = 5
	ApiKeyPrefix  = "bz_live_"
	apiKeyEntropy = 24 // bytes, 48 hex chars
)

// ApiKeyManager issues and checks Business-tier API keys. Keys are kept as
// issued, not hashed; see DESIGN.md.
type ApiKeyManager struct {
	keys  *repository.ApiKeyRepository
	index *repository.ApiKeyIndex
	store *SettingsStore
	now   func() time.Time

	// guards read-modify-write of the key map
	mu sync.Mutex
}

func NewApiKeyManager(keys *repository.ApiKeyRepository, index *repository.ApiKeyIndex, store *SettingsStore) *ApiKeyManager {
	return &ApiKeyManager{keys: keys, index: index, store: store, now: time.Now}
}

func generateKey() (string, error) {
	buf := make([]byte, apiKeyEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return ApiKeyPrefix + hex.EncodeToString(buf), nil
}

// Generate issues a new key. The full key is only returned here; List masks it.
func (m *ApiKeyManager) Generate(ctx context.Context, name string) (*entities.ApiKey, error) {
	if m.store.Snapshot().Tier != entities.TierBusiness {
		return nil, ErrBusinessOnly
	}
	name, err := cleanAccountName(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	all, err := m.keys.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) >= MaxApiKeys {
		return nil, fmt.Errorf("%w: at most %d keys", ErrApiKeyLimit, MaxApiKeys)
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	k := &entities.ApiKey{
		ID:        uuid.NewString(),
		Name:      name,
		Key:       key,
		CreatedAt: m.now().UnixMilli(),
	}
	all[k.ID] = k
	if err := m.keys.SaveAll(ctx, all); err != nil {
		return nil, err
	}
	if m.index != nil {
		if err := m.index.Put(ctx, k.Key, m.store.Namespace()); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// List returns masked keys in creation order
func (m *ApiKeyManager) List(ctx context.Context) ([]entities.ApiKey, error) {
	keys, err := m.keys.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i] = keys[i].Masked()
	}
	return keys, nil
}

func (m *ApiKeyManager) Revoke(ctx context.Context, id string, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	all, err := m.keys.All(ctx)
	if err != nil {
		return err
	}
	k, ok := all[id]
	if !ok {
		return ErrUnknownApiKey
	}
	delete(all, id)
	if err := m.keys.SaveAll(ctx, all); err != nil {
		return err
	}
	if m.index != nil {
		if err := m.index.Remove(ctx, k.Key); err != nil {
			return err
		}
	}
	return m.keys.ForgetUsed(ctx, id)
}

// Authenticate checks a presented key and stamps its lastUsed time. The
// stamp is its own entry, so it never rewrites the key map.
func (m *ApiKeyManager) Authenticate(ctx context.Context, key string) (*entities.ApiKey, error) {
	if !strings.HasPrefix(key, ApiKeyPrefix) {
		return nil, ErrUnknownApiKey
	}
	// keys stop working when the plan drops below Business
	if m.store.Snapshot().Tier != entities.TierBusiness {
		return nil, ErrBusinessOnly
	}
	all, err := m.keys.All(ctx)
	if err != nil {
		return nil, err
	}
	var found *entities.ApiKey
	for _, k := range all {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) == 1 {
			found = k
			break
		}
	}
	if found == nil {
		return nil, ErrUnknownApiKey
	}
	used := m.now().UnixMilli()
	if err := m.keys.TouchUsed(ctx, found.ID, used); err != nil {
		return nil, err
	}
	found.LastUsed = &used
	return found, nil
}

// IsUnknownKey reports whether err means the key was not recognised
func IsUnknownKey(err error) bool {
	return errors.Is(err, ErrUnknownApiKey) || errors.Is(err, repository.ErrNotFound)
}
