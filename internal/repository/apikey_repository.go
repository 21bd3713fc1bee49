package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
)

// ApiKeyRepository stores the API-key map of a namespace. Writers within one
// process are serialized by ApiKeyManager; across processes the last write
// wins.
type ApiKeyRepository struct {
	kv interfaces.KeyValueStore
	ns string
}

func NewApiKeyRepository(kv interfaces.KeyValueStore, ns string) *ApiKeyRepository {
	return &ApiKeyRepository{kv: kv, ns: ns}
}

// All returns the key map with lastUsed filled from the usage entries
func (r *ApiKeyRepository) All(ctx context.Context) (map[string]*entities.ApiKey, error) {
	keys := map[string]*entities.ApiKey{}
	err := getJSON(ctx, r.kv, r.ns, KeyApiKeys, &keys)
	if errors.Is(err, ErrNotFound) {
		return map[string]*entities.ApiKey{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load api keys: %w", err)
	}
	for id, k := range keys {
		var used int64
		err := getJSON(ctx, r.kv, r.ns, PrefixApiKeyUsed+id, &used)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load api key usage: %w", err)
		}
		k.LastUsed = &used
	}
	return keys, nil
}

// TouchUsed records when key id was last presented
func (r *ApiKeyRepository) TouchUsed(ctx context.Context, id string, at int64) error {
	if err := setJSON(ctx, r.kv, r.ns, PrefixApiKeyUsed+id, at); err != nil {
		return fmt.Errorf("save api key usage: %w", err)
	}
	return nil
}

func (r *ApiKeyRepository) ForgetUsed(ctx context.Context, id string) error {
	if err := r.kv.Remove(ctx, r.ns, PrefixApiKeyUsed+id); err != nil {
		return fmt.Errorf("remove api key usage: %w", err)
	}
	return nil
}

// List returns keys ordered by creation time
func (r *ApiKeyRepository) List(ctx context.Context) ([]entities.ApiKey, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.ApiKey, 0, len(all))
	for _, k := range all {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// SaveAll replaces the key map. lastUsed lives in its own entries and is
// not written here.
func (r *ApiKeyRepository) SaveAll(ctx context.Context, keys map[string]*entities.ApiKey) error {
	stripped := make(map[string]entities.ApiKey, len(keys))
	for id, k := range keys {
		c := *k
		c.LastUsed = nil
		stripped[id] = c
	}
	if err := setJSON(ctx, r.kv, r.ns, KeyApiKeys, stripped); err != nil {
		return fmt.Errorf("save api keys: %w", err)
	}
	return nil
}

// ApiKeyIndex maps every issued key to the namespace that owns it, so a
// request carrying only a key can be routed. Each key is its own entry in
// the system namespace.
type ApiKeyIndex struct {
	kv interfaces.KeyValueStore
}

func NewApiKeyIndex(kv interfaces.KeyValueStore) *ApiKeyIndex {
	return &ApiKeyIndex{kv: kv}
}

func indexKey(key string) string {
	return PrefixApiKeyIndex + key
}

func (i *ApiKeyIndex) Put(ctx context.Context, key, ns string) error {
	if err := setJSON(ctx, i.kv, SystemNamespace, indexKey(key), ns); err != nil {
		return fmt.Errorf("index api key: %w", err)
	}
	return nil
}

func (i *ApiKeyIndex) Remove(ctx context.Context, key string) error {
	if err := i.kv.Remove(ctx, SystemNamespace, indexKey(key)); err != nil {
		return fmt.Errorf("unindex api key: %w", err)
	}
	return nil
}

// Lookup returns the namespace of key, or ErrNotFound
func (i *ApiKeyIndex) Lookup(ctx context.Context, key string) (string, error) {
	var ns string
	err := getJSON(ctx, i.kv, SystemNamespace, indexKey(key), &ns)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load api key index: %w", err)
	}
	if ns == "" {
		return "", ErrNotFound
	}
	return ns, nil
}
