package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"buzzchat/internal/interfaces"
)

// ErrNotFound is returned when a document or an entry inside it is missing
var ErrNotFound = errors.New("not found")

// Persisted keys inside a namespace
const (
	KeyLegacySettings  = "settings"
	KeyAccounts        = "accounts"
	KeyActiveAccount   = "activeAccountId"
	KeyApiKeys         = "apiKeys"
	KeyAnalytics       = "analytics"
	KeyBuyers          = "buyers"
	KeyGiveawayEntries = "giveawayEntries"
	KeyChatMetrics     = "chatMetrics"
	// one entry per API key id, so stamping usage never rewrites the key map
	PrefixApiKeyUsed = "apiKeyUsed:"
)

// Entry prefixes in the system namespace: one entry per user and per issued
// API key, so writers for different users never touch the same document.
const (
	PrefixUser        = "user:"
	PrefixApiKeyIndex = "apiKeyIndex:"
)

// SystemNamespace holds service-wide documents such as the user table
const SystemNamespace = "_system"

// getJSON loads key into out. A missing key yields ErrNotFound.
func getJSON(ctx context.Context, kv interfaces.KeyValueStore, ns, key string, out interface{}) error {
	raw, err := kv.Get(ctx, ns, key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// insertJSON writes v only when key is absent and reports whether it did
func insertJSON(ctx context.Context, kv interfaces.KeyValueStore, ns, key string, v interface{}) (bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.SetIfAbsent(ctx, ns, key, raw)
}

// keysWithPrefix lists the keys of ns that start with prefix
func keysWithPrefix(ctx context.Context, kv interfaces.KeyValueStore, ns, prefix string) ([]string, error) {
	all, err := kv.Keys(ctx, ns)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func setJSON(ctx context.Context, kv interfaces.KeyValueStore, ns, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, ns, key, raw)
}
