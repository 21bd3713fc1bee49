package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"buzzchat/internal/interfaces"
)

var namespaceSanitizer = regexp.MustCompile("[^a-zA-Z0-9_]+")

// TenantManager maps users to storage namespaces.
type TenantManager struct {
	kv interfaces.KeyValueStore
}

func NewTenantManager(kv interfaces.KeyValueStore) *TenantManager {
	return &TenantManager{kv: kv}
}

// sanitizeNamespace keeps namespace names to [a-z0-9_]
func sanitizeNamespace(name string) string {
	return strings.ToLower(namespaceSanitizer.ReplaceAllString(name, "_"))
}

// NamespaceFor returns the namespace of a user id
func (t *TenantManager) NamespaceFor(userID string) string {
	return "tenant_" + sanitizeNamespace(userID)
}

// DropNamespace removes every document of a namespace
func (t *TenantManager) DropNamespace(ctx context.Context, ns string) error {
	keys, err := t.kv.Keys(ctx, ns)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := t.kv.Remove(ctx, ns, k); err != nil {
			return fmt.Errorf("drop %s: %w", ns, err)
		}
	}
	return nil
}
