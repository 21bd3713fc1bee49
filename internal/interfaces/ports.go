package interfaces

import (
	"context"
	"errors"

	"buzzchat/internal/entities"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for a missing key
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the persistence area behind every repository. Values are
// JSON documents; ns isolates one user/install from another.
type KeyValueStore interface {
	Get(ctx context.Context, ns, key string) ([]byte, error)
	Set(ctx context.Context, ns, key string, value []byte) error
	// SetIfAbsent writes value only when key does not exist yet and reports
	// whether it did. The check and the write are one atomic step.
	SetIfAbsent(ctx context.Context, ns, key string, value []byte) (bool, error)
	Remove(ctx context.Context, ns, key string) error
	Keys(ctx context.Context, ns string) ([]string, error)
	Close() error
}

// ContentNotifier delivers messages to the content script of a namespace.
type ContentNotifier interface {
	// NotifySettingsChanged is fire-and-forget.
	NotifySettingsChanged(ctx context.Context, ns string, settings *entities.Settings) error
	// Request sends an action and waits for the content script's ACK.
	Request(ctx context.Context, ns string, msgType entities.MessageType, payload interface{}) (*entities.AckPayload, error)
}

// Messenger sends a text alert to the seller outside the browser.
type Messenger interface {
	SendMessage(to, content string) error
}
