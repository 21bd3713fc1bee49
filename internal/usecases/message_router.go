package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/infrastructure"
	"buzzchat/internal/repository"

	"go.uber.org/zap"
)

// inbound types a content script may send; ACK is resolved by the hub
var inboundWhitelist = map[entities.MessageType]struct{}{
	entities.MsgMessageSent:   {},
	entities.MsgCommandUsed:   {},
	entities.MsgGiveawayEntry: {},
	entities.MsgChatMetrics:   {},
}

// MessageRouter validates messages from content scripts and applies their
// effects to the namespace's workspace. A message from another sender or of
// an unknown type is rejected; the hub logs the error and drops it.
type MessageRouter struct {
	registry    *StoreRegistry
	extensionID string
	limiter     *infrastructure.MessageRateLimiter
	alerts      *AlertService
	logger      *zap.Logger
}

func NewMessageRouter(registry *StoreRegistry, extensionID string, limiter *infrastructure.MessageRateLimiter, alerts *AlertService, logger *zap.Logger) *MessageRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &MessageRouter{
		registry:    registry,
		extensionID: extensionID,
		limiter:     limiter,
		alerts:      alerts,
		logger:      logger,
	}
	if registry != nil && limiter != nil {
		registry.OnDrop(limiter.Reset)
	}
	return r
}

// Validate applies the sender and type checks without touching any state
func (r *MessageRouter) Validate(msg entities.Message) error {
	if r.extensionID == "" || msg.SenderID != r.extensionID {
		return fmt.Errorf("%w: %q", ErrUnauthorizedSender, msg.SenderID)
	}
	if _, ok := inboundWhitelist[msg.Type]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}
	return nil
}

func (r *MessageRouter) HandleInbound(ctx context.Context, ns string, msg entities.Message) error {
	if err := r.Validate(msg); err != nil {
		return err
	}
	if r.limiter != nil && !r.limiter.Allow(ns) {
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, r.limiter.WaitTime(ns).Round(time.Millisecond))
	}

	ws, err := r.registry.Get(ctx, ns)
	if err != nil {
		return err
	}

	switch msg.Type {
	case entities.MsgMessageSent:
		return r.messageSent(ctx, ws, msg.Payload)
	case entities.MsgCommandUsed:
		return r.commandUsed(ctx, ws, msg.Payload)
	case entities.MsgGiveawayEntry:
		return r.giveawayEntry(ctx, ws, msg.Payload)
	case entities.MsgChatMetrics:
		return r.chatMetrics(ctx, ws, msg.Payload)
	}
	return nil
}

func decodePayload(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", ErrInvalidInput, err)
	}
	return nil
}

func (r *MessageRouter) messageSent(ctx context.Context, ws *Workspace, raw json.RawMessage) error {
	var p entities.MessageSentPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	err := ws.Store.Mutate(func(s *entities.Settings) error {
		s.MessagesUsed++
		return nil
	})
	if err != nil {
		return err
	}
	return ws.Usage.Increment(ctx, repository.CounterMessagesSent)
}

// commandUsed takes the content script's count when it sends one, otherwise
// counts one use. The stored count never goes down.
func (r *MessageRouter) commandUsed(ctx context.Context, ws *Workspace, raw json.RawMessage) error {
	var p entities.CommandUsedPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	trigger := NormalizeTrigger(p.Trigger)
	if trigger == "" {
		return fmt.Errorf("%w: empty trigger", ErrInvalidInput)
	}
	err := ws.Store.Mutate(func(s *entities.Settings) error {
		idx := findCommand(s, trigger)
		if idx < 0 {
			return fmt.Errorf("%w: command %q", repository.ErrNotFound, trigger)
		}
		c := &s.Commands.List[idx]
		if p.UsageCount > 0 {
			if p.UsageCount > c.UsageCount {
				c.UsageCount = p.UsageCount
			}
		} else {
			c.UsageCount++
		}
		return nil
	})
	if err != nil {
		return err
	}
	return ws.Usage.Increment(ctx, repository.CounterCommandsUsed)
}

func (r *MessageRouter) giveawayEntry(ctx context.Context, ws *Workspace, raw json.RawMessage) error {
	var p entities.GiveawayEntryPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return fmt.Errorf("%w: entry without username", ErrInvalidInput)
	}
	giveaway := ws.Store.Snapshot().Giveaway
	if !giveaway.Enabled {
		r.logger.Debug("giveaway entry while giveaway is off", zap.String("namespace", ws.Namespace))
		return nil
	}

	added, err := ws.Audience.AddGiveawayEntry(ctx, username, giveaway.UniqueOnly)
	if err != nil || !added {
		return err
	}
	err = ws.Audience.TouchBuyer(ctx, username, func(b *repository.Buyer) {
		b.GiveawayEntries++
	})
	if err != nil {
		return err
	}
	if err := ws.Usage.Increment(ctx, repository.CounterGiveawayEntries); err != nil {
		return err
	}
	r.alerts.Send(fmt.Sprintf("🎁 New giveaway entry from %s", username))
	return nil
}

func (r *MessageRouter) chatMetrics(ctx context.Context, ws *Workspace, raw json.RawMessage) error {
	var p entities.ChatMetricsPayload
	if err := decodePayload(raw, &p); err != nil {
		return err
	}
	if p.ViewerCount < 0 || p.UniqueChatters < 0 || p.MessagesPerMin < 0 {
		return fmt.Errorf("%w: negative metrics", ErrInvalidInput)
	}
	return ws.Audience.RecordMetrics(ctx, p)
}
