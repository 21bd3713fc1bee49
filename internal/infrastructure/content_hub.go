package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"buzzchat/internal/entities"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNoContentScript means no content script of the namespace is connected.
var ErrNoContentScript = errors.New("no content script connected")

// InboundHandler receives every non-ACK message a content script sends.
type InboundHandler interface {
	HandleInbound(ctx context.Context, ns string, msg entities.Message) error
}

// pendingAck is a request waiting for an ACK from a content script of ns
type pendingAck struct {
	ns string
	ch chan entities.AckPayload
}

// ContentHub tracks connected content scripts per namespace and implements
// interfaces.ContentNotifier on top of them.
type ContentHub struct {
	mu      sync.RWMutex
	clients map[string]map[*ContentClient]struct{}

	pendingMu sync.Mutex
	pending   map[string]pendingAck

	upgrader    websocket.Upgrader
	inbound     InboundHandler
	extensionID string
	ackTimeout  time.Duration
	logger      *zap.Logger
}

func NewContentHub(logger *zap.Logger, ackTimeout time.Duration) *ContentHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ackTimeout <= 0 {
		ackTimeout = 5 * time.Second
	}
	return &ContentHub{
		clients: make(map[string]map[*ContentClient]struct{}),
		pending: make(map[string]pendingAck),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// the extension origin is chrome-extension://<id>; sender ids are
			// checked per message instead
			CheckOrigin: func(*http.Request) bool { return true },
		},
		ackTimeout: ackTimeout,
		logger:     logger,
	}
}

// SetInboundHandler must be called before ServeWS
func (h *ContentHub) SetInboundHandler(handler InboundHandler) {
	h.inbound = handler
}

// SetExtensionID sets the sender id ACKs must carry. With no id set every
// ACK is dropped.
func (h *ContentHub) SetExtensionID(id string) {
	h.extensionID = id
}

// ServeWS upgrades the request and attaches the connection to ns
func (h *ContentHub) ServeWS(w http.ResponseWriter, r *http.Request, ns string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	client := NewContentClient(ns, conn, h)
	h.Register(client)
	client.Start()
	return nil
}

func (h *ContentHub) Register(client *ContentClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.Namespace]
	if !ok {
		set = make(map[*ContentClient]struct{})
		h.clients[client.Namespace] = set
	}
	set[client] = struct{}{}
	h.logger.Debug("content script connected", zap.String("namespace", client.Namespace), zap.Int("connections", len(set)))
}

func (h *ContentHub) Unregister(client *ContentClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.Namespace]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.Namespace)
	}
	h.logger.Debug("content script disconnected", zap.String("namespace", client.Namespace))
}

// Connected returns the number of content scripts attached to ns
func (h *ContentHub) Connected(ns string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ns])
}

func (h *ContentHub) snapshot(ns string) []*ContentClient {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*ContentClient, 0, len(h.clients[ns]))
	for c := range h.clients[ns] {
		out = append(out, c)
	}
	return out
}

func newEnvelope(msgType entities.MessageType, payload interface{}) (entities.Message, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return entities.Message{}, nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	msg := entities.Message{
		Type:      msgType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return entities.Message{}, nil, fmt.Errorf("encode %s message: %w", msgType, err)
	}
	return msg, raw, nil
}

func (h *ContentHub) broadcast(ns string, raw []byte) int {
	delivered := 0
	for _, c := range h.snapshot(ns) {
		if c.enqueue(raw) {
			delivered++
		}
	}
	return delivered
}

// NotifySettingsChanged pushes the full document to every tab of ns.
func (h *ContentHub) NotifySettingsChanged(_ context.Context, ns string, settings *entities.Settings) error {
	_, raw, err := newEnvelope(entities.MsgSettingsUpdated, settings)
	if err != nil {
		return err
	}
	if h.broadcast(ns, raw) == 0 {
		return ErrNoContentScript
	}
	return nil
}

// Request sends an action to the content scripts of ns and waits for the
// first ACK.
func (h *ContentHub) Request(ctx context.Context, ns string, msgType entities.MessageType, payload interface{}) (*entities.AckPayload, error) {
	msg, raw, err := newEnvelope(msgType, payload)
	if err != nil {
		return nil, err
	}

	ackCh := make(chan entities.AckPayload, 1)
	h.pendingMu.Lock()
	h.pending[msg.ID] = pendingAck{ns: ns, ch: ackCh}
	h.pendingMu.Unlock()
	defer func() {
		h.pendingMu.Lock()
		delete(h.pending, msg.ID)
		h.pendingMu.Unlock()
	}()

	if h.broadcast(ns, raw) == 0 {
		return nil, ErrNoContentScript
	}

	timer := time.NewTimer(h.ackTimeout)
	defer timer.Stop()

	select {
	case ack := <-ackCh:
		return &ack, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s: no acknowledgment within %s", msgType, h.ackTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleMessage decodes a frame from a content script. ACKs from the
// extension resolve pending requests of the client's namespace; everything
// else goes to the inbound handler.
func (h *ContentHub) HandleMessage(client *ContentClient, raw []byte) {
	var msg entities.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn("dropping malformed content script frame",
			zap.String("namespace", client.Namespace), zap.Error(err))
		return
	}

	if msg.Type == entities.MsgAck {
		if h.extensionID == "" || msg.SenderID != h.extensionID {
			h.logger.Warn("dropping ack from unknown sender",
				zap.String("namespace", client.Namespace), zap.String("sender", msg.SenderID))
			return
		}
		h.resolveAck(client.Namespace, msg)
		return
	}

	if h.inbound == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.inbound.HandleInbound(ctx, client.Namespace, msg); err != nil {
		h.logger.Warn("inbound message rejected",
			zap.String("namespace", client.Namespace),
			zap.String("type", string(msg.Type)),
			zap.Error(err))
	}
}

func (h *ContentHub) resolveAck(ns string, msg entities.Message) {
	var ack entities.AckPayload
	if err := json.Unmarshal(msg.Payload, &ack); err != nil || ack.ReplyTo == "" {
		h.logger.Warn("dropping malformed ack", zap.String("namespace", ns))
		return
	}

	h.pendingMu.Lock()
	p, ok := h.pending[ack.ReplyTo]
	h.pendingMu.Unlock()
	if !ok {
		return
	}
	if p.ns != ns {
		h.logger.Warn("dropping ack for another namespace", zap.String("namespace", ns))
		return
	}
	select {
	case p.ch <- ack:
	default:
	}
}

// Close disconnects every client
func (h *ContentHub) Close() {
	h.mu.RLock()
	var all []*ContentClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.closeConn()
	}
}
