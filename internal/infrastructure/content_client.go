package infrastructure

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// ContentClient is one connected content script (one browser tab).
type ContentClient struct {
	Namespace string
	Conn      *websocket.Conn
	Send      chan []byte
	Done      chan struct{}

	hub            *ContentHub
	unregisterOnce sync.Once
	closeOnce      sync.Once
}

func NewContentClient(ns string, conn *websocket.Conn, h *ContentHub) *ContentClient {
	return &ContentClient{
		Namespace: ns,
		Conn:      conn,
		Send:      make(chan []byte, sendBuffer),
		Done:      make(chan struct{}),
		hub:       h,
	}
}

func (c *ContentClient) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *ContentClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.unregister()
	defer c.closeConn()

	for {
		select {
		case <-c.Done:
			return
		case message := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *ContentClient) readPump() {
	defer c.unregister()
	defer c.closeConn()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.hub.HandleMessage(c, message)
	}
}

// enqueue never blocks; a full buffer drops the message
func (c *ContentClient) enqueue(payload []byte) bool {
	select {
	case <-c.Done:
		return false
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

func (c *ContentClient) unregister() {
	c.unregisterOnce.Do(func() {
		if c.hub != nil {
			c.hub.Unregister(c)
		}
	})
}

func (c *ContentClient) closeConn() {
	c.closeOnce.Do(func() {
		close(c.Done)
		_ = c.Conn.Close()
	})
}
