package entities

import (
	"encoding/json"
	"time"
)

type MessageType string

// Outbound (service → content script)
const (
	MsgSettingsUpdated MessageType = "SETTINGS_UPDATED"
	MsgSendTemplate    MessageType = "SEND_TEMPLATE"
	MsgResetGiveaway   MessageType = "RESET_GIVEAWAY"
)

// Inbound (content script → service)
const (
	MsgMessageSent   MessageType = "MESSAGE_SENT"
	MsgCommandUsed   MessageType = "COMMAND_USED"
	MsgGiveawayEntry MessageType = "GIVEAWAY_ENTRY"
	MsgChatMetrics   MessageType = "CHAT_METRICS"
	MsgAck           MessageType = "ACK"
)

// Message is the envelope exchanged with the content script
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	SenderID  string          `json:"senderId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type AckPayload struct {
	ReplyTo string `json:"replyTo"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type SendTemplatePayload struct {
	Text string `json:"text"`
}

type CommandUsedPayload struct {
	Trigger    string `json:"trigger"`
	UsageCount int    `json:"usageCount,omitempty"`
}

type GiveawayEntryPayload struct {
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type ChatMetricsPayload struct {
	ViewerCount    int     `json:"viewerCount"`
	MessagesPerMin float64 `json:"messagesPerMinute"`
	UniqueChatters int     `json:"uniqueChatters"`
	Platform       string  `json:"platform,omitempty"`
}

type MessageSentPayload struct {
	Kind     string `json:"kind,omitempty"` // welcome, faq, timer, command...
	Username string `json:"username,omitempty"`
}
