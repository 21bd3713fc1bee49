package entities

import (
	"encoding/json"
	"fmt"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

// IsPro reports whether the tier unlocks the pro limits (pro and business).
func (t Tier) IsPro() bool {
	return t == TierPro || t == TierBusiness
}

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierBusiness:
		return true
	}
	return false
}

// ParseTier maps unknown values to free
func ParseTier(s string) Tier {
	t := Tier(s)
	if !t.Valid() {
		return TierFree
	}
	return t
}

// Settings is the full configuration document of one account/profile.
type Settings struct {
	Tier          Tier `json:"tier"`
	MessagesUsed  int  `json:"messagesUsed"`
	MessagesLimit int  `json:"messagesLimit"`
	ReferralBonus int  `json:"referralBonus"`
	MasterEnabled bool `json:"masterEnabled"`

	Welcome          WelcomeSettings          `json:"welcome"`
	Timer            TimerSettings            `json:"timer"`
	FAQ              FAQSettings              `json:"faq"`
	Moderation       ModerationSettings       `json:"moderation"`
	Giveaway         GiveawaySettings         `json:"giveaway"`
	Commands         CommandSettings          `json:"commands"`
	QuickReply       QuickReplySettings       `json:"quickReply"`
	Inventory        InventorySettings        `json:"inventory"`
	Translation      TranslationSettings      `json:"translation"`
	SoldOutAnnouncer SoldOutAnnouncerSettings `json:"soldOutAnnouncer"`

	Templates   []Template  `json:"templates"`
	Preferences Preferences `json:"settings"`
}

type WelcomeSettings struct {
	Enabled      bool   `json:"enabled"`
	Message      string `json:"message"`
	DelaySeconds int    `json:"delay"`
}

type TimerMessage struct {
	Text            string `json:"text"`
	IntervalMinutes int    `json:"interval"`
	Enabled         bool   `json:"enabled"`
}

type TimerSettings struct {
	Enabled  bool           `json:"enabled"`
	Messages []TimerMessage `json:"messages"`
}

type FaqRule struct {
	Triggers      []string `json:"triggers"`
	Reply         string   `json:"reply"`
	CaseSensitive bool     `json:"caseSensitive"`
}

type FAQSettings struct {
	Enabled bool      `json:"enabled"`
	Rules   []FaqRule `json:"rules"`
}

type ModerationSettings struct {
	Enabled       bool     `json:"enabled"`
	BlockedWords  []string `json:"blockedWords"`
	BlockLinks    bool     `json:"blockLinks"`
	BlockCaps     bool     `json:"blockCaps"`
	CapsThreshold int      `json:"capsThreshold"`
}

type GiveawaySettings struct {
	Enabled    bool   `json:"enabled"`
	Keyword    string `json:"keyword"`
	UniqueOnly bool   `json:"uniqueOnly"`
}

// Command is a chat command. UsageCount is owned by the content script and
// only ever grows.
type Command struct {
	Trigger    string `json:"trigger"`
	Response   string `json:"response"`
	Cooldown   int    `json:"cooldown"`
	UsageCount int    `json:"usageCount"`
}

type CommandSettings struct {
	Enabled bool      `json:"enabled"`
	List    []Command `json:"list"`
}

type QuickReplyButton struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

type QuickReplySettings struct {
	Enabled bool               `json:"enabled"`
	Buttons []QuickReplyButton `json:"buttons"`
}

type InventoryItem struct {
	SKU      string   `json:"sku"`
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Waitlist []string `json:"waitlist"`
}

// SoldOut reports whether the item has no stock left
func (i InventoryItem) SoldOut() bool {
	return i.Quantity <= 0
}

type InventorySettings struct {
	Enabled bool            `json:"enabled"`
	Items   []InventoryItem `json:"items"`
}

type TranslationSettings struct {
	Enabled        bool   `json:"enabled"`
	TargetLanguage string `json:"targetLanguage"`
	AutoDetect     bool   `json:"autoDetect"`
}

type SoldOutAnnouncerSettings struct {
	Enabled         bool   `json:"enabled"`
	Message         string `json:"message"`
	WaitlistEnabled bool   `json:"waitlistEnabled"`
}

type Template struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Preferences is the cross-cutting UI bag stored under "settings".
type Preferences struct {
	ChatSelector     string `json:"chatSelector"`
	SoundEnabled     bool   `json:"soundEnabled"`
	DarkMode         bool   `json:"darkMode"`
	WatermarkEnabled bool   `json:"watermark"`
}

// DefaultSettings returns the document a fresh install starts with
func DefaultSettings() *Settings {
	return &Settings{
		Tier:          TierFree,
		MessagesLimit: 50,
		MasterEnabled: true,
		Welcome: WelcomeSettings{
			Message:      "Welcome to the stream, {username}! 👋",
			DelaySeconds: 5,
		},
		Timer:      TimerSettings{Messages: []TimerMessage{}},
		FAQ:        FAQSettings{Rules: []FaqRule{}},
		Moderation: ModerationSettings{BlockedWords: []string{}, CapsThreshold: 70},
		Giveaway:   GiveawaySettings{Keyword: "enter", UniqueOnly: true},
		Commands:   CommandSettings{List: []Command{}},
		QuickReply: QuickReplySettings{Buttons: []QuickReplyButton{}},
		Inventory:  InventorySettings{Items: []InventoryItem{}},
		Translation: TranslationSettings{
			TargetLanguage: "en",
		},
		SoldOutAnnouncer: SoldOutAnnouncerSettings{
			Message: "{item} is SOLD OUT! Type !waitlist to get notified.",
		},
		Templates:   []Template{},
		Preferences: Preferences{SoundEnabled: true, WatermarkEnabled: true},
	}
}

// Clone returns a deep copy of the document
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		// Settings contains only JSON-safe fields
		panic(fmt.Sprintf("clone settings: %v", err))
	}
	out := &Settings{}
	if err := json.Unmarshal(raw, out); err != nil {
		panic(fmt.Sprintf("clone settings: %v", err))
	}
	return out
}

// Normalize replaces nil collections with empty ones so that list views and
// JSON output never see null.
func (s *Settings) Normalize() {
	if !s.Tier.Valid() {
		s.Tier = TierFree
	}
	if s.Timer.Messages == nil {
		s.Timer.Messages = []TimerMessage{}
	}
	if s.FAQ.Rules == nil {
		s.FAQ.Rules = []FaqRule{}
	}
	for i := range s.FAQ.Rules {
		if s.FAQ.Rules[i].Triggers == nil {
			s.FAQ.Rules[i].Triggers = []string{}
		}
	}
	if s.Moderation.BlockedWords == nil {
		s.Moderation.BlockedWords = []string{}
	}
	if s.Commands.List == nil {
		s.Commands.List = []Command{}
	}
	if s.QuickReply.Buttons == nil {
		s.QuickReply.Buttons = []QuickReplyButton{}
	}
	if s.Inventory.Items == nil {
		s.Inventory.Items = []InventoryItem{}
	}
	for i := range s.Inventory.Items {
		if s.Inventory.Items[i].Waitlist == nil {
			s.Inventory.Items[i].Waitlist = []string{}
		}
	}
	if s.Templates == nil {
		s.Templates = []Template{}
	}
}
