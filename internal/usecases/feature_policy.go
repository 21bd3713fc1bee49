package usecases

import (
	"context"
	"fmt"

	"buzzchat/internal/entities"
)

// ItemKind is a list whose growth is gated by the plan
type ItemKind string

const (
	KindTimer    ItemKind = "timer"
	KindFAQ      ItemKind = "faq"
	KindCommand  ItemKind = "command"
	KindTemplate ItemKind = "template"
)

type kindLimits struct {
	free  int
	pro   int
	label string
}

var itemLimits = map[ItemKind]kindLimits{
	KindTimer:    {free: 10, pro: 10, label: "timers"},
	KindFAQ:      {free: 3, pro: 20, label: "FAQ rules"},
	KindCommand:  {free: 5, pro: 50, label: "commands"},
	KindTemplate: {free: 20, pro: 20, label: "templates"},
}

// Decision is the outcome of a list-growth check
type Decision struct {
	Allowed bool
	Limit   int
	Message string
}

// Limit returns the maximum list length for kind on tier. Unknown kinds
// have no room.
func Limit(tier entities.Tier, kind ItemKind) int {
	l, ok := itemLimits[kind]
	if !ok {
		return 0
	}
	if tier.IsPro() {
		return l.pro
	}
	return l.free
}

// Decide reports whether one more item of kind fits. It has no side effects.
func Decide(tier entities.Tier, kind ItemKind, count int) Decision {
	limit := Limit(tier, kind)
	if count < limit {
		return Decision{Allowed: true, Limit: limit}
	}

	l := itemLimits[kind]
	msg := fmt.Sprintf("Maximum of %d %s reached", limit, l.label)
	if !tier.IsPro() && l.pro > l.free {
		msg = fmt.Sprintf("Free plan allows %d %s. Upgrade to Pro for up to %d!", l.free, l.label, l.pro)
	}
	return Decision{Allowed: false, Limit: limit, Message: msg}
}

// CanAddFeature is always true: feature categories are open to every plan,
// only the item counts inside them differ.
func CanAddFeature(entities.Tier, string) bool {
	return true
}

// CountOf returns the current length of the list gated by kind
func CountOf(s *entities.Settings, kind ItemKind) int {
	switch kind {
	case KindTimer:
		return len(s.Timer.Messages)
	case KindFAQ:
		return len(s.FAQ.Rules)
	case KindCommand:
		return len(s.Commands.List)
	case KindTemplate:
		return len(s.Templates)
	}
	return 0
}

// FeatureGate wraps Decide with its user-facing side effects: a warning
// notice and a tier banner refresh when the answer is no.
type FeatureGate struct {
	refresh func()
}

func NewFeatureGate(refresh func()) *FeatureGate {
	return &FeatureGate{refresh: refresh}
}

func (g *FeatureGate) CanAddItem(s *entities.Settings, kind ItemKind, sink NoticeSink) bool {
	d := Decide(s.Tier, kind, CountOf(s, kind))
	if d.Allowed {
		return true
	}
	warn(sink, d.Message)
	if g != nil && g.refresh != nil {
		g.refresh()
	}
	return false
}

// addItem runs the gate against the current document, then appends under
// the store lock. The count is checked again there since another writer may
// have grown the list in between.
func addItem(ctx context.Context, store *SettingsStore, gate *FeatureGate, kind ItemKind, sink NoticeSink, add func(*entities.Settings)) error {
	if !gate.CanAddItem(store.Snapshot(), kind, sink) {
		return ErrLimitReached
	}
	return store.MutateNow(ctx, func(s *entities.Settings) error {
		if !Decide(s.Tier, kind, CountOf(s, kind)).Allowed {
			return ErrLimitReached
		}
		add(s)
		return nil
	})
}
