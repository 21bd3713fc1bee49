package usecases

import (
	"context"
	"strings"

	"buzzchat/internal/entities"
)

// Free-text setters (messages, replies, names) go through Mutate and are
// persisted after the store's debounce. Toggles and numbers use MutateNow.

// WelcomeService edits the greeting sent to new chatters
type WelcomeService struct {
	store *SettingsStore
}

func NewWelcomeService(store *SettingsStore) *WelcomeService {
	return &WelcomeService{store: store}
}

func (w *WelcomeService) Get() entities.WelcomeSettings {
	return w.store.Snapshot().Welcome
}

func (w *WelcomeService) SetEnabled(ctx context.Context, enabled bool) error {
	return w.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Welcome.Enabled = enabled
		return nil
	})
}

func (w *WelcomeService) SetMessage(sink NoticeSink, message string) error {
	message = Truncate(sink, "Welcome message", message, MaxReplyLength)
	return w.store.Mutate(func(s *entities.Settings) error {
		s.Welcome.Message = message
		return nil
	})
}

// SetDelay stores the delay in seconds; unparsable input becomes the default
func (w *WelcomeService) SetDelay(ctx context.Context, raw string) (int, error) {
	delay := ParseClamped(raw, MinWelcomeDelay, MaxWelcomeDelay, DefaultWelcomeDelay)
	return delay, w.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Welcome.DelaySeconds = delay
		return nil
	})
}

// TimerService edits the timed promotional messages
type TimerService struct {
	store *SettingsStore
	gate  *FeatureGate
}

func NewTimerService(store *SettingsStore, gate *FeatureGate) *TimerService {
	return &TimerService{store: store, gate: gate}
}

func (t *TimerService) List() ListView[entities.TimerMessage] {
	s := t.store.Snapshot()
	return newListView(s.Timer.Messages, "Add a timer to post a message every few minutes", Limit(s.Tier, KindTimer))
}

func (t *TimerService) SetEnabled(ctx context.Context, enabled bool) error {
	return t.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Timer.Enabled = enabled
		return nil
	})
}

// Add appends a default timer if the plan has room
func (t *TimerService) Add(ctx context.Context, sink NoticeSink) error {
	return addItem(ctx, t.store, t.gate, KindTimer, sink, func(s *entities.Settings) {
		s.Timer.Messages = append(s.Timer.Messages, entities.TimerMessage{
			IntervalMinutes: DefaultTimerInterval,
			Enabled:         true,
		})
	})
}

func (t *TimerService) SetText(sink NoticeSink, index int, text string) error {
	text = Truncate(sink, "Timer message", text, MaxReplyLength)
	return t.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Timer.Messages)); err != nil {
			return err
		}
		s.Timer.Messages[index].Text = text
		return nil
	})
}

func (t *TimerService) SetInterval(ctx context.Context, index int, raw string) (int, error) {
	interval := ParseClamped(raw, MinTimerInterval, MaxTimerInterval, DefaultTimerInterval)
	return interval, t.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Timer.Messages)); err != nil {
			return err
		}
		s.Timer.Messages[index].IntervalMinutes = interval
		return nil
	})
}

func (t *TimerService) Toggle(ctx context.Context, index int, enabled bool) error {
	return t.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Timer.Messages)); err != nil {
			return err
		}
		s.Timer.Messages[index].Enabled = enabled
		return nil
	})
}

func (t *TimerService) Delete(ctx context.Context, index int, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}
	return t.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Timer.Messages)); err != nil {
			return err
		}
		s.Timer.Messages = append(s.Timer.Messages[:index], s.Timer.Messages[index+1:]...)
		return nil
	})
}

// FAQService edits keyword-triggered replies
type FAQService struct {
	store *SettingsStore
	gate  *FeatureGate
}

func NewFAQService(store *SettingsStore, gate *FeatureGate) *FAQService {
	return &FAQService{store: store, gate: gate}
}

func (f *FAQService) List() ListView[entities.FaqRule] {
	s := f.store.Snapshot()
	return newListView(s.FAQ.Rules, "Add an FAQ rule to answer common questions automatically", Limit(s.Tier, KindFAQ))
}

func (f *FAQService) SetEnabled(ctx context.Context, enabled bool) error {
	return f.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.FAQ.Enabled = enabled
		return nil
	})
}

// AddRule appends an empty rule. A free plan at 3 rules gets a warning
// notice and ErrLimitReached; the list is left untouched.
func (f *FAQService) AddRule(ctx context.Context, sink NoticeSink) error {
	return addItem(ctx, f.store, f.gate, KindFAQ, sink, func(s *entities.Settings) {
		s.FAQ.Rules = append(s.FAQ.Rules, entities.FaqRule{Triggers: []string{}})
	})
}

// SetTriggers takes the comma separated keyword field as typed
func (f *FAQService) SetTriggers(sink NoticeSink, index int, raw string) ([]string, error) {
	triggers := ParseTriggers(sink, raw)
	return triggers, f.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.FAQ.Rules)); err != nil {
			return err
		}
		s.FAQ.Rules[index].Triggers = triggers
		return nil
	})
}

func (f *FAQService) SetReply(sink NoticeSink, index int, reply string) error {
	reply = Truncate(sink, "Reply", reply, MaxReplyLength)
	return f.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.FAQ.Rules)); err != nil {
			return err
		}
		s.FAQ.Rules[index].Reply = reply
		return nil
	})
}

func (f *FAQService) SetCaseSensitive(ctx context.Context, index int, on bool) error {
	return f.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.FAQ.Rules)); err != nil {
			return err
		}
		s.FAQ.Rules[index].CaseSensitive = on
		return nil
	})
}

func (f *FAQService) Delete(ctx context.Context, index int, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}
	return f.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.FAQ.Rules)); err != nil {
			return err
		}
		s.FAQ.Rules = append(s.FAQ.Rules[:index], s.FAQ.Rules[index+1:]...)
		return nil
	})
}

// FAQPreview is what the content script would answer to a chat line
type FAQPreview struct {
	Reply   string `json:"reply"`
	Matched bool   `json:"matched"`
	Enabled bool   `json:"enabled"`
}

// Preview runs text against the saved rules. It answers even while FAQ
// replies are switched off so rules can be tried before going live.
func (f *FAQService) Preview(text string) FAQPreview {
	s := f.store.Snapshot()
	reply := MatchFAQ(s.FAQ.Rules, text)
	return FAQPreview{Reply: reply, Matched: reply != "", Enabled: s.FAQ.Enabled}
}

// MatchFAQ returns the reply of the first rule with a trigger contained in
// text, or "" when none matches.
func MatchFAQ(rules []entities.FaqRule, text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, trig := range r.Triggers {
			if r.CaseSensitive {
				if strings.Contains(text, trig) {
					return r.Reply
				}
				continue
			}
			if strings.Contains(lower, strings.ToLower(trig)) {
				return r.Reply
			}
		}
	}
	return ""
}

// CommandService edits chat commands. Usage counts belong to the content
// script and are never edited here.
type CommandService struct {
	store *SettingsStore
	gate  *FeatureGate
}

func NewCommandService(store *SettingsStore, gate *FeatureGate) *CommandService {
	return &CommandService{store: store, gate: gate}
}

func (c *CommandService) List() ListView[entities.Command] {
	s := c.store.Snapshot()
	return newListView(s.Commands.List, "Add a command like !shipping for instant answers", Limit(s.Tier, KindCommand))
}

func (c *CommandService) SetEnabled(ctx context.Context, enabled bool) error {
	return c.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Commands.Enabled = enabled
		return nil
	})
}

func (c *CommandService) Add(ctx context.Context, sink NoticeSink) error {
	return addItem(ctx, c.store, c.gate, KindCommand, sink, func(s *entities.Settings) {
		s.Commands.List = append(s.Commands.List, entities.Command{Cooldown: DefaultCooldown})
	})
}

// SetTrigger normalizes on every edit; the stored trigger is what it returns
func (c *CommandService) SetTrigger(index int, raw string) (string, error) {
	trigger := NormalizeTrigger(raw)
	return trigger, c.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Commands.List)); err != nil {
			return err
		}
		s.Commands.List[index].Trigger = trigger
		return nil
	})
}

func (c *CommandService) SetResponse(sink NoticeSink, index int, response string) error {
	response = Truncate(sink, "Command response", response, MaxReplyLength)
	return c.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Commands.List)); err != nil {
			return err
		}
		s.Commands.List[index].Response = response
		return nil
	})
}

func (c *CommandService) SetCooldown(ctx context.Context, index int, raw string) (int, error) {
	cooldown := ParseClamped(raw, MinCooldown, MaxCooldown, DefaultCooldown)
	return cooldown, c.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Commands.List)); err != nil {
			return err
		}
		s.Commands.List[index].Cooldown = cooldown
		return nil
	})
}

func (c *CommandService) Delete(ctx context.Context, index int, conf Confirmation) error {
	if err := requireConfirmation(conf); err != nil {
		return err
	}
	return c.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Commands.List)); err != nil {
			return err
		}
		s.Commands.List = append(s.Commands.List[:index], s.Commands.List[index+1:]...)
		return nil
	})
}

// QuickReplyService edits the one-click reply buttons
type QuickReplyService struct {
	store *SettingsStore
}

func NewQuickReplyService(store *SettingsStore) *QuickReplyService {
	return &QuickReplyService{store: store}
}

func (q *QuickReplyService) List() ListView[entities.QuickReplyButton] {
	s := q.store.Snapshot()
	return newListView(s.QuickReply.Buttons, "Add a quick reply button for answers you type often", MaxQuickReplies)
}

func (q *QuickReplyService) SetEnabled(ctx context.Context, enabled bool) error {
	return q.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.QuickReply.Enabled = enabled
		return nil
	})
}

func (q *QuickReplyService) Add(ctx context.Context, sink NoticeSink, label, text string) error {
	btn := q.clean(sink, label, text)
	return q.store.MutateNow(ctx, func(s *entities.Settings) error {
		if len(s.QuickReply.Buttons) >= MaxQuickReplies {
			warn(sink, "Maximum of 10 quick replies reached")
			return ErrLimitReached
		}
		s.QuickReply.Buttons = append(s.QuickReply.Buttons, btn)
		return nil
	})
}

func (q *QuickReplyService) Update(sink NoticeSink, index int, label, text string) error {
	btn := q.clean(sink, label, text)
	return q.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.QuickReply.Buttons)); err != nil {
			return err
		}
		s.QuickReply.Buttons[index] = btn
		return nil
	})
}

func (q *QuickReplyService) Delete(ctx context.Context, index int, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}
	return q.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.QuickReply.Buttons)); err != nil {
			return err
		}
		s.QuickReply.Buttons = append(s.QuickReply.Buttons[:index], s.QuickReply.Buttons[index+1:]...)
		return nil
	})
}

func (q *QuickReplyService) clean(sink NoticeSink, label, text string) entities.QuickReplyButton {
	return entities.QuickReplyButton{
		Label: Truncate(sink, "Button label", strings.TrimSpace(label), MaxQuickReplyLabel),
		Text:  Truncate(sink, "Button text", text, MaxQuickReplyText),
	}
}
