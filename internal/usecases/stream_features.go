package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"buzzchat/internal/entities"
	"buzzchat/internal/interfaces"
	"buzzchat/internal/repository"
)

// ModerationService edits the chat filters
type ModerationService struct {
	store *SettingsStore
}

func NewModerationService(store *SettingsStore) *ModerationService {
	return &ModerationService{store: store}
}

func (m *ModerationService) Get() entities.ModerationSettings {
	return m.store.Snapshot().Moderation
}

// ModerationToggles is a partial update of the boolean switches; nil fields
// are left alone.
type ModerationToggles struct {
	Enabled    *bool `json:"enabled"`
	BlockLinks *bool `json:"blockLinks"`
	BlockCaps  *bool `json:"blockCaps"`
}

func (m *ModerationService) SetToggles(ctx context.Context, t ModerationToggles) error {
	return m.store.MutateNow(ctx, func(s *entities.Settings) error {
		if t.Enabled != nil {
			s.Moderation.Enabled = *t.Enabled
		}
		if t.BlockLinks != nil {
			s.Moderation.BlockLinks = *t.BlockLinks
		}
		if t.BlockCaps != nil {
			s.Moderation.BlockCaps = *t.BlockCaps
		}
		return nil
	})
}

func (m *ModerationService) SetCapsThreshold(ctx context.Context, raw string) (int, error) {
	threshold := ParseClamped(raw, MinCapsThreshold, MaxCapsThreshold, DefaultCapsThreshold)
	return threshold, m.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Moderation.CapsThreshold = threshold
		return nil
	})
}

// SetBlockedWords takes the comma separated word field as typed. Words are
// lowercased and deduplicated; at most MaxBlockedWords are kept.
func (m *ModerationService) SetBlockedWords(sink NoticeSink, raw string) ([]string, error) {
	seen := map[string]struct{}{}
	words := []string{}
	for _, w := range strings.Split(raw, ",") {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if len(words) > MaxBlockedWords {
		warn(sink, fmt.Sprintf("Only the first %d blocked words are kept", MaxBlockedWords))
		words = words[:MaxBlockedWords]
	}
	return words, m.store.Mutate(func(s *entities.Settings) error {
		s.Moderation.BlockedWords = words
		return nil
	})
}

// GiveawayService edits the giveaway keyword and resets entries
type GiveawayService struct {
	store    *SettingsStore
	audience *repository.AudienceRepository
	notifier interfaces.ContentNotifier
}

func NewGiveawayService(store *SettingsStore, audience *repository.AudienceRepository, notifier interfaces.ContentNotifier) *GiveawayService {
	return &GiveawayService{store: store, audience: audience, notifier: notifier}
}

func (g *GiveawayService) Get() entities.GiveawaySettings {
	return g.store.Snapshot().Giveaway
}

func (g *GiveawayService) SetEnabled(ctx context.Context, enabled bool) error {
	return g.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Giveaway.Enabled = enabled
		return nil
	})
}

func (g *GiveawayService) SetUniqueOnly(ctx context.Context, on bool) error {
	return g.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Giveaway.UniqueOnly = on
		return nil
	})
}

// SetKeyword normalizes like a command trigger; an empty result keeps the
// default keyword.
func (g *GiveawayService) SetKeyword(raw string) (string, error) {
	keyword := NormalizeTrigger(raw)
	if keyword == "" {
		keyword = entities.DefaultSettings().Giveaway.Keyword
	}
	return keyword, g.store.Mutate(func(s *entities.Settings) error {
		s.Giveaway.Keyword = keyword
		return nil
	})
}

func (g *GiveawayService) Entries(ctx context.Context) ([]repository.GiveawayEntry, error) {
	return g.audience.GiveawayEntries(ctx)
}

// Reset clears the stored entries and asks the content script to clear its
// own. The content script not being there is not an error.
func (g *GiveawayService) Reset(ctx context.Context, sink NoticeSink, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}
	if err := g.audience.ResetGiveawayEntries(ctx); err != nil {
		return err
	}
	if g.notifier == nil {
		return nil
	}
	ack, err := g.notifier.Request(ctx, g.store.Namespace(), entities.MsgResetGiveaway, struct{}{})
	switch {
	case err != nil:
		info(sink, "Entries cleared. Open the stream page to reset the live counter.")
	case !ack.Success:
		warn(sink, "The stream page could not reset its entries: "+ack.Error)
	}
	return nil
}

// TranslationLanguages are the target languages the content script supports
var TranslationLanguages = []string{"en", "es", "fr", "de", "pt", "it", "ja", "ko", "zh", "ar", "hi", "ru", "id", "vi", "th", "tl"}

// TranslationService edits auto-translation
type TranslationService struct {
	store *SettingsStore
}

func NewTranslationService(store *SettingsStore) *TranslationService {
	return &TranslationService{store: store}
}

func (t *TranslationService) Get() entities.TranslationSettings {
	return t.store.Snapshot().Translation
}

func (t *TranslationService) SetEnabled(ctx context.Context, enabled, autoDetect bool) error {
	return t.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Translation.Enabled = enabled
		s.Translation.AutoDetect = autoDetect
		return nil
	})
}

// SetTargetLanguage falls back to "en" for codes outside the supported list
func (t *TranslationService) SetTargetLanguage(ctx context.Context, sink NoticeSink, code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !supportedLanguage(code) {
		warn(sink, fmt.Sprintf("Language %q is not supported, using English", code))
		code = "en"
	}
	return code, t.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Translation.TargetLanguage = code
		return nil
	})
}

func supportedLanguage(code string) bool {
	for _, l := range TranslationLanguages {
		if l == code {
			return true
		}
	}
	return false
}

// GeneralService covers the master switch and the preferences bag
type GeneralService struct {
	store *SettingsStore
}

func NewGeneralService(store *SettingsStore) *GeneralService {
	return &GeneralService{store: store}
}

func (g *GeneralService) SetMasterEnabled(ctx context.Context, enabled bool) error {
	return g.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.MasterEnabled = enabled
		return nil
	})
}

func (g *GeneralService) Preferences() entities.Preferences {
	return g.store.Snapshot().Preferences
}

func (g *GeneralService) SetPreferences(ctx context.Context, sink NoticeSink, p entities.Preferences) error {
	p.ChatSelector = Truncate(sink, "Chat selector", strings.TrimSpace(p.ChatSelector), MaxReplyLength)
	return g.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Preferences = p
		return nil
	})
}

// TemplateService edits saved message templates and sends them on demand
type TemplateService struct {
	store    *SettingsStore
	gate     *FeatureGate
	notifier interfaces.ContentNotifier
}

func NewTemplateService(store *SettingsStore, gate *FeatureGate, notifier interfaces.ContentNotifier) *TemplateService {
	return &TemplateService{store: store, gate: gate, notifier: notifier}
}

func (t *TemplateService) List() ListView[entities.Template] {
	s := t.store.Snapshot()
	return newListView(s.Templates, "Save a template for messages you post every stream", Limit(s.Tier, KindTemplate))
}

func (t *TemplateService) Add(ctx context.Context, sink NoticeSink, name, text string) error {
	tpl := entities.Template{
		Name: Truncate(sink, "Template name", strings.TrimSpace(name), MaxTemplateNameLength),
		Text: Truncate(sink, "Template text", text, MaxReplyLength),
	}
	if tpl.Name == "" {
		tpl.Name = "Untitled"
	}
	return addItem(ctx, t.store, t.gate, KindTemplate, sink, func(s *entities.Settings) {
		s.Templates = append(s.Templates, tpl)
	})
}

func (t *TemplateService) SetName(sink NoticeSink, index int, name string) error {
	name = Truncate(sink, "Template name", strings.TrimSpace(name), MaxTemplateNameLength)
	return t.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Templates)); err != nil {
			return err
		}
		s.Templates[index].Name = name
		return nil
	})
}

func (t *TemplateService) SetText(sink NoticeSink, index int, text string) error {
	text = Truncate(sink, "Template text", text, MaxReplyLength)
	return t.store.Mutate(func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Templates)); err != nil {
			return err
		}
		s.Templates[index].Text = text
		return nil
	})
}

func (t *TemplateService) Delete(ctx context.Context, index int, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}
	return t.store.MutateNow(ctx, func(s *entities.Settings) error {
		if err := checkIndex(index, len(s.Templates)); err != nil {
			return err
		}
		s.Templates = append(s.Templates[:index], s.Templates[index+1:]...)
		return nil
	})
}

// Send asks the content script to post the template into the chat now
func (t *TemplateService) Send(ctx context.Context, sink NoticeSink, index int) error {
	s := t.store.Snapshot()
	if err := checkIndex(index, len(s.Templates)); err != nil {
		return err
	}
	text := strings.TrimSpace(s.Templates[index].Text)
	if text == "" {
		warn(sink, "Template is empty")
		return ErrInvalidInput
	}
	if t.notifier == nil {
		return ErrNoContentScript
	}
	ack, err := t.notifier.Request(ctx, t.store.Namespace(), entities.MsgSendTemplate, entities.SendTemplatePayload{Text: text})
	if err != nil {
		warn(sink, "Open your stream page to send templates")
		return fmt.Errorf("%w: %v", ErrNoContentScript, err)
	}
	if !ack.Success {
		warn(sink, "Template not sent: "+ack.Error)
		return fmt.Errorf("%w: %s", ErrNoContentScript, ack.Error)
	}
	success(sink, "Template sent")
	return nil
}

// InventoryService tracks stock and the sold-out announcer
type InventoryService struct {
	store *SettingsStore
	alert *AlertService
}

func NewInventoryService(store *SettingsStore, alert *AlertService) *InventoryService {
	return &InventoryService{store: store, alert: alert}
}

// InventoryRow is an item plus its derived sold-out flag
type InventoryRow struct {
	entities.InventoryItem
	SoldOut bool `json:"soldOut"`
}

func (i *InventoryService) List() ListView[InventoryRow] {
	s := i.store.Snapshot()
	rows := make([]InventoryRow, 0, len(s.Inventory.Items))
	for _, it := range s.Inventory.Items {
		rows = append(rows, InventoryRow{InventoryItem: it, SoldOut: it.SoldOut()})
	}
	return newListView(rows, "Add your first product to track stock while you sell", 0)
}

func (i *InventoryService) SetEnabled(ctx context.Context, enabled bool) error {
	return i.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.Inventory.Enabled = enabled
		return nil
	})
}

// Add appends an item. The SKU is normalized like a trigger and must be
// unique; an empty SKU is derived from the name.
func (i *InventoryService) Add(ctx context.Context, sink NoticeSink, sku, name string, quantity int, price float64) (entities.InventoryItem, error) {
	item := entities.InventoryItem{
		SKU:      NormalizeTrigger(sku),
		Name:     Truncate(sink, "Item name", strings.TrimSpace(name), MaxInventoryNameLength),
		Quantity: Clamp(quantity, MinQuantity, MaxQuantity),
		Price:    price,
		Waitlist: []string{},
	}
	if item.SKU == "" {
		item.SKU = NormalizeTrigger(item.Name)
	}
	if item.SKU == "" || item.Name == "" || price < 0 {
		return entities.InventoryItem{}, ErrInvalidInput
	}
	err := i.store.MutateNow(ctx, func(s *entities.Settings) error {
		if findItem(s, item.SKU) >= 0 {
			warn(sink, fmt.Sprintf("An item with SKU %q already exists", item.SKU))
			return ErrInvalidInput
		}
		s.Inventory.Items = append(s.Inventory.Items, item)
		return nil
	})
	return item, err
}

// AdjustQuantity adds delta to the stock. Crossing zero triggers the sold-out
// alert; restocking an item with a waitlist reports who is waiting.
func (i *InventoryService) AdjustQuantity(ctx context.Context, sink NoticeSink, sku string, delta int) (entities.InventoryItem, error) {
	var before, after entities.InventoryItem
	err := i.store.MutateNow(ctx, func(s *entities.Settings) error {
		idx := findItem(s, sku)
		if idx < 0 {
			return repository.ErrNotFound
		}
		before = s.Inventory.Items[idx]
		s.Inventory.Items[idx].Quantity = Clamp(before.Quantity+delta, MinQuantity, MaxQuantity)
		after = s.Inventory.Items[idx]
		return nil
	})
	if err != nil {
		return entities.InventoryItem{}, err
	}

	switch {
	case !before.SoldOut() && after.SoldOut():
		warn(sink, fmt.Sprintf("%s is sold out", after.Name))
		i.announceSoldOut(after)
	case before.SoldOut() && !after.SoldOut() && len(after.Waitlist) > 0:
		info(sink, fmt.Sprintf("%s is back in stock. %d people are waiting: %s",
			after.Name, len(after.Waitlist), strings.Join(after.Waitlist, ", ")))
	}
	return after, nil
}

// JoinWaitlist adds username to a sold-out item's waitlist
func (i *InventoryService) JoinWaitlist(ctx context.Context, sku, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidInput
	}
	return i.store.MutateNow(ctx, func(s *entities.Settings) error {
		if !s.SoldOutAnnouncer.WaitlistEnabled {
			return ErrInvalidInput
		}
		idx := findItem(s, sku)
		if idx < 0 {
			return repository.ErrNotFound
		}
		it := &s.Inventory.Items[idx]
		if !it.SoldOut() {
			return ErrInvalidInput
		}
		for _, u := range it.Waitlist {
			if strings.EqualFold(u, username) {
				return nil
			}
		}
		it.Waitlist = append(it.Waitlist, username)
		return nil
	})
}

func (i *InventoryService) Delete(ctx context.Context, sku string, c Confirmation) error {
	if err := requireConfirmation(c); err != nil {
		return err
	}
	return i.store.MutateNow(ctx, func(s *entities.Settings) error {
		idx := findItem(s, sku)
		if idx < 0 {
			return repository.ErrNotFound
		}
		s.Inventory.Items = append(s.Inventory.Items[:idx], s.Inventory.Items[idx+1:]...)
		return nil
	})
}

// SetAnnouncer edits the sold-out announcer
func (i *InventoryService) SetAnnouncer(ctx context.Context, sink NoticeSink, a entities.SoldOutAnnouncerSettings) error {
	a.Message = Truncate(sink, "Sold-out message", a.Message, MaxReplyLength)
	if strings.TrimSpace(a.Message) == "" {
		a.Message = entities.DefaultSettings().SoldOutAnnouncer.Message
	}
	return i.store.MutateNow(ctx, func(s *entities.Settings) error {
		s.SoldOutAnnouncer = a
		return nil
	})
}

// SoldOut returns the names of sold-out items, sorted
func (i *InventoryService) SoldOut() []string {
	s := i.store.Snapshot()
	var out []string
	for _, it := range s.Inventory.Items {
		if it.SoldOut() {
			out = append(out, it.Name)
		}
	}
	sort.Strings(out)
	return out
}

func (i *InventoryService) announceSoldOut(item entities.InventoryItem) {
	s := i.store.Snapshot()
	if !s.SoldOutAnnouncer.Enabled || i.alert == nil {
		return
	}
	i.alert.Send(strings.ReplaceAll(s.SoldOutAnnouncer.Message, "{item}", item.Name))
}

func findItem(s *entities.Settings, sku string) int {
	sku = NormalizeTrigger(sku)
	for idx, it := range s.Inventory.Items {
		if it.SKU == sku {
			return idx
		}
	}
	return -1
}
