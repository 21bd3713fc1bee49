package usecases

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"buzzchat/internal/entities"
	"buzzchat/internal/repository"
)

const (
	ExportVersion  = 1
	MaxImportBytes = 1 << 20
	MaxImportDepth = 10
)

// keys that must never appear anywhere in an imported document
var forbiddenImportKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// top-level fields never taken from a file: plan and usage belong to the
// live document
var protectedImportKeys = map[string]struct{}{
	"tier":          {},
	"messagesUsed":  {},
	"messagesLimit": {},
	"referralBonus": {},
}

// SettingsExport is the file written by ExportSettings
type SettingsExport struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Settings   *entities.Settings `json:"settings"`
}

// ImportExportService moves settings and command lists in and out of files
type ImportExportService struct {
	store    *SettingsStore
	usage    *repository.UsageRepository
	audience *repository.AudienceRepository
	now      func() time.Time
}

func NewImportExportService(store *SettingsStore, usage *repository.UsageRepository, audience *repository.AudienceRepository) *ImportExportService {
	return &ImportExportService{store: store, usage: usage, audience: audience, now: time.Now}
}

// ExportSettings returns the current document as indented JSON
func (s *ImportExportService) ExportSettings() ([]byte, error) {
	return json.MarshalIndent(SettingsExport{
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Settings:   s.store.Snapshot(),
	}, "", "  ")
}

// checkImportShape walks a decoded document and rejects it if it is nested
// deeper than MaxImportDepth or carries a forbidden key at any level.
func checkImportShape(v interface{}, depth int) error {
	if depth > MaxImportDepth {
		return fmt.Errorf("%w: nested deeper than %d levels", ErrImportRejected, MaxImportDepth)
	}
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			if _, bad := forbiddenImportKeys[k]; bad {
				return fmt.Errorf("%w: forbidden key %q", ErrImportRejected, k)
			}
			if err := checkImportShape(child, depth+1); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, child := range t {
			if err := checkImportShape(child, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeImport(raw []byte) (interface{}, error) {
	if len(raw) > MaxImportBytes {
		return nil, fmt.Errorf("%w: file larger than %d bytes", ErrImportRejected, MaxImportBytes)
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportRejected, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrImportRejected)
	}
	if err := checkImportShape(doc, 1); err != nil {
		return nil, err
	}
	return doc, nil
}

// filterImport keeps only keys the settings document knows about. Feature
// objects are filtered one level down against the default document.
func filterImport(doc map[string]interface{}) (map[string]interface{}, int, error) {
	known, err := entities.DefaultSettings().ToMap()
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string]interface{}, len(doc))
	dropped := 0
	for k, v := range doc {
		def, ok := known[k]
		if _, protected := protectedImportKeys[k]; !ok || protected {
			dropped++
			continue
		}
		defObj, isObj := def.(map[string]interface{})
		if !isObj {
			out[k] = v
			continue
		}
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q must be an object", ErrImportRejected, k)
		}
		kept := make(map[string]interface{}, len(obj))
		for sk, sv := range obj {
			if _, ok := defObj[sk]; !ok {
				dropped++
				continue
			}
			kept[sk] = sv
		}
		out[k] = kept
	}
	return out, dropped, nil
}

// ImportSettings validates a settings file and replaces the live document
// with it. A file that fails validation changes nothing.
func (s *ImportExportService) ImportSettings(ctx context.Context, sink NoticeSink, raw []byte) (*entities.Settings, error) {
	doc, err := decodeImport(raw)
	if err != nil {
		return nil, err
	}
	top, ok := doc.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrImportRejected)
	}
	// accept both an export envelope and a bare settings document
	if inner, ok := top["settings"].(map[string]interface{}); ok {
		if _, versioned := top["version"]; versioned {
			top = inner
		}
	}

	filtered, dropped, err := filterImport(top)
	if err != nil {
		return nil, err
	}
	imported, err := entities.SettingsFromMap(filtered)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportRejected, err)
	}

	live := s.store.Snapshot()
	imported.Tier = live.Tier
	imported.MessagesUsed = live.MessagesUsed
	imported.MessagesLimit = live.MessagesLimit
	imported.ReferralBonus = live.ReferralBonus
	sanitizeImported(sink, imported)

	if dropped > 0 {
		info(sink, fmt.Sprintf("%d unrecognised settings were ignored", dropped))
	}
	if err := s.store.Replace(ctx, imported); err != nil {
		return nil, err
	}
	success(sink, "Settings imported")
	return s.store.Snapshot(), nil
}

// sanitizeImported applies the same limits the editors enforce, since a file
// bypasses them. Lists longer than the plan allows are cut.
func sanitizeImported(sink NoticeSink, st *entities.Settings) {
	clampList := func(kind ItemKind, n int) int {
		limit := Limit(st.Tier, kind)
		if n > limit {
			warn(sink, Decide(st.Tier, kind, limit).Message)
			return limit
		}
		return n
	}
	st.Timer.Messages = st.Timer.Messages[:clampList(KindTimer, len(st.Timer.Messages))]
	st.FAQ.Rules = st.FAQ.Rules[:clampList(KindFAQ, len(st.FAQ.Rules))]
	st.Commands.List = st.Commands.List[:clampList(KindCommand, len(st.Commands.List))]
	st.Templates = st.Templates[:clampList(KindTemplate, len(st.Templates))]
	if len(st.QuickReply.Buttons) > MaxQuickReplies {
		st.QuickReply.Buttons = st.QuickReply.Buttons[:MaxQuickReplies]
	}
	if len(st.Moderation.BlockedWords) > MaxBlockedWords {
		st.Moderation.BlockedWords = st.Moderation.BlockedWords[:MaxBlockedWords]
	}

	st.Welcome.Message = Truncate(sink, "Welcome message", st.Welcome.Message, MaxReplyLength)
	st.Welcome.DelaySeconds = Clamp(st.Welcome.DelaySeconds, MinWelcomeDelay, MaxWelcomeDelay)
	st.Moderation.CapsThreshold = Clamp(st.Moderation.CapsThreshold, MinCapsThreshold, MaxCapsThreshold)
	for i := range st.Timer.Messages {
		m := &st.Timer.Messages[i]
		m.Text = Truncate(sink, "Timer message", m.Text, MaxReplyLength)
		m.IntervalMinutes = Clamp(m.IntervalMinutes, MinTimerInterval, MaxTimerInterval)
	}
	for i := range st.FAQ.Rules {
		r := &st.FAQ.Rules[i]
		r.Triggers = CleanTriggers(sink, r.Triggers)
		r.Reply = Truncate(sink, "Reply", r.Reply, MaxReplyLength)
	}
	for i := range st.Commands.List {
		c := &st.Commands.List[i]
		c.Trigger = NormalizeTrigger(c.Trigger)
		c.Response = Truncate(sink, "Command response", c.Response, MaxReplyLength)
		c.Cooldown = Clamp(c.Cooldown, MinCooldown, MaxCooldown)
		if c.UsageCount < 0 {
			c.UsageCount = 0
		}
	}
	for i := range st.Templates {
		t := &st.Templates[i]
		t.Name = Truncate(sink, "Template name", t.Name, MaxTemplateNameLength)
		t.Text = Truncate(sink, "Template text", t.Text, MaxReplyLength)
	}
	for i := range st.Inventory.Items {
		it := &st.Inventory.Items[i]
		it.Quantity = Clamp(it.Quantity, MinQuantity, MaxQuantity)
		if it.Waitlist == nil {
			it.Waitlist = []string{}
		}
	}
	if !supportedLanguage(st.Translation.TargetLanguage) {
		st.Translation.TargetLanguage = "en"
	}
}

// importedCommand reads one row of a command list file. Fields of the wrong
// type read as empty.
func importedCommand(row interface{}) (trigger, response string, cooldown int) {
	obj, _ := row.(map[string]interface{})
	trigger, _ = obj["trigger"].(string)
	response, _ = obj["response"].(string)
	return trigger, response, cooldownValue(obj["cooldown"])
}

// cooldownValue accepts a number or a numeric string. Anything else gives
// DefaultCooldown.
func cooldownValue(v interface{}) int {
	switch c := v.(type) {
	case float64:
		return ClampNumber(c, MinCooldown, MaxCooldown)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsNaN(f) {
			return DefaultCooldown
		}
		return ClampNumber(f, MinCooldown, MaxCooldown)
	default:
		return DefaultCooldown
	}
}

// ImportCommands merges a command list file into the live commands. Triggers
// are normalized, cooldowns clamped and usage counts start at zero. A
// cooldown may be a number or a numeric string; other values fall back to
// the default. A command whose trigger already exists is updated in place
// and keeps its count. Rows without a text trigger or response are skipped,
// as are new rows beyond the plan's limit.
func (s *ImportExportService) ImportCommands(ctx context.Context, sink NoticeSink, raw []byte) (int, error) {
	doc, err := decodeImport(raw)
	if err != nil {
		return 0, err
	}
	rows, ok := doc.([]interface{})
	if !ok {
		return 0, fmt.Errorf("%w: expected a JSON array of commands", ErrImportRejected)
	}

	skipped, limited, imported := 0, 0, 0
	err = s.store.MutateNow(ctx, func(st *entities.Settings) error {
		for _, row := range rows {
			trigger, response, cooldown := importedCommand(row)
			cmd := entities.Command{
				Trigger:  NormalizeTrigger(trigger),
				Response: Truncate(sink, "Command response", response, MaxReplyLength),
				Cooldown: cooldown,
			}
			if cmd.Trigger == "" || cmd.Response == "" {
				skipped++
				continue
			}

			if idx := findCommand(st, cmd.Trigger); idx >= 0 {
				cmd.UsageCount = st.Commands.List[idx].UsageCount
				st.Commands.List[idx] = cmd
				imported++
				continue
			}
			if !Decide(st.Tier, KindCommand, len(st.Commands.List)).Allowed {
				limited++
				continue
			}
			st.Commands.List = append(st.Commands.List, cmd)
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if skipped > 0 {
		warn(sink, fmt.Sprintf("%d commands without a trigger or response were skipped", skipped))
	}
	if limited > 0 {
		tier := s.store.Snapshot().Tier
		warn(sink, Decide(tier, KindCommand, Limit(tier, KindCommand)).Message)
	}
	success(sink, fmt.Sprintf("Imported %d commands", imported))
	return imported, nil
}

// ExportCommands returns the command list as JSON, usage counts included
func (s *ImportExportService) ExportCommands() ([]byte, error) {
	return json.MarshalIndent(s.store.Snapshot().Commands.List, "", "  ")
}

func findCommand(st *entities.Settings, trigger string) int {
	for i, c := range st.Commands.List {
		if c.Trigger == trigger {
			return i
		}
	}
	return -1
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// ExportAnalyticsCSV writes the daily usage of the last days days
func (s *ImportExportService) ExportAnalyticsCSV(ctx context.Context, w io.Writer, days int) error {
	history, err := s.usage.GetUsageHistory(ctx, days)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(history))
	for _, d := range history {
		rows = append(rows, []string{
			d.Date,
			strconv.Itoa(d.MessagesSent),
			strconv.Itoa(d.CommandsUsed),
			strconv.Itoa(d.GiveawayEntries),
		})
	}
	return writeCSV(w, []string{"date", "messagesSent", "commandsUsed", "giveawayEntries"}, rows)
}

func (s *ImportExportService) ExportBuyersCSV(ctx context.Context, w io.Writer) error {
	buyers, err := s.audience.Buyers(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(buyers))
	for _, b := range buyers {
		rows = append(rows, []string{
			b.Username,
			formatMillis(b.FirstSeen),
			formatMillis(b.LastSeen),
			strconv.Itoa(b.Purchases),
		})
	}
	return writeCSV(w, []string{"username", "firstSeen", "lastSeen", "purchases"}, rows)
}

func (s *ImportExportService) ExportInventoryCSV(w io.Writer) error {
	items := s.store.Snapshot().Inventory.Items
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.SKU,
			it.Name,
			strconv.Itoa(it.Quantity),
			strconv.FormatFloat(it.Price, 'f', 2, 64),
			strconv.FormatBool(it.SoldOut()),
		})
	}
	return writeCSV(w, []string{"sku", "name", "quantity", "price", "soldOut"}, rows)
}
