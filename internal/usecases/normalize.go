package usecases

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field limits
const (
	MaxReplyLength         = 500
	MaxTriggersPerRule     = 10
	MaxTriggerLength       = 20
	MaxAccountNameLength   = 50
	MaxTemplateNameLength  = 50
	MaxQuickReplyLabel     = 30
	MaxQuickReplyText      = 200
	MaxInventoryNameLength = 100
	MaxBlockedWords        = 100
	MaxQuickReplies        = 10

	MinCooldown     = 0
	MaxCooldown     = 300
	DefaultCooldown = 30

	MinTimerInterval     = 1
	MaxTimerInterval     = 120
	DefaultTimerInterval = 10

	MinWelcomeDelay     = 0
	MaxWelcomeDelay     = 60
	DefaultWelcomeDelay = 5

	MinCapsThreshold     = 50
	MaxCapsThreshold     = 100
	DefaultCapsThreshold = 70

	MinQuantity = 0
	MaxQuantity = 99999
)

var triggerStrip = regexp.MustCompile(`[^a-z0-9_]`)

// NormalizeTrigger lowercases s and strips everything outside [a-z0-9_],
// then cuts it to MaxTriggerLength. "!My_Cmd!" becomes "my_cmd".
func NormalizeTrigger(s string) string {
	out := triggerStrip.ReplaceAllString(strings.ToLower(s), "")
	if len(out) > MaxTriggerLength {
		out = out[:MaxTriggerLength]
	}
	return out
}

// Truncate cuts s to max runes. When it had to cut, a warning naming field
// goes to sink.
func Truncate(sink NoticeSink, field, s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	warn(sink, fmt.Sprintf("%s was shortened to %d characters", field, max))
	return string([]rune(s)[:max])
}

// Clamp bounds v to [min, max]
func Clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampNumber bounds v to [min, max] before converting, so out of range
// floats never overflow int. NaN gives min.
func ClampNumber(v float64, min, max int) int {
	if math.IsNaN(v) {
		return min
	}
	return int(math.Max(float64(min), math.Min(float64(max), v)))
}

// ParseClamped parses raw as an integer, falling back to def on failure,
// and clamps the result to [min, max].
func ParseClamped(raw string, min, max, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return Clamp(v, min, max)
}

// ParseTriggers splits a comma separated keyword list: trims, drops empties,
// removes case-insensitive duplicates and keeps at most MaxTriggersPerRule.
func ParseTriggers(sink NoticeSink, raw string) []string {
	return CleanTriggers(sink, strings.Split(raw, ","))
}

// CleanTriggers is ParseTriggers for an already split list
func CleanTriggers(sink NoticeSink, in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	if len(out) > MaxTriggersPerRule {
		warn(sink, fmt.Sprintf("Only %d keywords per rule are kept", MaxTriggersPerRule))
		out = out[:MaxTriggersPerRule]
	}
	return out
}
