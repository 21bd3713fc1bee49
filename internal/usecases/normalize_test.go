package usecases

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTrigger(t *testing.T) {
	cases := map[string]string{
		"!My_Cmd!":              "my_cmd",
		"  Shipping":            "shipping",
		"!!!":                   "",
		"Size 42":               "size42",
		"ümlaut":                "mlaut",
		strings.Repeat("a", 30): strings.Repeat("a", MaxTriggerLength),
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTrigger(in), in)
	}
}

func TestParseClamped(t *testing.T) {
	assert.Equal(t, 300, ParseClamped("999", MinCooldown, MaxCooldown, DefaultCooldown))
	assert.Equal(t, 0, ParseClamped("-5", MinCooldown, MaxCooldown, DefaultCooldown))
	assert.Equal(t, 30, ParseClamped("abc", MinCooldown, MaxCooldown, DefaultCooldown))
	assert.Equal(t, 30, ParseClamped("", MinCooldown, MaxCooldown, DefaultCooldown))
	assert.Equal(t, 45, ParseClamped(" 45 ", MinCooldown, MaxCooldown, DefaultCooldown))
}

func TestClampNumber(t *testing.T) {
	assert.Equal(t, 300, ClampNumber(1e20, MinCooldown, MaxCooldown))
	assert.Equal(t, 0, ClampNumber(-1e20, MinCooldown, MaxCooldown))
	assert.Equal(t, 12, ClampNumber(12.9, MinCooldown, MaxCooldown))
	assert.Equal(t, 0, ClampNumber(math.NaN(), MinCooldown, MaxCooldown))
	assert.Equal(t, 300, ClampNumber(math.Inf(1), MinCooldown, MaxCooldown))
}

func TestTruncateWarnsOnlyWhenCut(t *testing.T) {
	sink := &NoticeCollector{}
	assert.Equal(t, "short", Truncate(sink, "Reply", "short", 10))
	assert.Empty(t, sink.Notices())

	out := Truncate(sink, "Reply", strings.Repeat("é", 12), 10)
	assert.Equal(t, strings.Repeat("é", 10), out)
	require.Len(t, sink.Notices(), 1)
	assert.Equal(t, "Reply was shortened to 10 characters", sink.Notices()[0].Text)
}

func TestParseTriggers(t *testing.T) {
	assert.Equal(t, []string{"ship", "delivery"}, ParseTriggers(nil, "ship, Ship , ,delivery"))
	assert.Equal(t, []string{}, ParseTriggers(nil, " , "))

	raw := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		raw = append(raw, strings.Repeat("k", i+1))
	}
	sink := &NoticeCollector{}
	out := ParseTriggers(sink, strings.Join(raw, ","))
	assert.Len(t, out, MaxTriggersPerRule)
	assert.Len(t, sink.Notices(), 1)
}
