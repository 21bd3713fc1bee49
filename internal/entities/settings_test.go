package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromJSONFillsDefaults(t *testing.T) {
	s, err := SettingsFromJSON([]byte(`{"tier":"pro","welcome":{"enabled":true}}`))
	require.NoError(t, err)

	assert.Equal(t, TierPro, s.Tier)
	assert.True(t, s.Welcome.Enabled)
	// siblings of a partially stored section keep their defaults
	assert.Equal(t, DefaultSettings().Welcome.Message, s.Welcome.Message)
	assert.Equal(t, 5, s.Welcome.DelaySeconds)
	assert.Equal(t, "enter", s.Giveaway.Keyword)
	assert.NotNil(t, s.FAQ.Rules)
}

func TestMergeReplacesArrays(t *testing.T) {
	base := map[string]interface{}{
		"faq": map[string]interface{}{
			"enabled": false,
			"rules":   []interface{}{"a", "b"},
		},
		"tier": "free",
	}
	overlay := map[string]interface{}{
		"faq": map[string]interface{}{
			"rules": []interface{}{"c"},
		},
	}
	out := MergeDocuments(base, overlay)
	faq := out["faq"].(map[string]interface{})
	assert.Equal(t, []interface{}{"c"}, faq["rules"])
	assert.Equal(t, false, faq["enabled"])
	assert.Equal(t, "free", out["tier"])
}

func TestSettingsFromJSONRejectsGarbage(t *testing.T) {
	_, err := SettingsFromJSON([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = SettingsFromJSON([]byte(`{"tier":`))
	assert.Error(t, err)
}

func TestNormalizeFixesNullsAndTier(t *testing.T) {
	var s Settings
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"gold","faq":{"rules":[{"reply":"x"}]},"inventory":{"items":[{"sku":"a"}]}}`), &s))
	s.Normalize()

	assert.Equal(t, TierFree, s.Tier)
	assert.Equal(t, []string{}, s.FAQ.Rules[0].Triggers)
	assert.Equal(t, []string{}, s.Inventory.Items[0].Waitlist)
	assert.Equal(t, []Template{}, s.Templates)
}

func TestCloneIsDeep(t *testing.T) {
	s := DefaultSettings()
	s.FAQ.Rules = []FaqRule{{Triggers: []string{"ship"}}}
	c := s.Clone()
	c.FAQ.Rules[0].Triggers[0] = "changed"
	assert.Equal(t, "ship", s.FAQ.Rules[0].Triggers[0])
	assert.Equal(t, s, s.Clone())
}

func TestTiers(t *testing.T) {
	assert.Equal(t, TierFree, ParseTier("enterprise"))
	assert.Equal(t, TierBusiness, ParseTier("business"))
	assert.True(t, TierBusiness.IsPro())
	assert.False(t, TierFree.IsPro())
}

func TestApiKeyMasked(t *testing.T) {
	k := ApiKey{Key: "bz_live_0123456789abcdef0123"}
	assert.Equal(t, "bz_live_0123…0123", k.Masked().Key)
	assert.Equal(t, "short", ApiKey{Key: "short"}.Masked().Key)
}
