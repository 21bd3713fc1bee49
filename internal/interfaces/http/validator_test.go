package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("shop_owner-1"))
	assert.False(t, ValidUsername(""))
	assert.False(t, ValidUsername("has space"))
	assert.False(t, ValidUsername("../etc"))
	assert.False(t, ValidUsername(strings.Repeat("a", MaxUsernameLength+1)))
}

func TestValidAccountID(t *testing.T) {
	assert.True(t, ValidAccountID("default"))
	assert.True(t, ValidAccountID("3f1c2a9e-8d4b-4c61-9a0e-5b7d2f6e1c3a"))
	assert.False(t, ValidAccountID("a/b"))
	assert.False(t, ValidAccountID(""))
}

func TestParseIndex(t *testing.T) {
	i, ok := ParseIndex("3")
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	for _, bad := range []string{"-1", "x", "", "1.5"} {
		_, ok := ParseIndex(bad)
		assert.False(t, ok, bad)
	}
}

func TestConfirmed(t *testing.T) {
	assert.True(t, Confirmed("true"))
	assert.True(t, Confirmed("1"))
	assert.False(t, Confirmed(""))
	assert.False(t, Confirmed("yes"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("he\x00llo"))
	assert.Equal(t, "ok", SanitizeString("o\xffk"))
	assert.Equal(t, "héllo 👋", SanitizeString("héllo 👋"))
}

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "", redactSecret(""))
	assert.Equal(t, "Bearer [REDACTED]", redactSecret("Bearer eyJhbGciOi"))
	assert.Equal(t, "bz_live_[REDACTED]", redactSecret("bz_live_0123456789abcdef"))
	assert.Equal(t, "[REDACTED]", redactSecret("sometoken"))
}
