package http

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxUsernameLength  = 32
	MaxAccountIDLength = 64
	MaxSKULength       = 20
)

var (
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	accountIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
)

// ValidUsername checks if a username is safe (alphanumeric + underscore + hyphen)
func ValidUsername(s string) bool {
	if s == "" || len(s) > MaxUsernameLength {
		return false
	}
	return usernamePattern.MatchString(s)
}

// ValidAccountID accepts "default" and uuid-shaped ids
func ValidAccountID(s string) bool {
	if s == "" || len(s) > MaxAccountIDLength {
		return false
	}
	return accountIDPattern.MatchString(s)
}

// ParseIndex reads a non-negative list position from a path parameter
func ParseIndex(s string) (int, bool) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// Confirmed reports whether the request carries ?confirm=true
func Confirmed(raw string) bool {
	ok, _ := strconv.ParseBool(raw)
	return ok
}
