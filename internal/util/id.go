// Package util holds small helpers shared by the demo backend and the TUI.
package util

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateShortID returns a 6-character lowercase alphanumeric string using
// cryptographic randomness.
func GenerateShortID() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	for i := range bytes {
		bytes[i] = alphanumeric[int(bytes[i])%len(alphanumeric)]
	}

	return string(bytes), nil
}

// StopID returns an id such as "post-office-x81kq2" for a stop in category.
func StopID(category string) (string, error) {
	short, err := GenerateShortID()
	if err != nil {
		return "", err
	}
	slug := Slug(category)
	if slug == "" {
		slug = "stop"
	}
	return slug + "-" + short, nil
}

// Slug converts a string to kebab-case, dropping anything that is not a
// letter, digit or separator.
func Slug(s string) string {
	var result strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(unicode.ToLower(r))
		} else if r == ' ' || r == '_' || r == '-' {
			result.WriteRune('-')
		}
	}

	str := result.String()
	for strings.Contains(str, "--") {
		str = strings.ReplaceAll(str, "--", "-")
	}

	return strings.Trim(str, "-")
}

// EstimateTotalTime formats the rough trip length for n stops: 15 minutes of
// travel plus 20 minutes at each stop, e.g. "~1h 10m".
func EstimateTotalTime(n int) string {
	total := n * 35
	if h := total / 60; h > 0 {
		return fmt.Sprintf("~%dh %dm", h, total%60)
	}
	return fmt.Sprintf("~%dm", total)
}

// Truncate shortens s to at most width runes, ending with an ellipsis when cut.
func Truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
