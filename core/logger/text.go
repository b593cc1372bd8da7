package logger

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// botToken matches Telegram bot tokens, which telebot embeds in request URLs
// and therefore in transport errors.
var botToken = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{30,}`)

// Redact masks bot tokens in s.
func Redact(s string) string {
	return botToken.ReplaceAllStringFunc(s, func(tok string) string {
		id, _, _ := strings.Cut(tok, ":")
		return id + ":***"
	})
}

// Sanitize drops control and format runes except newline and tab.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit redacts and sanitizes s and keeps at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = Sanitize(Redact(s))
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// JoinLimit joins up to limit values and notes how many were left out.
func JoinLimit(values []string, limit int) string {
	if limit <= 0 || len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return strings.Join(values[:limit], ", ") + " (+" + strconv.Itoa(len(values)-limit) + " more)"
}
