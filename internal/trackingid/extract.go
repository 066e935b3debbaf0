// Package trackingid recovers a tracking identifier from arbitrary text
// (decoded symbol payloads, OCR output or PDF text layers).
package trackingid

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reQueryID    = regexp.MustCompile(`[?&#]id=([A-Za-z0-9_-]+)`)
	reGeneric    = regexp.MustCompile(`(?i)[A-Z]{2,5}-\d{6,8}-[A-Z0-9]{3,}`)
	reTokenSplit = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	reLetter     = regexp.MustCompile(`[A-Za-z]`)
	reDigit      = regexp.MustCompile(`[0-9]`)
)

const (
	minTokenLen = 6
	maxTokenLen = 32
)

// Extract applies the identifier rules in order and returns the first match
// upper-cased. A false result is a soft miss, not an error.
func Extract(text string, cfg Config) (string, bool) {
	cfg = cfg.Normalized()
	text = strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
	if text == "" {
		return "", false
	}

	if m := reQueryID.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1]), true
	}
	if m := strictPattern(cfg).FindString(text); m != "" {
		return strings.ToUpper(m), true
	}
	if m := reGeneric.FindString(text); m != "" {
		return strings.ToUpper(m), true
	}
	if tok, ok := pickToken(text, cfg.Prefix); ok {
		return strings.ToUpper(tok), true
	}
	return "", false
}

// Matches reports whether Extract finds an identifier in text.
func Matches(text string, cfg Config) bool {
	_, ok := Extract(text, cfg)
	return ok
}

func strictPattern(cfg Config) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)%s-\d{%d}-[A-Z0-9]{3,}`, regexp.QuoteMeta(cfg.Prefix), cfg.DateDigits))
}

func pickToken(text, prefix string) (string, bool) {
	var survivors []string
	for _, tok := range reTokenSplit.Split(text, -1) {
		if len(tok) < minTokenLen || len(tok) > maxTokenLen {
			continue
		}
		if !reLetter.MatchString(tok) || !reDigit.MatchString(tok) {
			continue
		}
		survivors = append(survivors, tok)
	}
	if len(survivors) == 0 {
		return "", false
	}
	want := prefix + "-"
	for _, tok := range survivors {
		if strings.HasPrefix(strings.ToUpper(tok), want) {
			return tok, true
		}
	}
	return survivors[0], true
}
