package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF         = regexp.MustCompile(`\r\n?`)
	reTabs         = regexp.MustCompile(`\t+`)
	reMultiSpace   = regexp.MustCompile(` {2,}`)
	reMultiBlank   = regexp.MustCompile(`\n{3,}`)
	reSpacedHyphen = regexp.MustCompile(`([A-Za-z0-9]) *[-‐‑–—] *([A-Za-z0-9])`)
	reBoxNoise     = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
)

// Normalize collapses noisy whitespace and repairs the dash artifacts OCR
// leaves inside hyphenated codes ("ALF - 2025 0101" style spacing and
// typographic dashes). Line breaks are kept.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")

	// twice: a single pass cannot rewrite overlapping "A - B - C" runs
	s = reSpacedHyphen.ReplaceAllString(s, "$1-$2")
	s = reSpacedHyphen.ReplaceAllString(s, "$1-$2")
	return strings.TrimSpace(s)
}
