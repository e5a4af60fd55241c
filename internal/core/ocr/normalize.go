package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(`[ \x{00A0}]{2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=|─━│┃┌┐└┘├┤┬┴┼]{3,}\s*$`)
	reTableBars  = regexp.MustCompile(`\s*[|│┃]\s*`)
)

// Normalize collapses noisy whitespace and drops box-drawing rows.
// Line breaks are kept; digits are never rewritten since ranks and sail
// numbers depend on them. Pipes between cells become single spaces, except
// inside "Name | Name" crew pairs where a letter sits on both sides.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reTableBars.ReplaceAllStringFunc(s, func(m string) string {
		if strings.ContainsAny(m, "\n") {
			return "\n"
		}
		return " | "
	})
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.Trim(lines[i], " ")
		lines[i] = strings.TrimPrefix(lines[i], "| ")
		lines[i] = strings.TrimSuffix(lines[i], " |")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SplitLines returns the non-blank lines of normalized text.
func SplitLines(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) != "" {
			out = append(out, ln)
		}
	}
	return out
}
