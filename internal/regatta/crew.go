package regatta

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const nameWords = `\p{L}[\p{L}.'-]*(?:[ \t]+\p{L}[\p{L}.'-]*){0,3}`

var (
	reCrewPair    = regexp.MustCompile(`(` + nameWords + `)\s*[/|]\s*(` + nameWords + `)`)
	reCrewLabeled = regexp.MustCompile(`(?i:crew|vorschoter(?:in)?|partner(?:in)?|vorschot)\s*:\s*(` + nameWords + `)`)
	titleCaser    = cases.Title(language.German)
)

// CrewRules are tried against one line, in order.
var CrewRules = []Rule{
	lineRule("slash-pair", 1, func(ln string) (string, bool) {
		m := reCrewPair.FindStringSubmatch(ln)
		if m == nil {
			return "", false
		}
		return tidyName(m[2]), true
	}),
	lineRule("labeled", 1, func(ln string) (string, bool) {
		m := reCrewLabeled.FindStringSubmatch(ln)
		if m == nil {
			return "", false
		}
		return tidyName(m[1]), true
	}),
}

// ExtractCrew looks for the crew partner on the matched line and, failing
// that, on the line after it. The matched line is searched only right of the
// sail number so nation codes are not mistaken for names.
func ExtractCrew(lines []string, lineIndex, sailEnd int) (string, string, bool) {
	if lineIndex < 0 || lineIndex >= len(lines) {
		return "", "", false
	}
	candidates := []string{lines[lineIndex]}
	if sailEnd > 0 && sailEnd <= len(lines[lineIndex]) {
		candidates[0] = lines[lineIndex][sailEnd:]
	}
	if lineIndex+1 < len(lines) && !isMarker(lines[lineIndex+1]) {
		candidates = append(candidates, lines[lineIndex+1])
	}
	for _, ln := range candidates {
		if v, rule, ok := FirstMatch(CrewRules, []string{ln}); ok && v != "" {
			return v, rule, true
		}
	}
	return "", "", false
}

// tidyName trims the match and title-cases names printed in capitals.
func tidyName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	hasLower := strings.IndexFunc(s, unicode.IsLower) >= 0
	if !hasLower && strings.IndexFunc(s, unicode.IsLetter) >= 0 {
		s = titleCaser.String(strings.ToLower(s))
	}
	return s
}
