package regatta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TitleScanLines bounds the title-line fallback.
const TitleScanLines = 10

const awardSuffix = `(?i:cup|trophy|troph[äa]e|pokal|preis|meisterschaft|championships?|regatta|woche|week|festival)`

var (
	reAwardPhrase = regexp.MustCompile(
		`((?:[\p{Lu}\d][\p{L}\d.'&]*(?:-[\p{L}\d]+)*\s+){1,6}` + awardSuffix + `)\b(\s+(?:19|20)\d{2})?`)
	reAwardCompound = regexp.MustCompile(
		`(?:^|\s)((?:[\p{Lu}][\p{L}.-]*\s+){0,3}[\p{Lu}][\p{L}-]+` + awardSuffix + `)\b(\s+(?:19|20)\d{2})?`)
	reDigitsOnly = regexp.MustCompile(`^[\d\s.,:/\-]+$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NameRules recover the regatta name, most specific first.
var NameRules = []Rule{
	lineRule("award-phrase", 0, func(ln string) (string, bool) {
		m := reAwardPhrase.FindStringSubmatch(ln)
		if m == nil {
			return "", false
		}
		return cleanName(m[1] + m[2]), true
	}),
	lineRule("award-compound", 0, func(ln string) (string, bool) {
		m := reAwardCompound.FindStringSubmatch(ln)
		if m == nil {
			return "", false
		}
		return cleanName(m[1] + m[2]), true
	}),
	lineRule("title-line", TitleScanLines, func(ln string) (string, bool) {
		t := cleanName(ln)
		n := utf8.RuneCountInString(t)
		if n < 8 || n > 50 || reDigitsOnly.MatchString(t) {
			return "", false
		}
		return t, true
	}),
}

func cleanName(s string) string {
	return strings.Trim(reSpaces.ReplaceAllString(strings.TrimSpace(s), " "), " -–:|")
}

var monthTable = map[string]time.Month{
	"januar": time.January, "january": time.January, "jan": time.January, "janner": time.January,
	"februar": time.February, "february": time.February, "feb": time.February,
	"marz": time.March, "maerz": time.March, "march": time.March, "mar": time.March, "mrz": time.March,
	"april": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"juni": time.June, "june": time.June, "jun": time.June,
	"juli": time.July, "july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"oktober": time.October, "october": time.October, "okt": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"dezember": time.December, "december": time.December, "dez": time.December, "dec": time.December,
}

var (
	reDayMonthName = regexp.MustCompile(`\b(\d{1,2})\.?\s*(?:[-–]\s*\d{1,2}\.?\s*)?(\p{L}+)\.?,?\s+(\d{4})\b`)
	reMonthNameDay = regexp.MustCompile(`\b(\p{L}+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*[-–]\s*\d{1,2}(?:st|nd|rd|th)?)?,?\s+(\d{4})\b`)
	reNumericDMY   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4}|\d{2})\b`)
	reISODate      = regexp.MustCompile(`\b((?:19|20)\d{2})-(\d{2})-(\d{2})\b`)
)

// DateRules recover the regatta date as YYYY-MM-DD.
var DateRules = []Rule{
	lineRule("textual-month", 0, func(ln string) (string, bool) {
		folded := foldDiacritics(ln)
		for _, m := range reDayMonthName.FindAllStringSubmatch(folded, -1) {
			if d, ok := isoDate(m[3], m[2], m[1]); ok {
				return d, true
			}
		}
		for _, m := range reMonthNameDay.FindAllStringSubmatch(folded, -1) {
			if d, ok := isoDate(m[3], m[1], m[2]); ok {
				return d, true
			}
		}
		return "", false
	}),
	lineRule("numeric-dmy", 0, func(ln string) (string, bool) {
		for _, m := range reNumericDMY.FindAllStringSubmatch(ln, -1) {
			y := m[3]
			if len(y) == 2 {
				y = "20" + y
			}
			if d, ok := isoDate(y, m[2], m[1]); ok {
				return d, true
			}
		}
		return "", false
	}),
	lineRule("iso", 0, func(ln string) (string, bool) {
		for _, m := range reISODate.FindAllStringSubmatch(ln, -1) {
			if d, ok := isoDate(m[1], m[2], m[3]); ok {
				return d, true
			}
		}
		return "", false
	}),
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldDiacritics strips combining marks so "März" compares as "Marz".
func foldDiacritics(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		return s
	}
	return out
}

// isoDate validates year/month/day where month is numeric or a month name.
func isoDate(year, month, day string) (string, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1900 || y > 2100 {
		return "", false
	}
	var mon time.Month
	if n, err := strconv.Atoi(month); err == nil {
		mon = time.Month(n)
	} else {
		mon = monthTable[strings.ToLower(month)]
	}
	if mon < time.January || mon > time.December {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, mon, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return "", false
	}
	return t.Format(time.DateOnly), true
}

// MaxRaceIndex bounds R<n>/WF<n> tokens.
const MaxRaceIndex = 19

var reRaceToken = regexp.MustCompile(`\b(?:R|WF)(\d{1,2})\b`)

// RaceCount is the highest race column index (1..19) seen, or 0.
func RaceCount(lines []string) int {
	max := 0
	for _, ln := range lines {
		for _, m := range reRaceToken.FindAllStringSubmatch(ln, -1) {
			n, _ := strconv.Atoi(m[1])
			if n >= 1 && n <= MaxRaceIndex && n > max {
				max = n
			}
		}
	}
	return max
}

// DetectBoatClass prefers the header area and falls back to the whole text.
func DetectBoatClass(lines []string, catalog *Catalog) (BoatClass, bool) {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	head := headLines(lines, HeaderScanLines)
	for _, scope := range [][]string{head, lines} {
		for _, ln := range scope {
			if cl, ok := catalog.Find(ln); ok {
				return cl, true
			}
		}
	}
	return BoatClass{}, false
}

// ExtractMetadata runs every entity rule independently. Absent values stay zero.
func ExtractMetadata(lines []string, catalog *Catalog) (Metadata, []string) {
	var (
		md    Metadata
		trace []string
	)
	if v, rule, ok := FirstMatch(NameRules, lines); ok {
		md.Name = v
		trace = append(trace, fmt.Sprintf("name %q via %s", v, rule))
	}
	if v, rule, ok := FirstMatch(DateRules, lines); ok {
		md.Date = v
		trace = append(trace, fmt.Sprintf("date %s via %s", v, rule))
	}
	if cl, ok := DetectBoatClass(lines, catalog); ok {
		md.BoatClass = cl.Name
		trace = append(trace, fmt.Sprintf("boat class %s (crew %d)", cl.Name, cl.Crew))
	}
	if n := RaceCount(lines); n > 0 {
		md.RaceCount = n
		trace = append(trace, fmt.Sprintf("race count %d", n))
	}
	return md, trace
}
