package regatta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
)

// minBareDigits is the shortest digits-only projection matched on its own;
// shorter ones collide with ranks and points.
const minBareDigits = 2

var reInteger = regexp.MustCompile(`\d+`)

// Location is the outcome of searching the result lines for one sail number.
type Location struct {
	Participant *ParticipantRecord
	LineIndex   int // -1 when no line matched
	SailEnd     int // byte offset just past the matched sail number
	Candidates  []NumberToken
	Confidence  constants.Confidence
	Feedback    string
	Issues      []error
}

// LocateParticipant finds the first line carrying sail (normalized or as bare
// digits) and takes the rank from the integers left of it. rawText is only
// consulted to explain a miss.
func LocateParticipant(lines []string, sail string, f Format, rawText string) Location {
	want := NormalizeSailNumber(sail)
	digits := SailDigits(sail)
	loc := Location{LineIndex: -1, Confidence: constants.ConfidenceLow}

	i, start, end, ok := findSailLine(lines, want, digits)
	if !ok {
		loc.Issues = append(loc.Issues, common.ErrParticipantNotFound)
		if digits != "" && strings.Contains(rawText, digits) {
			loc.Feedback = fmt.Sprintf("The digits %s appear in the document but no result line could be matched to sail number %s; please check the results manually.", digits, want)
		} else {
			loc.Feedback = fmt.Sprintf("Sail number %s was not found in the results.", want)
		}
		return loc
	}

	ln := lines[i]
	loc.LineIndex, loc.SailEnd = i, end
	loc.Candidates = numbersBefore(ln, start)

	tok, ok := LocateRankColumn(loc.Candidates, f)
	if !ok {
		loc.Feedback = fmt.Sprintf("Sail number %s found on line %d but no rank precedes it; please enter the rank manually.", want, i+1)
		loc.Issues = append(loc.Issues, common.ErrParticipantNotFound)
		return loc
	}
	if tok.Value < 1 || tok.Value > constants.MaxPlausibleRank {
		loc.Feedback = fmt.Sprintf("Rank %d found for %s is implausible (limit %d) and was discarded.", tok.Value, want, constants.MaxPlausibleRank)
		loc.Issues = append(loc.Issues, common.ErrImplausibleRank)
		return loc
	}

	loc.Participant = &ParticipantRecord{
		Rank:       tok.Value,
		SailNumber: want,
		Name:       leadingName(ln[end:]),
	}
	if len(loc.Candidates) == 1 {
		loc.Confidence = constants.ConfidenceHigh
	} else {
		loc.Confidence = constants.ConfidenceMedium
		loc.Issues = append(loc.Issues, common.ErrAmbiguousColumnLayout)
	}
	return loc
}

// findSailLine returns the first line carrying the full normalized sail
// number. Only when no line does is the bare-digits form tried.
func findSailLine(lines []string, want, digits string) (index, start, end int, ok bool) {
	for i, ln := range lines {
		if isMarker(ln) {
			continue
		}
		if s, e, ok := matchFull(ln, want); ok {
			return i, s, e, true
		}
	}
	for i, ln := range lines {
		if isMarker(ln) {
			continue
		}
		if s, e, ok := matchDigits(ln, digits); ok {
			return i, s, e, true
		}
	}
	return -1, 0, 0, false
}

// matchFull returns the byte span of the normalized sail number on line,
// compared against the line with whitespace removed.
func matchFull(line, want string) (start, end int, ok bool) {
	if want == "" {
		return 0, 0, false
	}
	compact, offsets := compactView(line)
	from := 0
	for {
		idx := strings.Index(compact[from:], want)
		if idx < 0 {
			return 0, 0, false
		}
		idx += from
		s := offsets[idx]
		last := offsets[idx+len(want)-1]
		_, size := utf8.DecodeRuneInString(line[last:])
		e := last + size
		if standalone(line, s, e) {
			return s, e, true
		}
		from = idx + 1
	}
}

// matchDigits returns the span of the bare digits when they stand alone.
func matchDigits(line, digits string) (start, end int, ok bool) {
	if len(digits) < minBareDigits {
		return 0, 0, false
	}
	for _, m := range reInteger.FindAllStringIndex(line, -1) {
		if line[m[0]:m[1]] == digits && standalone(line, m[0], m[1]) {
			return m[0], m[1], true
		}
	}
	return 0, 0, false
}

// compactView uppercases line and drops whitespace, recording for every
// compact byte the byte offset of the rune it came from.
func compactView(line string) (string, []int) {
	var (
		b       strings.Builder
		offsets []int
	)
	for i, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		before := b.Len()
		b.WriteRune(unicode.ToUpper(r))
		for j := before; j < b.Len(); j++ {
			offsets = append(offsets, i)
		}
	}
	return b.String(), offsets
}

// standalone reports whether line[s:e] is not glued to a letter or digit.
func standalone(line string, s, e int) bool {
	if s > 0 {
		r, _ := utf8.DecodeLastRuneInString(line[:s])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if e < len(line) {
		r, _ := utf8.DecodeRuneInString(line[e:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// numbersBefore collects free-standing integers strictly left of offset.
func numbersBefore(line string, offset int) []NumberToken {
	var out []NumberToken
	for _, m := range reInteger.FindAllStringIndex(line[:offset], -1) {
		if !standaloneNumber(line, m[0], m[1]) || m[1]-m[0] > 6 {
			continue
		}
		v, err := strconv.Atoi(line[m[0]:m[1]])
		if err != nil {
			continue
		}
		out = append(out, NumberToken{Value: v, Offset: m[0]})
	}
	return out
}

// standaloneNumber allows trailing "." or ")" as in "17." but rejects tokens
// glued to letters such as "R3" or "GER12".
func standaloneNumber(line string, s, e int) bool {
	if s > 0 {
		r, _ := utf8.DecodeLastRuneInString(line[:s])
		if unicode.IsLetter(r) || r == '.' || r == ',' {
			return false
		}
	}
	if e < len(line) {
		r, _ := utf8.DecodeRuneInString(line[e:])
		if unicode.IsLetter(r) {
			return false
		}
		if (r == '.' || r == ',') && e+1 < len(line) {
			next, _ := utf8.DecodeRuneInString(line[e+1:])
			if unicode.IsDigit(next) {
				return false
			}
		}
	}
	return true
}

var reNameWord = regexp.MustCompile(`^[\p{L}][\p{L}.'-]*$`)

// leadingName takes up to four name-like words from the text after the sail
// number, stopping at numbers or separators.
func leadingName(rest string) string {
	if i := strings.IndexAny(rest, "/|"); i >= 0 {
		rest = rest[:i]
	}
	var words []string
	for _, w := range strings.Fields(rest) {
		w = strings.Trim(w, ",;")
		if !reNameWord.MatchString(w) {
			break
		}
		words = append(words, w)
		if len(words) == 4 {
			break
		}
	}
	return strings.Join(words, " ")
}
