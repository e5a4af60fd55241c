package regatta

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/joseph-ayodele/regatta-tracker/constants"
)

var (
	reBibRow   = regexp.MustCompile(`^\s*(\d{1,3})\.?\s+(\d{1,4})\s+(\p{L}{1,3}\s*-?\s*\d{1,6})\b`)
	rePlainRow = regexp.MustCompile(`^\s*(\d{1,3})\.?\s+(\p{L}{1,3}\s*-?\s*\d{1,6}|\d{2,6})\b`)
	reEntries  = regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:entries|teilnehmer(?:innen)?|meldungen|boote|boats|starters)\b`)
)

// Census is the full roster recovered from the result table.
type Census struct {
	Rows              []ParticipantRecord
	TotalParticipants int
	Source            string // "rows" | "mention" | ""
}

// TakeCensus builds the roster with a per-line row regex chosen by format,
// keeping the first row seen for each sail number.
func TakeCensus(lines []string, f Format) Census {
	_, bib := f.(BibNumberFormat)
	seen := map[string]bool{}
	var rows []ParticipantRecord

	for _, ln := range lines {
		if isMarker(ln) {
			continue
		}
		rank, sail, end, ok := matchRow(ln, bib)
		if !ok || rank < 1 || rank > constants.MaxPlausibleRank {
			continue
		}
		key := NormalizeSailNumber(sail)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, ParticipantRecord{Rank: rank, SailNumber: key, Name: leadingName(ln[end:])})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })

	c := Census{Rows: rows}
	if len(rows) > 0 {
		c.TotalParticipants = FieldSize(rows)
		c.Source = "rows"
		return c
	}
	if n, ok := entriesMention(lines); ok {
		c.TotalParticipants = n
		c.Source = "mention"
	}
	return c
}

func matchRow(ln string, bib bool) (rank int, sail string, end int, ok bool) {
	if bib {
		if m := reBibRow.FindStringSubmatchIndex(ln); m != nil {
			rank, _ = strconv.Atoi(ln[m[2]:m[3]])
			return rank, ln[m[6]:m[7]], m[7], true
		}
	}
	if m := rePlainRow.FindStringSubmatchIndex(ln); m != nil {
		rank, _ = strconv.Atoi(ln[m[2]:m[3]])
		return rank, ln[m[4]:m[5]], m[5], true
	}
	return 0, "", 0, false
}

// FieldSize is the largest rank that occurs exactly once; when every rank is
// shared it falls back to the largest rank.
func FieldSize(rows []ParticipantRecord) int {
	counts := map[int]int{}
	max := 0
	for _, r := range rows {
		counts[r.Rank]++
		if r.Rank > max {
			max = r.Rank
		}
	}
	unique := 0
	for rank, n := range counts {
		if n == 1 && rank > unique {
			unique = rank
		}
	}
	if unique > 0 {
		return unique
	}
	return max
}

func entriesMention(lines []string) (int, bool) {
	for _, ln := range lines {
		for _, m := range reEntries.FindAllStringSubmatch(ln, -1) {
			n, _ := strconv.Atoi(m[1])
			if n >= 1 && n <= constants.MaxPlausibleRank {
				return n, true
			}
		}
	}
	return 0, false
}

func (c Census) String() string {
	return fmt.Sprintf("%d rows, field size %d (%s)", len(c.Rows), c.TotalParticipants, c.Source)
}
