package regatta

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
)

// HeaderScanLines is how many leading lines format detection looks at.
const HeaderScanLines = 20

// Layout is what the header line says about numeric columns.
type Layout struct {
	HasRankHeader bool
	// HeaderRankIndex is the position of the rank column among the numeric
	// columns left of the sail number, or -1 when unknown.
	HeaderRankIndex int
}

// Format is the detected table layout. The set of implementations is closed.
type Format interface {
	Name() string
	Header() Layout
	format()
}

// Generic is any table without a recognised vendor or bib column.
type Generic struct{ Layout Layout }

// BibNumberFormat has a start/bib number column next to rank.
type BibNumberFormat struct{ Layout Layout }

// VendorFormat is a known results-software export.
type VendorFormat struct {
	Vendor string
	Layout Layout
}

func (Generic) Name() string     { return "generic" }
func (f Generic) Header() Layout { return f.Layout }
func (Generic) format()          {}

func (BibNumberFormat) Name() string     { return "bib-number" }
func (f BibNumberFormat) Header() Layout { return f.Layout }
func (BibNumberFormat) format()          {}

func (f VendorFormat) Name() string   { return "vendor:" + f.Vendor }
func (f VendorFormat) Header() Layout { return f.Layout }
func (VendorFormat) format()          {}

var (
	reBibLabel = regexp.MustCompile(`(?i)\bstart\s*-?\s*(?:nr|no|nummer)\b\.?|\bstartnummer\b|\bbib\b`)
	reVendors  = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"manage2sail", regexp.MustCompile(`(?i)manage\s*2\s*sail`)},
		{"sailwave", regexp.MustCompile(`(?i)sailwave`)},
		{"velaware", regexp.MustCompile(`(?i)velaware`)},
		{"raceoffice", regexp.MustCompile(`(?i)race\s*office`)},
	}

	reHeaderStart = regexp.MustCompile(`(?i)start\s*-?\s*(?:nr|no|nummer)\.?`)
	reHeaderSail  = regexp.MustCompile(`(?i)segel\s*-?\s*(?:nr|nummer|no)\.?|sail\s*-?\s*(?:no|nr|number)\.?|sail\s*#`)
	reRankLabel   = regexp.MustCompile(`(?i)^(?:platz|pl\.?|rang|rank|pos\.?|position|place)$`)
	reNumLabel    = regexp.MustCompile(`(?i)^(?:STARTNR|nr\.?|no\.?|#|bug|bow|lfd\.?)$`)
	reSailLabel   = regexp.MustCompile(`(?i)^(?:SAILNO|segelnummer|sail|nation|nat\.?|boot|boat)$`)
)

// DetectFormat classifies the table layout from the first HeaderScanLines
// lines. It never fails; unknown layouts are Generic.
func DetectFormat(lines []string) Format {
	head := headLines(lines, HeaderScanLines)
	layout := detectLayout(head)

	for _, ln := range head {
		if reBibLabel.MatchString(ln) {
			return BibNumberFormat{Layout: layout}
		}
	}
	for _, ln := range head {
		for _, v := range reVendors {
			if v.re.MatchString(ln) {
				return VendorFormat{Vendor: v.name, Layout: layout}
			}
		}
	}
	// exports often carry the watermark in the footer only
	for _, ln := range lines {
		for _, v := range reVendors {
			if v.re.MatchString(ln) {
				return VendorFormat{Vendor: v.name, Layout: layout}
			}
		}
	}
	return Generic{Layout: layout}
}

func headLines(lines []string, n int) []string {
	out := make([]string, 0, n)
	for _, ln := range lines {
		if document.IsPageMarker(ln) {
			continue
		}
		out = append(out, ln)
		if len(out) == n {
			break
		}
	}
	return out
}

// detectLayout reads the first line carrying a rank label and counts numeric
// column labels up to the sail-number label.
func detectLayout(head []string) Layout {
	for _, ln := range head {
		ln = reHeaderStart.ReplaceAllString(ln, " STARTNR ")
		ln = reHeaderSail.ReplaceAllString(ln, " SAILNO ")

		tokens := strings.Fields(ln)
		rankAt, numeric := -1, 0
		found := false
		for _, tok := range tokens {
			if reSailLabel.MatchString(tok) {
				break
			}
			switch {
			case reRankLabel.MatchString(tok):
				found = true
				rankAt = numeric
				numeric++
			case reNumLabel.MatchString(tok):
				numeric++
			}
		}
		if found {
			return Layout{HasRankHeader: true, HeaderRankIndex: rankAt}
		}
	}
	return Layout{HeaderRankIndex: -1}
}

// NumberToken is an integer found on a result line with its byte offset.
type NumberToken struct {
	Value  int
	Offset int
}

// LocateRankColumn picks the rank among the numbers that precede the sail
// number on a line.
func LocateRankColumn(before []NumberToken, f Format) (NumberToken, bool) {
	switch {
	case len(before) == 0:
		return NumberToken{}, false
	case len(before) == 1:
		return before[0], true
	}
	if _, ok := f.(BibNumberFormat); ok {
		return before[0], true
	}
	if l := f.Header(); l.HasRankHeader && l.HeaderRankIndex >= 0 && l.HeaderRankIndex < len(before) {
		return before[l.HeaderRankIndex], true
	}
	return before[0], true
}
