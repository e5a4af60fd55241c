// Package invoice recovers the total of an invoice PDF for reimbursement.
package invoice

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MaxAmount bounds plausible invoice totals.
const MaxAmount = 100000.0

const number = `(\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`

// Pattern is one amount ordering.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// Patterns cover the four orderings seen on invoices.
var Patterns = []Pattern{
	{"amount-symbol", regexp.MustCompile(number + `\s*(?:€|EUR\b|Euro\b)`)},
	{"symbol-amount", regexp.MustCompile(`€\s*` + number)},
	{"code-amount", regexp.MustCompile(`(?i)\bEUR\s*` + number)},
	{"label-amount", regexp.MustCompile(`(?i)\b(?:betrag|summe|gesamt|gesamtbetrag|total|amount)\s*(?:\([^)]*\))?\s*:?\s*(?:€|EUR)?\s*` + number)},
}

// Candidate is one plausible amount and where it came from.
type Candidate struct {
	Value   float64 `json:"value"`
	Pattern string  `json:"pattern"`
	Text    string  `json:"text"`
}

// FindCandidates returns every bounded amount in text, in order of appearance
// per pattern.
func FindCandidates(text string) []Candidate {
	var out []Candidate
	for _, p := range Patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			v, ok := ParseAmount(m[1])
			if !ok || v <= 0 || v > MaxAmount {
				continue
			}
			out = append(out, Candidate{Value: v, Pattern: p.Name, Text: strings.TrimSpace(m[0])})
		}
	}
	return out
}

// Total picks the largest candidate. It assumes the grand total is the
// largest figure on the invoice, which a multi-item invoice with a
// discount line can violate.
func Total(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	sorted := append([]Candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	return sorted[0], true
}

// ParseAmount reads German ("1.234,56") and English ("1,234.56") notation.
// A lone separator followed by one or two digits is decimal; followed by
// three digits it groups thousands.
func ParseAmount(s string) (float64, bool) {
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
