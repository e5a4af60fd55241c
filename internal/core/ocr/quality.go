package ocr

import (
	"regexp"
	"strings"
)

var (
	reQSail   = regexp.MustCompile(`\b[A-Z]{2,3}\s?-?\s?\d{2,6}\b`)
	reQRow    = regexp.MustCompile(`(?m)^\s*\d{1,3}\.?\s+\S`)
	reQDate   = regexp.MustCompile(`\b\d{1,2}\.\s?\d{1,2}\.\s?(?:\d{4}|\d{2})\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reQAmount = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d{3})*[.,]\d{2}\b`)
	reQCurr   = regexp.MustCompile(`(?i)\beur\b|€`)
)

// Quality is a rough 0..1 score of how much result-sheet or invoice structure
// survived recognition. It is diagnostic only and never gates the pipeline.
func Quality(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	score := float32(0.2)
	if n := len(reQSail.FindAllStringIndex(txt, 5)); n > 0 {
		score += 0.05 * float32(n)
	}
	if len(reQRow.FindAllStringIndex(txt, 3)) == 3 {
		score += 0.15
	}
	if reQDate.MatchString(txt) {
		score += 0.15
	}
	if reQAmount.MatchString(txt) && reQCurr.MatchString(txt) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
