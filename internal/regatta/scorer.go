package regatta

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
)

// Score cross-checks rank against field size, fills a placeholder name and
// sets Success. now supplies the date stamp when the regatta date is unknown.
func Score(res *Result, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	res.Success = res.Participant != nil

	total := res.Metadata.TotalParticipants
	switch {
	case res.Participant == nil:
		res.Confidence = constants.ConfidenceLow
	case total > 0 && res.Participant.Rank <= total:
		res.Confidence = constants.ConfidenceHigh
	case total > 0:
		res.Confidence = constants.ConfidenceLow
		addFeedback(res, fmt.Sprintf("Rank %d is greater than the field size of %d; please verify both values.", res.Participant.Rank, total))
		res.Issues = append(res.Issues, common.IssueCode(common.ErrRankExceedsFieldSize))
	case res.Confidence == "":
		res.Confidence = constants.ConfidenceMedium
	}

	if strings.TrimSpace(res.Metadata.Name) == "" {
		res.Metadata.Name = PlaceholderName(res.Metadata, now())
		res.DatedName = res.Metadata.BoatClass == "" && res.Metadata.Date == ""
		res.Trace = append(res.Trace, fmt.Sprintf("name placeholder %q", res.Metadata.Name))
	}
	if !res.Success && res.Feedback == "" {
		addFeedback(res, "No rank could be recovered; please fill in the result manually.")
	}
}

// PlaceholderName keeps the name field from ever being blank.
func PlaceholderName(md Metadata, today time.Time) string {
	if md.BoatClass != "" {
		return md.BoatClass + " Regatta"
	}
	date := md.Date
	if date == "" {
		date = today.Format(time.DateOnly)
	}
	return "Regatta " + date
}

func addFeedback(res *Result, msg string) {
	if res.Feedback == "" {
		res.Feedback = msg
		return
	}
	res.Feedback += " " + msg
}
