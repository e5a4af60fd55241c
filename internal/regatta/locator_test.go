package regatta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
)

func TestLocateParticipantSingleCandidate(t *testing.T) {
	lines := []string{"Kieler Woche 2024", "17 GER12345 Max Mustermann"}
	loc := LocateParticipant(lines, "GER 12345", Generic{Layout: Layout{HeaderRankIndex: -1}}, "")

	require.NotNil(t, loc.Participant)
	assert.Equal(t, ParticipantRecord{Rank: 17, SailNumber: "GER12345", Name: "Max Mustermann"}, *loc.Participant)
	assert.Equal(t, constants.ConfidenceHigh, loc.Confidence)
	assert.Equal(t, 1, loc.LineIndex)
	assert.Empty(t, loc.Issues)
}

func TestLocateParticipantRankBound(t *testing.T) {
	tests := []struct {
		line  string
		found bool
	}{
		{"1 GER 7 Anna", true},
		{"500 GER 7 Anna", true},
		{"501 GER 7 Anna", false},
		{"0 GER 7 Anna", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			loc := LocateParticipant([]string{tt.line}, "GER7", Generic{}, tt.line)
			if !tt.found {
				assert.Nil(t, loc.Participant)
				assert.Contains(t, loc.Issues, common.ErrImplausibleRank)
				assert.NotEmpty(t, loc.Feedback)
				return
			}
			require.NotNil(t, loc.Participant)
			assert.GreaterOrEqual(t, loc.Participant.Rank, 1)
			assert.LessOrEqual(t, loc.Participant.Rank, constants.MaxPlausibleRank)
		})
	}
}

func TestLocateParticipantColumns(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		sail     string
		wantRank int
		wantConf constants.Confidence
	}{
		{
			name:     "spaced sail number",
			lines:    []string{"3. GER 555 Anna Beispiel 4 2 1"},
			sail:     "ger555",
			wantRank: 3,
			wantConf: constants.ConfidenceHigh,
		},
		{
			name:     "bare digits",
			lines:    []string{"3 4711 Hans Wurst"},
			sail:     "GER 4711",
			wantRank: 3,
			wantConf: constants.ConfidenceHigh,
		},
		{
			name:     "bib layout takes leftmost",
			lines:    []string{"Platz Start-Nr. Segel-Nr. Name", "4 112 GER 555 Anna"},
			sail:     "GER 555",
			wantRank: 4,
			wantConf: constants.ConfidenceMedium,
		},
		{
			name:     "header index",
			lines:    []string{"Lfd. Platz Segel-Nr. Name", "1 3 GER 555 Anna"},
			sail:     "GER 555",
			wantRank: 3,
			wantConf: constants.ConfidenceMedium,
		},
		{
			name:     "longer sail number is not a match",
			lines:    []string{"1 GER 5551 Ben", "2 GER 555 Anna"},
			sail:     "GER 555",
			wantRank: 2,
			wantConf: constants.ConfidenceHigh,
		},
		{
			name:     "race tokens are not candidates",
			lines:    []string{"R1 5 GER 555 Anna"},
			sail:     "GER 555",
			wantRank: 5,
			wantConf: constants.ConfidenceHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DetectFormat(tt.lines)
			loc := LocateParticipant(tt.lines, tt.sail, f, "")
			require.NotNil(t, loc.Participant)
			assert.Equal(t, tt.wantRank, loc.Participant.Rank)
			assert.Equal(t, tt.wantConf, loc.Confidence)
			if tt.wantConf == constants.ConfidenceMedium {
				assert.Contains(t, loc.Issues, common.ErrAmbiguousColumnLayout)
			}
		})
	}
}

func TestLocateParticipantNotFound(t *testing.T) {
	lines := []string{"1 GER 1 Anna", "Meldegeld 14711 EUR"}
	text := "1 GER 1 Anna\nMeldegeld 14711 EUR\n"

	loc := LocateParticipant(lines, "GER 4711", Generic{}, text)
	assert.Nil(t, loc.Participant)
	assert.Equal(t, -1, loc.LineIndex)
	assert.Contains(t, loc.Issues, common.ErrParticipantNotFound)
	assert.Contains(t, loc.Feedback, "digits 4711 appear")

	loc = LocateParticipant(lines, "NED 999", Generic{}, text)
	assert.Nil(t, loc.Participant)
	assert.Contains(t, loc.Feedback, "NED999 was not found")
}

func TestLocateParticipantNoPrecedingNumber(t *testing.T) {
	loc := LocateParticipant([]string{"GER 555 Anna 1 2 3"}, "GER 555", Generic{}, "")
	assert.Nil(t, loc.Participant)
	assert.Equal(t, 0, loc.LineIndex)
	assert.NotEmpty(t, loc.Feedback)
}

func TestLocateParticipantPrefersFullSailNumber(t *testing.T) {
	lines := []string{
		"1 GER 5 Anna Beispiel 12 3 4",
		"7 GER 12 Ben Muster 1 1 1",
	}
	loc := LocateParticipant(lines, "GER 12", Generic{Layout: Layout{HeaderRankIndex: -1}}, "")

	require.NotNil(t, loc.Participant)
	assert.Equal(t, 1, loc.LineIndex)
	assert.Equal(t, 7, loc.Participant.Rank)
	assert.Equal(t, "Ben Muster", loc.Participant.Name)
	assert.Equal(t, constants.ConfidenceHigh, loc.Confidence)
	assert.Equal(t, "7 GER 12", lines[1][:loc.SailEnd])
}

func TestLocateParticipantFallsBackToDigits(t *testing.T) {
	lines := []string{"Kieler Woche 2024", "9 12 Anna Beispiel"}
	loc := LocateParticipant(lines, "GER 12", Generic{Layout: Layout{HeaderRankIndex: -1}}, "")

	require.NotNil(t, loc.Participant)
	assert.Equal(t, 1, loc.LineIndex)
	assert.Equal(t, 9, loc.Participant.Rank)
}
