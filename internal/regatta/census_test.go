package regatta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTakeCensusPlainRows(t *testing.T) {
	lines := []string{
		"Pl. Segel-Nr. Name",
		"1 GER 10 Anna",
		"2. GER 20 Ben",
		"2 NED 30 Cas",
		"4 GER10 Anna (duplicate row on page 2)",
		"4 12345 Dora",
		"--- end of page 1 ---",
		"999 GER 40 Eve",
	}
	c := TakeCensus(lines, DetectFormat(lines))

	require.Len(t, c.Rows, 4)
	assert.Equal(t, "GER10", c.Rows[0].SailNumber)
	assert.Equal(t, "Anna", c.Rows[0].Name)
	assert.Equal(t, "12345", c.Rows[3].SailNumber)
	assert.Equal(t, 4, c.TotalParticipants)
	assert.Equal(t, "rows", c.Source)
}

func TestTakeCensusBibRows(t *testing.T) {
	lines := []string{
		"Platz Startnummer Segelnummer Name",
		"1 101 GER 1 Anna",
		"2 102 GER 2 Ben",
		"3 GER 3 Cas",
	}
	c := TakeCensus(lines, DetectFormat(lines))
	require.Len(t, c.Rows, 3)
	assert.Equal(t, "GER1", c.Rows[0].SailNumber)
	assert.Equal(t, "GER3", c.Rows[2].SailNumber)
	assert.Equal(t, 3, c.TotalParticipants)
}

func TestTakeCensusEntriesMention(t *testing.T) {
	lines := []string{"Kieler Woche 2024", "25 Entries", "results follow on the next page"}
	c := TakeCensus(lines, Generic{})
	assert.Empty(t, c.Rows)
	assert.Equal(t, 25, c.TotalParticipants)
	assert.Equal(t, "mention", c.Source)

	c = TakeCensus([]string{"Meldungen: keine", "600 Boote"}, Generic{})
	assert.Zero(t, c.TotalParticipants)
}

func TestFieldSize(t *testing.T) {
	rows := func(ranks ...int) []ParticipantRecord {
		out := make([]ParticipantRecord, len(ranks))
		for i, r := range ranks {
			out[i] = ParticipantRecord{Rank: r}
		}
		return out
	}
	assert.Equal(t, 5, FieldSize(rows(1, 2, 3, 4, 5)))
	assert.Equal(t, 4, FieldSize(rows(1, 2, 3, 4, 5, 5)), "tied last place is skipped")
	assert.Equal(t, 3, FieldSize(rows(3, 3)), "no unique rank falls back to max")
}

func TestTakeCensusLowercasePrefix(t *testing.T) {
	lines := []string{"3 ger 12345 max", "4 ger 999 eva"}
	c := TakeCensus(lines, Generic{})

	require.Len(t, c.Rows, 2)
	assert.Equal(t, "GER12345", c.Rows[0].SailNumber)
	assert.Equal(t, 4, c.TotalParticipants)
}
