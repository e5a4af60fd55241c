package regatta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCrew(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		sailEnd  int
		want     string
		wantRule string
		ok       bool
	}{
		{
			name:     "slash pair",
			lines:    []string{"3 GER 1234 Max Muster / Erika Beispiel 5 3"},
			sailEnd:  10,
			want:     "Erika Beispiel",
			wantRule: "slash-pair",
			ok:       true,
		},
		{
			name:     "pipe pair in capitals",
			lines:    []string{"3 GER 1234 MAX MUSTER | ERIKA BEISPIEL 5 3"},
			sailEnd:  10,
			want:     "Erika Beispiel",
			wantRule: "slash-pair",
			ok:       true,
		},
		{
			name:     "label on next line",
			lines:    []string{"3 GER 1234 Max Muster 5 3", "Vorschoterin: Lena Kraft"},
			sailEnd:  10,
			want:     "Lena Kraft",
			wantRule: "labeled",
			ok:       true,
		},
		{
			name:    "nothing",
			lines:   []string{"3 GER 1234 Max Muster 5 3", "4 GER 99 Tom 6 6"},
			sailEnd: 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule, ok := ExtractCrew(tt.lines, 0, tt.sailEnd)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestExtractCrewOutOfRange(t *testing.T) {
	_, _, ok := ExtractCrew(nil, -1, 0)
	assert.False(t, ok)
}
