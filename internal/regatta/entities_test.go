package regatta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameRules(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		want     string
		wantRule string
	}{
		{"phrase with year", []string{"Ergebnisliste", "130. Kieler Woche 2024 - ILCA 6"}, "130. Kieler Woche 2024", "award-phrase"},
		{"phrase without year", []string{"Results", "Euro Cup Laser"}, "Euro Cup", "award-phrase"},
		{"compound", []string{"Ergebnisse", "Bodenseepokal 2023"}, "Bodenseepokal 2023", "award-compound"},
		{"hyphen compound", []string{"1", "Opti-Cup"}, "Opti-Cup", "award-compound"},
		{"title line", []string{"--- end of page 1 ---", "12345", "Frühjahrsfahrt Wannsee"}, "Frühjahrsfahrt Wannsee", "title-line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule, ok := FirstMatch(NameRules, tt.lines)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestNameRulesTitleLineBounds(t *testing.T) {
	lines := []string{"short", "this line is far too long to be a plausible regatta title at all"}
	_, _, ok := FirstMatch(NameRules, lines)
	assert.False(t, ok)

	late := make([]string, 10)
	for i := range late {
		late[i] = "x"
	}
	late = append(late, "Herbstfahrt am See")
	_, _, ok = FirstMatch(NameRules, late)
	assert.False(t, ok, "title fallback only looks at the first 10 lines")
}

func TestDateRules(t *testing.T) {
	tests := []struct {
		line string
		want string
		rule string
	}{
		{"Kieler Woche 22. - 30. Juni 2024", "2024-06-22", "textual-month"},
		{"am 12. März 2023 in Kiel", "2023-03-12", "textual-month"},
		{"June 5th, 2024", "2024-06-05", "textual-month"},
		{"3 Dec 2022", "2022-12-03", "textual-month"},
		{"Stand: 05.07.24", "2024-07-05", "numeric-dmy"},
		{"Datum 1.9.2021", "2021-09-01", "numeric-dmy"},
		{"printed 2024-08-17 10:00", "2024-08-17", "iso"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, rule, ok := FirstMatch(DateRules, []string{tt.line})
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestDateRulesRejectInvalid(t *testing.T) {
	for _, line := range []string{"31.02.2024", "17 GER 2024", "no date here"} {
		_, _, ok := FirstMatch(DateRules, []string{line})
		assert.False(t, ok, line)
	}
}

func TestRaceCount(t *testing.T) {
	assert.Equal(t, 4, RaceCount([]string{"Pl Sail R1 R2 R3 WF4 Pts"}))
	assert.Equal(t, 2, RaceCount([]string{"R1 R2 R25 R0 GER12"}))
	assert.Zero(t, RaceCount([]string{"no races"}))
}

func TestDetectBoatClass(t *testing.T) {
	tests := []struct {
		line string
		want string
		crew int
	}{
		{"Deutsche Meisterschaft 420er", "420", 2},
		{"ILCA 6 Europacup", "ILCA 6", 1},
		{"Laser Radial Youth", "ILCA 6", 1},
		{"49er FX Worlds", "49erFX", 2},
		{"Drachen Goldpokal", "Drachen", 3},
		{"OK-Jolle Frühjahr", "OK-Jolle", 1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cl, ok := DetectBoatClass([]string{tt.line}, nil)
			require.True(t, ok)
			assert.Equal(t, tt.want, cl.Name)
			assert.Equal(t, tt.crew, cl.Crew)
		})
	}

	_, ok := DetectBoatClass([]string{"Start GER 1"}, nil)
	assert.False(t, ok)
}

func TestCrewSize(t *testing.T) {
	assert.Equal(t, 2, DefaultCatalog.CrewSize("420"))
	assert.Equal(t, 2, DefaultCatalog.CrewSize("420er"))
	assert.Equal(t, 1, DefaultCatalog.CrewSize("laser radial"))
	assert.Zero(t, DefaultCatalog.CrewSize("Kutter"))
}

func TestParseCatalogErrors(t *testing.T) {
	_, err := ParseCatalog("not = [toml")
	assert.Error(t, err)
	_, err = ParseCatalog("")
	assert.Error(t, err)
}

func TestExtractMetadata(t *testing.T) {
	md, trace := ExtractMetadata([]string{
		"Berliner Jüngstenpokal 2024",
		"ILCA 4 - 14.09.2024",
		"Pl. Segel-Nr. Name R1 R2 R3",
	}, nil)
	assert.Equal(t, "Berliner Jüngstenpokal 2024", md.Name)
	assert.Equal(t, "2024-09-14", md.Date)
	assert.Equal(t, "ILCA 4", md.BoatClass)
	assert.Equal(t, 3, md.RaceCount)
	assert.Len(t, trace, 4)
}
