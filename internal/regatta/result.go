package regatta

import "github.com/joseph-ayodele/regatta-tracker/constants"

// ParticipantRecord is one row of a result table. Rank is 1..MaxPlausibleRank.
type ParticipantRecord struct {
	Rank       int    `json:"rank"`
	SailNumber string `json:"sailNumber"`
	Name       string `json:"name,omitempty"`
}

// Metadata is filled best-effort; zero values mean unknown.
type Metadata struct {
	Name              string `json:"name"`
	Date              string `json:"date,omitempty"` // YYYY-MM-DD
	BoatClass         string `json:"boatClass,omitempty"`
	RaceCount         int    `json:"raceCount,omitempty"`
	TotalParticipants int    `json:"totalParticipants,omitempty"`
}

// Result is the single structured outcome of one extraction call.
type Result struct {
	Success     bool                        `json:"success"`
	Metadata    Metadata                    `json:"metadata"`
	Participant *ParticipantRecord          `json:"participant,omitempty"`
	Crew        string                      `json:"crew,omitempty"`
	AllResults  []ParticipantRecord         `json:"allResults"`
	Confidence  constants.Confidence        `json:"confidence"`
	Feedback    string                      `json:"feedback,omitempty"`
	Method      constants.AcquisitionMethod `json:"method,omitempty"`
	OCRQuality  float32                     `json:"ocrQuality,omitempty"`
	Issues      []string                    `json:"issues,omitempty"`
	Trace       []string                    `json:"trace,omitempty"`

	// DatedName is set when Metadata.Name carries today's date stamp.
	DatedName bool `json:"-"`
}

// Enrichment is optional caller context. It only fills output fields left
// empty by extraction and never influences matching.
type Enrichment struct {
	SailorName string `json:"sailorName,omitempty"`
	BoatClass  string `json:"boatClass,omitempty"`
}
