package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/regatta-tracker/constants"
)

// ExtractJob is one audited extraction call, for data transfer between layers.
type ExtractJob struct {
	ID                uuid.UUID           `json:"id"`
	Kind              constants.JobKind   `json:"kind"`
	ContentHash       string              `json:"content_hash"`
	SailNumber        *string             `json:"sail_number,omitempty"`
	Status            constants.JobStatus `json:"status"`
	Method            *string             `json:"method,omitempty"`
	Success           bool                `json:"success"`
	Confidence        *string             `json:"confidence,omitempty"`
	Rank              *int                `json:"rank,omitempty"`
	TotalParticipants *int                `json:"total_participants,omitempty"`
	Amount            *float64            `json:"amount,omitempty"`
	RegattaName       *string             `json:"regatta_name,omitempty"`
	Feedback          *string             `json:"feedback,omitempty"`
	OCRQuality        *float32            `json:"ocr_quality,omitempty"`
	ResultJSON        json.RawMessage     `json:"result_json,omitempty"`
	ErrorMessage      *string             `json:"error_message,omitempty"`
	StartedAt         time.Time           `json:"started_at"`
	FinishedAt        *time.Time          `json:"finished_at,omitempty"`
}

// JobOutcome carries the fields written when a job finishes.
type JobOutcome struct {
	Status            constants.JobStatus
	Method            string
	Success           bool
	Confidence        string
	Rank              *int
	TotalParticipants *int
	Amount            *float64
	RegattaName       string
	Feedback          string
	OCRQuality        *float32
	ResultJSON        json.RawMessage
}

// JobFilter narrows job listings. Zero values match everything.
type JobFilter struct {
	Kind        constants.JobKind
	Status      constants.JobStatus
	ContentHash string
	Since       *time.Time
	Limit       int
}
