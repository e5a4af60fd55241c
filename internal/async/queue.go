package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/constants"
)

// Job is one PDF waiting for extraction.
type Job struct {
	Path        string
	ContentHash string // hex sha256, set by ingestion
	Kind        constants.JobKind
	SailNumber  string // regatta jobs only
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
