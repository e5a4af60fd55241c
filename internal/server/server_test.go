package server

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/regatta-tracker/internal/invoice"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
	"github.com/joseph-ayodele/regatta-tracker/internal/repository"
)

var samplePDF = base64.StdEncoding.EncodeToString([]byte("%PDF-1.7\nresults"))

type stubProcessor struct {
	mu       sync.Mutex
	jobID    uuid.UUID
	pages    int
	regatta  []regatta.Request
	invoices []string
}

func (s *stubProcessor) ExtractRegatta(_ context.Context, req regatta.Request) core.RegattaResponse {
	s.mu.Lock()
	s.regatta = append(s.regatta, req)
	s.mu.Unlock()
	if req.Progress != nil {
		for i := 1; i <= s.pages; i++ {
			req.Progress(ocr.Progress{Status: "recognizing", Page: i, Total: s.pages})
		}
	}
	return core.RegattaResponse{
		JobID: s.jobID,
		Result: regatta.Result{
			Success:     true,
			Metadata:    regatta.Metadata{Name: "Kieler Woche", TotalParticipants: 42},
			Participant: &regatta.ParticipantRecord{Rank: 17, SailNumber: "GER12345"},
			Confidence:  constants.ConfidenceHigh,
			Method:      constants.MethodEmbeddedText,
		},
	}
}

func (s *stubProcessor) ExtractInvoice(_ context.Context, pdf string, _ ocr.ProgressFunc) core.InvoiceResponse {
	s.mu.Lock()
	s.invoices = append(s.invoices, pdf)
	s.mu.Unlock()
	return core.InvoiceResponse{
		JobID:  s.jobID,
		Result: invoice.Result{Success: true, Amount: 45, Currency: invoice.Currency, Method: constants.MethodEmbeddedText},
	}
}

func (s *stubProcessor) lastRegatta() regatta.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regatta[len(s.regatta)-1]
}

func newJobRepo(t *testing.T) repository.ExtractJobRepository {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db, nil))
	return repository.NewExtractJobRepository(db, nil)
}
