package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
)

type stubJobs struct {
	jobs   []*entity.ExtractJob
	filter entity.JobFilter
}

func (s *stubJobs) Start(context.Context, constants.JobKind, string, string) (*entity.ExtractJob, error) {
	return nil, nil
}
func (s *stubJobs) Finish(context.Context, uuid.UUID, entity.JobOutcome) error { return nil }
func (s *stubJobs) FinishFailure(context.Context, uuid.UUID, string) error     { return nil }
func (s *stubJobs) GetByID(context.Context, uuid.UUID) (*entity.ExtractJob, error) {
	return nil, nil
}
func (s *stubJobs) List(_ context.Context, f entity.JobFilter) ([]*entity.ExtractJob, error) {
	s.filter = f
	return s.jobs, nil
}

func open(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestExportJobsXLSX(t *testing.T) {
	sail, name, conf := "GER 12345", "Kieler Woche", "high"
	rank, total := 17, 42
	stub := &stubJobs{jobs: []*entity.ExtractJob{{
		ID:                uuid.New(),
		Kind:              constants.JobKindRegatta,
		Status:            constants.JobStatusOK,
		SailNumber:        &sail,
		RegattaName:       &name,
		Rank:              &rank,
		TotalParticipants: &total,
		Confidence:        &conf,
		StartedAt:         time.Date(2024, 6, 22, 9, 30, 0, 0, time.UTC),
	}}}

	b, err := NewService(stub, nil).ExportJobsXLSX(context.Background(), entity.JobFilter{Kind: constants.JobKindRegatta})
	require.NoError(t, err)
	assert.Equal(t, constants.JobKindRegatta, stub.filter.Kind)

	rows, err := open(t, b).GetRows("Jobs")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Started", rows[0][0])
	assert.Equal(t, "2024-06-22 09:30", rows[1][0])
	assert.Equal(t, "GER 12345", rows[1][3])
	assert.Equal(t, "Kieler Woche", rows[1][4])
	assert.Equal(t, "17", rows[1][5])
	assert.Equal(t, "42", rows[1][6])
}

func TestRosterWorkbook(t *testing.T) {
	res := regatta.Result{
		Metadata:    regatta.Metadata{Name: "Opti-Cup", TotalParticipants: 2},
		Participant: &regatta.ParticipantRecord{Rank: 2, SailNumber: "GER 2"},
		AllResults: []regatta.ParticipantRecord{
			{Rank: 1, SailNumber: "GER1", Name: "Anna"},
			{Rank: 2, SailNumber: "GER2", Name: "Ben"},
		},
		Confidence: constants.ConfidenceHigh,
	}
	b, err := RosterWorkbook(res)
	require.NoError(t, err)

	f := open(t, b)
	v, err := f.GetCellValue("Results", "B3")
	require.NoError(t, err)
	assert.Equal(t, "GER2", v)

	v, _ = f.GetCellValue("Results", "F1")
	assert.Equal(t, "Opti-Cup", v)

	styled, _ := f.GetCellStyle("Results", "A3")
	plain, _ := f.GetCellStyle("Results", "A2")
	assert.NotEqual(t, plain, styled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "äö…", truncate("äöüß", 3))
}
