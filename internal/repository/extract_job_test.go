package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, Migrate(ctx, db, nil))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, nil))
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, nil))
}

func TestExtractJobLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	job, err := repo.Start(ctx, constants.JobKindRegatta, "hash-1", "GER 12345")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, job.Status)

	rank, total := 17, 42
	quality := float32(0.8)
	require.NoError(t, repo.Finish(ctx, job.ID, entity.JobOutcome{
		Method:            "ocr",
		Success:           true,
		Confidence:        "high",
		Rank:              &rank,
		TotalParticipants: &total,
		RegattaName:       "Kieler Woche",
		OCRQuality:        &quality,
		ResultJSON:        json.RawMessage(`{"success":true}`),
	}))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusOK, got.Status)
	assert.True(t, got.Success)
	require.NotNil(t, got.Rank)
	assert.Equal(t, 17, *got.Rank)
	assert.Equal(t, 42, *got.TotalParticipants)
	assert.Equal(t, "GER 12345", *got.SailNumber)
	assert.Equal(t, "Kieler Woche", *got.RegattaName)
	assert.InDelta(t, 0.8, *got.OCRQuality, 0.001)
	assert.JSONEq(t, `{"success":true}`, string(got.ResultJSON))
	assert.NotNil(t, got.FinishedAt)
	assert.Nil(t, got.Amount)
}

func TestExtractJobDegradedAndFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	a, err := repo.Start(ctx, constants.JobKindInvoice, "hash-a", "")
	require.NoError(t, err)
	require.NoError(t, repo.Finish(ctx, a.ID, entity.JobOutcome{Feedback: "no amount"}))

	b, err := repo.Start(ctx, constants.JobKindRegatta, "hash-b", "GER 1")
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, b.ID, "panic: boom"))

	gotA, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDegraded, gotA.Status)
	assert.Nil(t, gotA.SailNumber)

	gotB, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, gotB.Status)
	assert.Equal(t, "panic: boom", *gotB.ErrorMessage)
}

func TestExtractJobNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = repo.Finish(ctx, uuid.New(), entity.JobOutcome{Success: true})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExtractJobList(t *testing.T) {
	ctx := context.Background()
	repo := NewExtractJobRepository(openTestDB(t), nil).(*extractJobRepo)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, kind := range []constants.JobKind{constants.JobKindRegatta, constants.JobKindInvoice, constants.JobKindRegatta} {
		at := base.Add(time.Duration(i) * time.Hour)
		repo.now = func() time.Time { return at }
		_, err := repo.Start(ctx, kind, "hash", "")
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, entity.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartedAt.After(all[2].StartedAt))

	regattas, err := repo.List(ctx, entity.JobFilter{Kind: constants.JobKindRegatta})
	require.NoError(t, err)
	assert.Len(t, regattas, 2)

	limited, err := repo.List(ctx, entity.JobFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	since := base.Add(90 * time.Minute)
	recent, err := repo.List(ctx, entity.JobFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
