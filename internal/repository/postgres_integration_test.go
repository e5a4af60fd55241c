//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
)

func TestPostgresExtractJobs(t *testing.T) {
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("regatta"),
		postgres.WithUsername("regatta"),
		postgres.WithPassword("regatta"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, Config{Driver: "postgres", DSN: dsn, MaxConns: 4, DialTimeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, Migrate(ctx, db, nil))
	require.NoError(t, HealthCheck(ctx, db, time.Second, nil))

	repo := NewExtractJobRepository(db, nil)
	job, err := repo.Start(ctx, constants.JobKindInvoice, "hash", "")
	require.NoError(t, err)

	amount := 45.0
	require.NoError(t, repo.Finish(ctx, job.ID, entity.JobOutcome{Success: true, Method: "embedded-text", Amount: &amount}))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusOK, got.Status)
	assert.InDelta(t, 45.0, *got.Amount, 0.001)

	jobs, err := repo.List(ctx, entity.JobFilter{Kind: constants.JobKindInvoice})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}
