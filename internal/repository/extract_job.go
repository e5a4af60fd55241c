package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
)

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

type ExtractJobRepository interface {
	Start(ctx context.Context, kind constants.JobKind, contentHash, sailNumber string) (*entity.ExtractJob, error)
	Finish(ctx context.Context, jobID uuid.UUID, out entity.JobOutcome) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	List(ctx context.Context, filter entity.JobFilter) ([]*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var jobColumns = []string{
	"id", "kind", "content_hash", "sail_number", "status", "method", "success",
	"confidence", "rank", "total_participants", "amount", "regatta_name",
	"feedback", "ocr_quality", "result_json", "error_message", "started_at", "finished_at",
}

func (r *extractJobRepo) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *extractJobRepo) Start(ctx context.Context, kind constants.JobKind, contentHash, sailNumber string) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		Kind:        kind,
		ContentHash: contentHash,
		Status:      constants.JobStatusRunning,
		StartedAt:   r.now(),
	}
	if sailNumber != "" {
		job.SailNumber = &sailNumber
	}

	ins := r.db.builder().Insert(jobsTable).
		Columns("id", "kind", "content_hash", "sail_number", "status", "success", "started_at").
		Values(job.ID.String(), string(kind), contentHash, nullString(sailNumber), string(job.Status), false, job.StartedAt)
	if _, err := r.exec(ctx, ins); err != nil {
		r.log.Error("extract_job start failed", "content_hash", contentHash, "err", err)
		return nil, common.NewAppError("DB_ERROR", "start extract job", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("extract_job started", "job_id", job.ID, "kind", kind, "content_hash", contentHash)
	return job, nil
}

func (r *extractJobRepo) Finish(ctx context.Context, jobID uuid.UUID, out entity.JobOutcome) error {
	status := out.Status
	if status == "" {
		status = constants.JobStatusOK
		if !out.Success {
			status = constants.JobStatusDegraded
		}
	}
	var resultJSON any
	if len(out.ResultJSON) > 0 {
		resultJSON = string(out.ResultJSON)
	}

	upd := r.db.builder().Update(jobsTable).
		Set("status", string(status)).
		Set("method", nullString(out.Method)).
		Set("success", out.Success).
		Set("confidence", nullString(out.Confidence)).
		Set("rank", nullInt(out.Rank)).
		Set("total_participants", nullInt(out.TotalParticipants)).
		Set("amount", nullFloat(out.Amount)).
		Set("regatta_name", nullString(out.RegattaName)).
		Set("feedback", nullString(out.Feedback)).
		Set("ocr_quality", nullFloat32(out.OCRQuality)).
		Set("result_json", resultJSON).
		Set("finished_at", r.now()).
		Where(entsql.EQ("id", jobID.String()))
	n, err := r.exec(ctx, upd)
	if err != nil {
		r.log.Error("extract_job finish failed", "job_id", jobID, "err", err)
		return common.NewAppError("DB_ERROR", "finish extract job", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("extract job %s", jobID), common.ErrNotFound)
	}
	r.log.Info("extract_job finished", "job_id", jobID, "status", status, "method", out.Method)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	upd := r.db.builder().Update(jobsTable).
		Set("status", string(constants.JobStatusFailed)).
		Set("success", false).
		Set("error_message", message).
		Set("finished_at", r.now()).
		Where(entsql.EQ("id", jobID.String()))
	n, err := r.exec(ctx, upd)
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return common.NewAppError("DB_ERROR", "fail extract job", errors.Join(common.ErrDatabase, err))
	}
	if n == 0 {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("extract job %s", jobID), common.ErrNotFound)
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	b := r.db.builder()
	sel := b.Select(jobColumns...).From(b.Table(jobsTable)).Where(entsql.EQ("id", jobID.String()))
	jobs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("extract job %s", jobID), common.ErrNotFound)
	}
	return jobs[0], nil
}

// List returns jobs newest first.
func (r *extractJobRepo) List(ctx context.Context, filter entity.JobFilter) ([]*entity.ExtractJob, error) {
	b := r.db.builder()
	var preds []*entsql.Predicate
	if filter.Kind != "" {
		preds = append(preds, entsql.EQ("kind", string(filter.Kind)))
	}
	if filter.Status != "" {
		preds = append(preds, entsql.EQ("status", string(filter.Status)))
	}
	if filter.ContentHash != "" {
		preds = append(preds, entsql.EQ("content_hash", filter.ContentHash))
	}
	if filter.Since != nil {
		preds = append(preds, entsql.GTE("started_at", filter.Since.UTC()))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	sel := b.Select(jobColumns...).From(b.Table(jobsTable))
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy(entsql.Desc("started_at")).Limit(limit)

	jobs, err := r.query(ctx, sel)
	if err != nil {
		r.log.Error("failed to list extract jobs", "error", err)
		return nil, err
	}
	return jobs, nil
}

func (r *extractJobRepo) query(ctx context.Context, q entsql.Querier) ([]*entity.ExtractJob, error) {
	query, args := q.Query()
	rows, err := r.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "query extract jobs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan extract job", errors.Join(common.ErrDatabase, err))
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("DB_ERROR", "iterate extract jobs", errors.Join(common.ErrDatabase, err))
	}
	return out, nil
}

func scanJob(rows *sql.Rows) (*entity.ExtractJob, error) {
	var (
		id, kind, hash, status   string
		sail, method, confidence sql.NullString
		name, feedback, errMsg   sql.NullString
		rank, total              sql.NullInt64
		amount, quality          sql.NullFloat64
		resultJSON               []byte
		success                  bool
		startedAt                time.Time
		finishedAt               sql.NullTime
	)
	if err := rows.Scan(&id, &kind, &hash, &sail, &status, &method, &success,
		&confidence, &rank, &total, &amount, &name,
		&feedback, &quality, &resultJSON, &errMsg, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	job := &entity.ExtractJob{
		ID:                uid,
		Kind:              constants.JobKind(kind),
		ContentHash:       hash,
		SailNumber:        strPtr(sail),
		Status:            constants.JobStatus(status),
		Method:            strPtr(method),
		Success:           success,
		Confidence:        strPtr(confidence),
		Rank:              intPtr(rank),
		TotalParticipants: intPtr(total),
		RegattaName:       strPtr(name),
		Feedback:          strPtr(feedback),
		ErrorMessage:      strPtr(errMsg),
		StartedAt:         startedAt,
	}
	if amount.Valid {
		job.Amount = &amount.Float64
	}
	if quality.Valid {
		q := float32(quality.Float64)
		job.OCRQuality = &q
	}
	if len(resultJSON) > 0 {
		job.ResultJSON = resultJSON
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return job, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat32(p *float32) any {
	if p == nil {
		return nil
	}
	return float64(*p)
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
