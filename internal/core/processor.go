package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/cache"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
	"github.com/joseph-ayodele/regatta-tracker/internal/invoice"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
	"github.com/joseph-ayodele/regatta-tracker/internal/repository"
	"github.com/joseph-ayodele/regatta-tracker/internal/schema"
)

const tracerName = "github.com/joseph-ayodele/regatta-tracker/internal/core"

// RegattaExtractor is satisfied by *regatta.Extractor.
type RegattaExtractor interface {
	Extract(ctx context.Context, req regatta.Request) regatta.Result
}

// InvoiceExtractor is satisfied by *invoice.Extractor.
type InvoiceExtractor interface {
	Extract(ctx context.Context, pdfBase64 string, progress ocr.ProgressFunc) invoice.Result
}

// RegattaResponse wraps a regatta result with its audit job.
type RegattaResponse struct {
	JobID  uuid.UUID      `json:"jobId,omitempty"`
	Cached bool           `json:"cached"`
	Result regatta.Result `json:"result"`
}

// InvoiceResponse wraps an invoice result with its audit job.
type InvoiceResponse struct {
	JobID  uuid.UUID      `json:"jobId,omitempty"`
	Cached bool           `json:"cached"`
	Result invoice.Result `json:"result"`
}

// Processor is the caller-side policy around the extraction pipelines:
// content hashing, result cache, job audit, tracing, timeouts and panic
// recovery. Extraction itself never returns errors.
type Processor struct {
	logger    *slog.Logger
	regatta   RegattaExtractor
	invoice   InvoiceExtractor
	jobs      repository.ExtractJobRepository
	cache     cache.Cache
	cacheTTL  time.Duration
	validator *schema.Validator
	timeout   time.Duration
	tracer    trace.Tracer
}

type ProcessorOption func(*Processor)

// WithJobs enables the audit log.
func WithJobs(jobs repository.ExtractJobRepository) ProcessorOption {
	return func(p *Processor) { p.jobs = jobs }
}

// WithCache enables result caching for ttl (0 keeps entries until evicted).
func WithCache(c cache.Cache, ttl time.Duration) ProcessorOption {
	return func(p *Processor) {
		if c != nil {
			p.cache = c
			p.cacheTTL = ttl
		}
	}
}

// WithValidator checks outgoing results against their JSON schema.
func WithValidator(v *schema.Validator) ProcessorOption {
	return func(p *Processor) { p.validator = v }
}

// WithTimeout bounds each extraction call.
func WithTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.timeout = d }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) ProcessorOption {
	return func(p *Processor) { p.tracer = t }
}

func NewProcessor(logger *slog.Logger, regattaX RegattaExtractor, invoiceX InvoiceExtractor, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:  logger,
		regatta: regattaX,
		invoice: invoiceX,
		cache:   cache.Nop{},
		tracer:  otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ExtractRegatta runs the regatta pipeline for one sail number.
func (p *Processor) ExtractRegatta(ctx context.Context, req regatta.Request) RegattaResponse {
	hash := contentHash(req.PDFBase64)
	ctx, span := p.tracer.Start(ctx, "regatta.extract", trace.WithAttributes(
		attribute.String("content_hash", hash),
		attribute.String("sail_number", req.SailNumber),
	))
	defer span.End()
	logger := common.LoggerFromContext(ctx, p.logger).With("content_hash", shortHash(hash), "sail_number", req.SailNumber)

	key := cache.RegattaKey(hash, req.SailNumber, req.Context.SailorName, req.Context.BoatClass)
	var resp RegattaResponse
	if p.lookup(ctx, key, &resp.Result) {
		span.SetAttributes(attribute.Bool("cached", true))
		logger.Debug("regatta.cache_hit")
		resp.Cached = true
		return resp
	}

	job := p.startJob(ctx, logger, constants.JobKindRegatta, hash, req.SailNumber)
	resp.JobID = job

	callCtx, cancel := p.withTimeout(ocr.WithContentHash(ctx, hash))
	defer cancel()

	res, panicErr := runGuarded(func() regatta.Result { return p.regatta.Extract(callCtx, req) })
	if panicErr != nil {
		logger.Error("regatta.panic", "error", panicErr)
		span.RecordError(panicErr)
		span.SetStatus(codes.Error, panicErr.Error())
		p.failJob(ctx, logger, job, panicErr)
		resp.Result = panicRegattaResult(panicErr)
		return resp
	}
	resp.Result = res

	span.SetAttributes(
		attribute.Bool("success", res.Success),
		attribute.String("confidence", string(res.Confidence)),
		attribute.String("method", string(res.Method)),
	)
	b, err := json.Marshal(res)
	if err != nil {
		logger.Error("regatta.marshal_failed", "error", err)
	}
	if p.validator != nil && b != nil {
		if err := p.validator.ValidateRegatta(b); err != nil {
			logger.Warn("regatta.schema_violation", "error", err)
		}
	}

	out := entity.JobOutcome{
		Method:      string(res.Method),
		Success:     res.Success,
		Confidence:  string(res.Confidence),
		RegattaName: res.Metadata.Name,
		Feedback:    res.Feedback,
		ResultJSON:  b,
	}
	if res.Participant != nil {
		rank := res.Participant.Rank
		out.Rank = &rank
	}
	if res.Metadata.TotalParticipants > 0 {
		total := res.Metadata.TotalParticipants
		out.TotalParticipants = &total
	}
	if res.OCRQuality > 0 {
		q := res.OCRQuality
		out.OCRQuality = &q
	}
	p.finishJob(ctx, logger, job, out)

	switch {
	case res.DatedName:
		logger.Debug("regatta.cache_skipped", "reason", "dated placeholder name")
	case callCtx.Err() == nil && b != nil:
		p.store(ctx, logger, key, b)
	}
	return resp
}

// ExtractInvoice runs the invoice pipeline.
func (p *Processor) ExtractInvoice(ctx context.Context, pdfBase64 string, progress ocr.ProgressFunc) InvoiceResponse {
	hash := contentHash(pdfBase64)
	ctx, span := p.tracer.Start(ctx, "invoice.extract", trace.WithAttributes(attribute.String("content_hash", hash)))
	defer span.End()
	logger := common.LoggerFromContext(ctx, p.logger).With("content_hash", shortHash(hash))

	key := cache.InvoiceKey(hash)
	var resp InvoiceResponse
	if p.lookup(ctx, key, &resp.Result) {
		span.SetAttributes(attribute.Bool("cached", true))
		logger.Debug("invoice.cache_hit")
		resp.Cached = true
		return resp
	}

	job := p.startJob(ctx, logger, constants.JobKindInvoice, hash, "")
	resp.JobID = job

	callCtx, cancel := p.withTimeout(ocr.WithContentHash(ctx, hash))
	defer cancel()

	res, panicErr := runGuarded(func() invoice.Result { return p.invoice.Extract(callCtx, pdfBase64, progress) })
	if panicErr != nil {
		logger.Error("invoice.panic", "error", panicErr)
		span.RecordError(panicErr)
		span.SetStatus(codes.Error, panicErr.Error())
		p.failJob(ctx, logger, job, panicErr)
		resp.Result = invoice.Result{
			Feedback: "Extraction failed unexpectedly; please enter the amount manually.",
			Issues:   []string{common.IssueCode(panicErr)},
		}
		return resp
	}
	resp.Result = res

	span.SetAttributes(attribute.Bool("success", res.Success), attribute.Float64("amount", res.Amount))
	b, err := json.Marshal(res)
	if err != nil {
		logger.Error("invoice.marshal_failed", "error", err)
	}
	if p.validator != nil && b != nil {
		if err := p.validator.ValidateInvoice(b); err != nil {
			logger.Warn("invoice.schema_violation", "error", err)
		}
	}

	out := entity.JobOutcome{
		Method:     string(res.Method),
		Success:    res.Success,
		Feedback:   res.Feedback,
		ResultJSON: b,
	}
	if res.Success {
		amount := res.Amount
		out.Amount = &amount
	}
	if res.OCRQuality > 0 {
		q := res.OCRQuality
		out.OCRQuality = &q
	}
	p.finishJob(ctx, logger, job, out)

	if callCtx.Err() == nil && b != nil {
		p.store(ctx, logger, key, b)
	}
	return resp
}

func (p *Processor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Processor) lookup(ctx context.Context, key string, v any) bool {
	b, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		p.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (p *Processor) store(ctx context.Context, logger *slog.Logger, key string, b []byte) {
	if err := p.cache.Set(ctx, key, b, p.cacheTTL); err != nil {
		logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Audit failures are logged and never fail the extraction.
func (p *Processor) startJob(ctx context.Context, logger *slog.Logger, kind constants.JobKind, hash, sail string) uuid.UUID {
	if p.jobs == nil {
		return uuid.Nil
	}
	job, err := p.jobs.Start(ctx, kind, hash, sail)
	if err != nil {
		logger.Warn("audit start failed", "error", err)
		return uuid.Nil
	}
	return job.ID
}

func (p *Processor) finishJob(ctx context.Context, logger *slog.Logger, id uuid.UUID, out entity.JobOutcome) {
	if p.jobs == nil || id == uuid.Nil {
		return
	}
	if err := p.jobs.Finish(context.WithoutCancel(ctx), id, out); err != nil {
		logger.Warn("audit finish failed", "job_id", id, "error", err)
	}
}

func (p *Processor) failJob(ctx context.Context, logger *slog.Logger, id uuid.UUID, cause error) {
	if p.jobs == nil || id == uuid.Nil {
		return
	}
	if err := p.jobs.FinishFailure(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		logger.Warn("audit finish failed", "job_id", id, "error", err)
	}
}

// runGuarded converts a panic in fn into an error wrapping ErrInternal.
func runGuarded[T any](fn func() T) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v: %w", r, common.ErrInternal)
		}
	}()
	return fn(), nil
}

func panicRegattaResult(err error) regatta.Result {
	res := regatta.Result{
		Confidence: constants.ConfidenceLow,
		Feedback:   "Extraction failed unexpectedly; please fill in the result manually.",
		Issues:     []string{common.IssueCode(err)},
	}
	regatta.Score(&res, time.Now)
	return res
}

// contentHash is the hex SHA-256 of the decoded PDF, or of the raw string
// when it does not decode.
func contentHash(pdfBase64 string) string {
	payload := []byte(pdfBase64)
	if raw, err := document.DecodeBase64(pdfBase64); err == nil {
		payload = raw.Payload
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
