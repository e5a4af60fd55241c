package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
	"github.com/joseph-ayodele/regatta-tracker/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// JobExporter is satisfied by *export.Service.
type JobExporter interface {
	ExportJobsXLSX(ctx context.Context, filter entity.JobFilter) ([]byte, error)
}

// HealthFunc reports whether the service's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

// API serves the HTTP surface. jobs, exporter and health may be nil, in
// which case the routes depending on them answer 503.
type API struct {
	proc     Processor
	jobs     repository.ExtractJobRepository
	exporter JobExporter
	health   HealthFunc
	timeout  time.Duration
	logger   *slog.Logger
}

type APIOption func(*API)

func WithJobRepository(jobs repository.ExtractJobRepository) APIOption {
	return func(a *API) { a.jobs = jobs }
}

func WithExporter(e JobExporter) APIOption { return func(a *API) { a.exporter = e } }
func WithHealth(fn HealthFunc) APIOption  { return func(a *API) { a.health = fn } }

// WithRequestTimeout bounds every request handled by the router.
func WithRequestTimeout(d time.Duration) APIOption {
	return func(a *API) { a.timeout = d }
}

func NewAPI(proc Processor, logger *slog.Logger, opts ...APIOption) *API {
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{proc: proc, logger: logger}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Router builds the chi router.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(a.logger))
	r.Use(middleware.RealIP)
	r.Use(accessLog(a.logger))
	r.Use(middleware.Recoverer)
	if a.timeout > 0 {
		r.Use(middleware.Timeout(a.timeout))
	}

	r.Get("/healthz", a.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/regatta/extract", a.extractRegatta)
		r.Post("/invoice/amount", a.extractInvoice)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", a.listJobs)
			r.Get("/export.xlsx", a.exportJobs)
			r.Get("/{id}", a.getJob)
		})
	})
	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			common.LoggerFromContext(r.Context(), a.logger).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) extractRegatta(w http.ResponseWriter, r *http.Request) {
	var req RegattaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	resp := a.proc.ExtractRegatta(r.Context(), req.ToDomain(nil))
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) extractInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	resp := a.proc.ExtractInvoice(r.Context(), req.PDFBase64, nil)
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	if a.jobs == nil {
		writeUnavailable(w, "job log")
		return
	}
	filter, err := parseJobFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	jobs, err := a.jobs.List(r.Context(), filter)
	if err != nil {
		common.LoggerFromContext(r.Context(), a.logger).Error("jobs.list.failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	if a.jobs == nil {
		writeUnavailable(w, "job log")
		return
	}
	raw := chi.URLParam(r, "id")
	if err := common.ValidateAndReturnError(common.NewValidator().Field("id", raw, common.Required, common.UUID)); err != nil {
		writeError(w, err)
		return
	}
	job, err := a.jobs.GetByID(r.Context(), uuid.MustParse(raw))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) exportJobs(w http.ResponseWriter, r *http.Request) {
	if a.exporter == nil {
		writeUnavailable(w, "export")
		return
	}
	filter, err := parseJobFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	xlsx, err := a.exporter.ExportJobsXLSX(r.Context(), filter)
	if err != nil {
		common.LoggerFromContext(r.Context(), a.logger).Error("export.xlsx.failed", "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="extract-jobs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

// parseJobFilter reads kind, status, hash, since (YYYY-MM-DD or RFC 3339)
// and limit from the query string.
func parseJobFilter(r *http.Request) (entity.JobFilter, error) {
	q := r.URL.Query()
	var f entity.JobFilter

	if k := strings.ToUpper(strings.TrimSpace(q.Get("kind"))); k != "" {
		switch constants.JobKind(k) {
		case constants.JobKindRegatta, constants.JobKindInvoice:
			f.Kind = constants.JobKind(k)
		default:
			return f, common.InvalidArgumentErrorf("kind must be REGATTA or INVOICE, got %q", k)
		}
	}
	if s := strings.ToUpper(strings.TrimSpace(q.Get("status"))); s != "" {
		switch constants.JobStatus(s) {
		case constants.JobStatusRunning, constants.JobStatusOK, constants.JobStatusDegraded, constants.JobStatusFailed:
			f.Status = constants.JobStatus(s)
		default:
			return f, common.InvalidArgumentErrorf("unknown status %q", s)
		}
	}
	f.ContentHash = strings.ToLower(strings.TrimSpace(q.Get("hash")))

	if s := strings.TrimSpace(q.Get("since")); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t, err = time.Parse("2006-01-02", s)
		}
		if err != nil {
			return f, common.InvalidArgumentError("since must be YYYY-MM-DD or RFC 3339")
		}
		f.Since = &t
	}
	if s := strings.TrimSpace(q.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return f, common.InvalidArgumentError("limit must be a positive integer")
		}
		f.Limit = n
	}
	return f, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, int64(maxPayloadChars)+4096)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
		case errors.Is(err, io.EOF):
			writeError(w, common.InvalidArgumentError("request body is required"))
		default:
			writeError(w, common.InvalidArgumentErrorf("invalid request body: %v", err))
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), errorBody(status.Convert(toStatus(err)).Message()))
}

func writeUnavailable(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, errorBody(what+" is not configured"))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
