package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
	"github.com/joseph-ayodele/regatta-tracker/internal/export"
)

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPExtractRegatta(t *testing.T) {
	proc := &stubProcessor{jobID: uuid.New()}
	h := NewAPI(proc, nil).Router()

	rec := do(t, h, http.MethodPost, "/v1/regatta/extract", RegattaRequest{
		PDFBase64:  samplePDF,
		SailNumber: "  GER 12345 ",
		SailorName: "Max Mustermann",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var resp core.RegattaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, proc.jobID, resp.JobID)
	assert.Equal(t, 17, resp.Result.Participant.Rank)
	assert.Equal(t, constants.ConfidenceHigh, resp.Result.Confidence)

	got := proc.lastRegatta()
	assert.Equal(t, "GER 12345", got.SailNumber)
	assert.Equal(t, "Max Mustermann", got.Context.SailorName)
}

func TestHTTPExtractRegattaRejectsBadRequests(t *testing.T) {
	h := NewAPI(&stubProcessor{}, nil).Router()

	tests := []struct {
		name string
		body any
		want string
	}{
		{"empty body", "", "request body is required"},
		{"unknown field", `{"pdfBase64":"JVBERg==","sailNumber":"GER 1","rank":3}`, "unknown field"},
		{"missing sail number", RegattaRequest{PDFBase64: samplePDF}, "sailNumber"},
		{"sail number without digits", RegattaRequest{PDFBase64: samplePDF, SailNumber: "GER"}, "sail number"},
		{"not base64", RegattaRequest{PDFBase64: "%%%not base64%%%", SailNumber: "GER 1"}, "base64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/regatta/extract", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestHTTPExtractInvoice(t *testing.T) {
	proc := &stubProcessor{}
	h := NewAPI(proc, nil).Router()

	rec := do(t, h, http.MethodPost, "/v1/invoice/amount", InvoiceRequest{PDFBase64: samplePDF})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp core.InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Success)
	assert.InDelta(t, 45.0, resp.Result.Amount, 0.001)
	assert.Equal(t, []string{samplePDF}, proc.invoices)

	rec = do(t, h, http.MethodPost, "/v1/invoice/amount", InvoiceRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPJobs(t *testing.T) {
	ctx := context.Background()
	jobs := newJobRepo(t)
	reg, err := jobs.Start(ctx, constants.JobKindRegatta, strings.Repeat("a", 64), "GER 12345")
	require.NoError(t, err)
	rank := 17
	require.NoError(t, jobs.Finish(ctx, reg.ID, entity.JobOutcome{Success: true, Rank: &rank, RegattaName: "Kieler Woche"}))
	inv, err := jobs.Start(ctx, constants.JobKindInvoice, strings.Repeat("b", 64), "")
	require.NoError(t, err)

	h := NewAPI(&stubProcessor{}, nil,
		WithJobRepository(jobs),
		WithExporter(export.NewService(jobs, nil)),
	).Router()

	t.Run("list all", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/jobs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Jobs []entity.ExtractJob `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Jobs, 2)
	})

	t.Run("filter by kind", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/jobs?kind=invoice", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Jobs []entity.ExtractJob `json:"jobs"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Jobs, 1)
		assert.Equal(t, inv.ID, body.Jobs[0].ID)
		assert.Equal(t, constants.JobStatusRunning, body.Jobs[0].Status)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/jobs/"+reg.ID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var job entity.ExtractJob
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		assert.Equal(t, constants.JobStatusOK, job.Status)
		require.NotNil(t, job.Rank)
		assert.Equal(t, 17, *job.Rank)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/jobs/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/jobs/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "must be a valid UUID")
	})

	t.Run("export", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/v1/jobs/export.xlsx?kind=REGATTA", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Jobs")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Contains(t, rows[1], "Kieler Woche")
	})
}

func TestHTTPJobsUnconfigured(t *testing.T) {
	h := NewAPI(&stubProcessor{}, nil).Router()
	for _, path := range []string{"/v1/jobs", "/v1/jobs/" + uuid.NewString(), "/v1/jobs/export.xlsx"} {
		rec := do(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHTTPHealthz(t *testing.T) {
	rec := do(t, NewAPI(&stubProcessor{}, nil).Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewAPI(&stubProcessor{}, nil, WithHealth(func(context.Context) error {
		return errors.New("connection refused")
	})).Router()
	rec = do(t, down, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHTTPKeepsCallerRequestID(t *testing.T) {
	h := NewAPI(&stubProcessor{}, nil).Router()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestParseJobFilter(t *testing.T) {
	tests := []struct {
		query   string
		wantErr bool
		check   func(t *testing.T, f entity.JobFilter)
	}{
		{"", false, func(t *testing.T, f entity.JobFilter) { assert.Equal(t, entity.JobFilter{}, f) }},
		{"kind=regatta&status=degraded&limit=5", false, func(t *testing.T, f entity.JobFilter) {
			assert.Equal(t, constants.JobKindRegatta, f.Kind)
			assert.Equal(t, constants.JobStatusDegraded, f.Status)
			assert.Equal(t, 5, f.Limit)
		}},
		{"since=2024-05-01", false, func(t *testing.T, f entity.JobFilter) {
			require.NotNil(t, f.Since)
			assert.Equal(t, "2024-05-01", f.Since.Format("2006-01-02"))
		}},
		{"since=2024-05-01T10:00:00Z&hash=ABC", false, func(t *testing.T, f entity.JobFilter) {
			require.NotNil(t, f.Since)
			assert.Equal(t, 10, f.Since.Hour())
			assert.Equal(t, "abc", f.ContentHash)
		}},
		{"kind=receipt", true, nil},
		{"status=done", true, nil},
		{"since=yesterday", true, nil},
		{"limit=0", true, nil},
		{"limit=ten", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/jobs?"+tt.query, nil)
			f, err := parseJobFilter(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}
