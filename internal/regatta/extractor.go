package regatta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

// Acquirer supplies document text; see package acquire.
type Acquirer interface {
	Acquire(ctx context.Context, raw *document.RawDocument, progress ocr.ProgressFunc) (document.Document, []string, error)
	ForceOCR(ctx context.Context, raw document.RawDocument, progress ocr.ProgressFunc) (document.Document, []string, error)
}

// Request is one extraction call.
type Request struct {
	PDFBase64  string
	SailNumber string
	Context    Enrichment
	Progress   ocr.ProgressFunc
}

type Option func(*Extractor)

// WithClock fixes "today" for placeholder names.
func WithClock(now func() time.Time) Option { return func(e *Extractor) { e.now = now } }

// WithCatalog swaps the boat class catalog.
func WithCatalog(c *Catalog) Option { return func(e *Extractor) { e.catalog = c } }

// Extractor runs the regatta pipeline. It holds no per-call state.
type Extractor struct {
	acq     Acquirer
	catalog *Catalog
	now     func() time.Time
	logger  *slog.Logger
}

func NewExtractor(acq Acquirer, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{acq: acq, catalog: DefaultCatalog, now: time.Now, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract never fails: every problem degrades the Result and is recorded in
// Issues, Feedback and Trace.
func (e *Extractor) Extract(ctx context.Context, req Request) Result {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger).With("sail_number", req.SailNumber)

	raw, err := document.DecodeBase64(req.PDFBase64)
	if err != nil {
		logger.Warn("regatta.decode_failed", "error", err)
		return e.degraded(req, "The uploaded file could not be read as a PDF.", err)
	}

	doc, trace, err := e.acq.Acquire(ctx, &raw, req.Progress)
	if err != nil {
		logger.Warn("regatta.no_text", "error", err)
		res := e.degraded(req, feedbackFor(err), err)
		res.Trace = append(trace, res.Trace...)
		return res
	}

	res := e.parse(doc, req.SailNumber, req.Context)
	res.Trace = append(trace, res.Trace...)

	if res.Participant == nil && doc.Method() == constants.MethodEmbeddedText && ctx.Err() == nil {
		res.Trace = append(res.Trace, "participant not found in text layer, retrying with ocr")
		ocrDoc, ocrTrace, err := e.acq.ForceOCR(ctx, raw, req.Progress)
		res.Trace = append(res.Trace, ocrTrace...)
		if err == nil {
			retry := e.parse(ocrDoc, req.SailNumber, req.Context)
			if retry.Participant != nil {
				retry.Trace = append(res.Trace, retry.Trace...)
				res = retry
			} else {
				res.Trace = append(res.Trace, "ocr pass did not find the participant either")
			}
		}
	}

	logger.Info("regatta.extracted",
		"success", res.Success,
		"confidence", res.Confidence,
		"method", res.Method,
		"issues", strings.Join(res.Issues, ","),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// ParseText runs the text-only part of the pipeline on already acquired text.
func (e *Extractor) ParseText(text, sail string, enr Enrichment) Result {
	return e.parse(document.FromText(text, constants.MethodEmbeddedText), sail, enr)
}

func (e *Extractor) parse(doc document.Document, sail string, enr Enrichment) Result {
	lines := doc.Lines()
	rawText := doc.Text()

	f := DetectFormat(lines)
	res := Result{Method: doc.Method(), Trace: []string{"format " + f.Name()}}
	if doc.Method() == constants.MethodOCR {
		res.OCRQuality = ocr.Quality(rawText)
	}

	md, mdTrace := ExtractMetadata(lines, e.catalog)
	res.Trace = append(res.Trace, mdTrace...)

	loc := LocateParticipant(lines, sail, f, rawText)
	res.Participant = loc.Participant
	res.Confidence = loc.Confidence
	res.Feedback = loc.Feedback
	for _, issue := range loc.Issues {
		res.Issues = append(res.Issues, common.IssueCode(issue))
	}
	if loc.Participant != nil {
		res.Trace = append(res.Trace, fmt.Sprintf("participant on line %d: rank %d from %d candidate(s)", loc.LineIndex+1, loc.Participant.Rank, len(loc.Candidates)))
	} else {
		res.Trace = append(res.Trace, "participant not located")
	}

	if md.BoatClass == "" && enr.BoatClass != "" {
		md.BoatClass = enr.BoatClass
		res.Trace = append(res.Trace, "boat class from context")
	}
	if loc.Participant != nil && e.catalog.CrewSize(md.BoatClass) > 1 {
		if crew, rule, ok := ExtractCrew(lines, loc.LineIndex, loc.SailEnd); ok {
			res.Crew = crew
			res.Trace = append(res.Trace, fmt.Sprintf("crew via %s", rule))
		}
	}

	census := TakeCensus(lines, f)
	res.AllResults = census.Rows
	md.TotalParticipants = census.TotalParticipants
	res.Trace = append(res.Trace, "census "+census.String())

	if res.Participant != nil && res.Participant.Name == "" && enr.SailorName != "" {
		res.Participant.Name = enr.SailorName
	}
	res.Metadata = md

	Score(&res, e.now)
	return res
}

// degraded is the result for calls that produced no text at all.
func (e *Extractor) degraded(req Request, feedback string, cause error) Result {
	res := Result{
		Confidence: constants.ConfidenceLow,
		Feedback:   feedback,
		Issues:     []string{common.IssueCode(cause)},
		Trace:      []string{cause.Error()},
	}
	res.Metadata.BoatClass = req.Context.BoatClass
	Score(&res, e.now)
	return res
}

func feedbackFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Extraction timed out; please fill in the result manually."
	case errors.Is(err, context.Canceled):
		return "Extraction was cancelled."
	case errors.Is(err, common.ErrDocumentUnreadable):
		return "The PDF could not be read."
	default:
		return "No text could be read from the PDF, neither embedded nor by OCR; please fill in the result manually."
	}
}
