package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

// Currency is the only currency the patterns recognise.
const Currency = "EUR"

// Acquirer supplies document text; see package acquire.
type Acquirer interface {
	Acquire(ctx context.Context, raw *document.RawDocument, progress ocr.ProgressFunc) (document.Document, []string, error)
	ForceOCR(ctx context.Context, raw document.RawDocument, progress ocr.ProgressFunc) (document.Document, []string, error)
}

// Result is the outcome of one invoice extraction.
type Result struct {
	Success    bool                        `json:"success"`
	Amount     float64                     `json:"amount,omitempty"`
	Currency   string                      `json:"currency,omitempty"`
	Candidates []Candidate                 `json:"candidates,omitempty"`
	Method     constants.AcquisitionMethod `json:"method,omitempty"`
	OCRQuality float32                     `json:"ocrQuality,omitempty"`
	Feedback   string                      `json:"feedback,omitempty"`
	Issues     []string                    `json:"issues,omitempty"`
	Trace      []string                    `json:"trace,omitempty"`
}

type Extractor struct {
	acq    Acquirer
	logger *slog.Logger
}

func NewExtractor(acq Acquirer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{acq: acq, logger: logger}
}

// Extract reads the total from a base64 PDF. Like the regatta pipeline it
// never fails; problems end up in Feedback and Issues.
func (e *Extractor) Extract(ctx context.Context, pdfBase64 string, progress ocr.ProgressFunc) Result {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger)

	raw, err := document.DecodeBase64(pdfBase64)
	if err != nil {
		logger.Warn("invoice.decode_failed", "error", err)
		return failed("The uploaded file could not be read as a PDF.", err, nil)
	}

	doc, trace, err := e.acq.Acquire(ctx, &raw, progress)
	if err != nil {
		logger.Warn("invoice.no_text", "error", err)
		return failed("No text could be read from the invoice; please enter the amount manually.", err, trace)
	}

	res := ParseText(doc.Text(), doc.Method())
	res.Trace = append(trace, res.Trace...)

	if !res.Success && doc.Method() == constants.MethodEmbeddedText && ctx.Err() == nil {
		res.Trace = append(res.Trace, "no amount in text layer, retrying with ocr")
		ocrDoc, ocrTrace, err := e.acq.ForceOCR(ctx, raw, progress)
		res.Trace = append(res.Trace, ocrTrace...)
		if err == nil {
			if retry := ParseText(ocrDoc.Text(), ocrDoc.Method()); retry.Success {
				retry.Trace = append(res.Trace, retry.Trace...)
				res = retry
			}
		}
	}

	logger.Info("invoice.extracted",
		"success", res.Success,
		"amount", res.Amount,
		"candidates", len(res.Candidates),
		"method", res.Method,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// ParseText finds the total in already acquired text.
func ParseText(text string, method constants.AcquisitionMethod) Result {
	cands := FindCandidates(text)
	res := Result{
		Method:     method,
		Candidates: cands,
		Trace:      []string{fmt.Sprintf("%d amount candidate(s)", len(cands))},
	}
	best, ok := Total(cands)
	if !ok {
		res.Feedback = "No invoice amount was found; please enter it manually."
		res.Issues = []string{common.IssueCode(common.ErrAmountNotFound)}
		return res
	}
	if method == constants.MethodOCR {
		res.OCRQuality = ocr.Quality(text)
	}
	res.Success = true
	res.Amount = best.Value
	res.Currency = Currency
	res.Trace = append(res.Trace, fmt.Sprintf("total %.2f via %s", best.Value, best.Pattern))
	return res
}

func failed(feedback string, cause error, trace []string) Result {
	return Result{
		Feedback: feedback,
		Issues:   []string{common.IssueCode(cause)},
		Trace:    append(trace, cause.Error()),
	}
}
