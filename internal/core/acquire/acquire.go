// Package acquire decides how a document's text is obtained: the embedded
// text layer first, OCR when that is missing or too thin.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

// DefaultMinTextChars is the non-space character count below which the text
// layer is treated as absent.
const DefaultMinTextChars = 50

// TextLayer reads embedded text.
type TextLayer interface {
	Extract(ctx context.Context, raw *document.RawDocument) (document.Document, error)
}

// OCR recognizes rendered pages.
type OCR interface {
	Recognize(ctx context.Context, raw document.RawDocument, progress ocr.ProgressFunc) (document.Document, error)
}

type Acquirer struct {
	text         TextLayer
	ocr          OCR
	minTextChars int
	logger       *slog.Logger
}

// New builds an Acquirer. recognizer may be nil, which disables the fallback.
func New(text TextLayer, recognizer OCR, minTextChars int, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if minTextChars <= 0 {
		minTextChars = DefaultMinTextChars
	}
	return &Acquirer{text: text, ocr: recognizer, minTextChars: minTextChars, logger: logger}
}

// Acquire returns the best text it can get and a trace of the decisions made.
// An empty Document with a nil error never happens: when nothing usable is
// found the error wraps ErrNoTextAvailable.
func (a *Acquirer) Acquire(ctx context.Context, raw *document.RawDocument, progress ocr.ProgressFunc) (document.Document, []string, error) {
	var trace []string

	doc, err := a.text.Extract(ctx, raw)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return document.Document{}, trace, ctx.Err()
		}
		trace = append(trace, fmt.Sprintf("text layer unreadable: %v", err))
		a.logger.Info("text layer unreadable, falling back to ocr", "error", err)
	case doc.CharCount() < a.minTextChars:
		trace = append(trace, fmt.Sprintf("text layer has %d chars (< %d), falling back to ocr", doc.CharCount(), a.minTextChars))
		a.logger.Info("text layer too thin, falling back to ocr", "chars", doc.CharCount(), "min_chars", a.minTextChars)
	default:
		trace = append(trace, fmt.Sprintf("text layer: %d pages, %d chars", len(doc.Pages), doc.CharCount()))
		return doc, trace, nil
	}

	ocrDoc, ocrTrace, ocrErr := a.ForceOCR(ctx, *raw, progress)
	trace = append(trace, ocrTrace...)
	if ocrErr == nil {
		return ocrDoc, trace, nil
	}
	if errors.Is(ocrErr, context.Canceled) || errors.Is(ocrErr, context.DeadlineExceeded) {
		return document.Document{}, trace, ocrErr
	}

	// keep whatever the thin text layer had
	if err == nil && !doc.Empty() {
		trace = append(trace, "keeping thin text layer")
		return doc, trace, nil
	}
	return document.Document{}, trace, fmt.Errorf("%v: %w", ocrErr, common.ErrNoTextAvailable)
}

// ForceOCR runs the OCR stage unconditionally.
func (a *Acquirer) ForceOCR(ctx context.Context, raw document.RawDocument, progress ocr.ProgressFunc) (document.Document, []string, error) {
	if a.ocr == nil {
		return document.Document{}, []string{"ocr disabled"}, fmt.Errorf("ocr disabled: %w", common.ErrNoTextAvailable)
	}
	doc, err := a.ocr.Recognize(ctx, raw, progress)
	if err != nil {
		a.logger.Warn("ocr failed", "error", err)
		return document.Document{}, []string{fmt.Sprintf("ocr failed: %v", err)}, err
	}
	if doc.Empty() {
		return document.Document{}, []string{"ocr produced no text"}, fmt.Errorf("ocr produced no text: %w", common.ErrNoTextAvailable)
	}
	return doc, []string{fmt.Sprintf("ocr: %d pages, %d chars, quality %.2f", len(doc.Pages), doc.CharCount(), ocr.Quality(doc.Text()))}, nil
}
