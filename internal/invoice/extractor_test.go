package invoice

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

type fakeAcquirer struct {
	doc      document.Document
	err      error
	ocrDoc   document.Document
	ocrErr   error
	ocrCalls int
}

func (f *fakeAcquirer) Acquire(context.Context, *document.RawDocument, ocr.ProgressFunc) (document.Document, []string, error) {
	return f.doc, []string{"acquired"}, f.err
}

func (f *fakeAcquirer) ForceOCR(context.Context, document.RawDocument, ocr.ProgressFunc) (document.Document, []string, error) {
	f.ocrCalls++
	return f.ocrDoc, []string{"forced ocr"}, f.ocrErr
}

var pdfPayload = base64.StdEncoding.EncodeToString([]byte("%PDF-1.7\n"))

func TestParseTextSingleValueNotSummed(t *testing.T) {
	res := ParseText("Rechnung\nBetrag: 45,00\nBitte überweisen Sie 45,00 €", constants.MethodEmbeddedText)

	require.True(t, res.Success)
	assert.InDelta(t, 45.0, res.Amount, 0.001)
	assert.Equal(t, "EUR", res.Currency)
	assert.Len(t, res.Candidates, 2)
}

func TestParseTextNoAmount(t *testing.T) {
	res := ParseText("Vielen Dank für Ihre Meldung", constants.MethodEmbeddedText)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Feedback)
	assert.Equal(t, []string{"AMOUNT_NOT_FOUND"}, res.Issues)
}

func TestExtractFromTextLayer(t *testing.T) {
	acq := &fakeAcquirer{doc: document.FromText("Gesamt: 89,90 €", constants.MethodEmbeddedText)}
	res := NewExtractor(acq, nil).Extract(context.Background(), pdfPayload, nil)

	require.True(t, res.Success)
	assert.InDelta(t, 89.9, res.Amount, 0.001)
	assert.Equal(t, constants.MethodEmbeddedText, res.Method)
	assert.Zero(t, acq.ocrCalls)
}

func TestExtractSecondChanceOCR(t *testing.T) {
	acq := &fakeAcquirer{
		doc:    document.FromText("Rechnung siehe Anlage, keine Beträge im Textlayer vorhanden", constants.MethodEmbeddedText),
		ocrDoc: document.FromText("Summe: 120,00 €", constants.MethodOCR),
	}
	res := NewExtractor(acq, nil).Extract(context.Background(), pdfPayload, nil)

	require.True(t, res.Success)
	assert.Equal(t, 1, acq.ocrCalls)
	assert.InDelta(t, 120.0, res.Amount, 0.001)
	assert.Equal(t, constants.MethodOCR, res.Method)
	assert.Contains(t, res.Trace, "forced ocr")
}

func TestExtractNoText(t *testing.T) {
	acq := &fakeAcquirer{err: common.ErrNoTextAvailable}
	res := NewExtractor(acq, nil).Extract(context.Background(), pdfPayload, nil)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"NO_TEXT_AVAILABLE"}, res.Issues)
	assert.Zero(t, acq.ocrCalls)
}

func TestExtractUndecodable(t *testing.T) {
	res := NewExtractor(&fakeAcquirer{}, nil).Extract(context.Background(), "not base64 !!", nil)

	assert.False(t, res.Success)
	assert.Equal(t, []string{"DOCUMENT_UNREADABLE"}, res.Issues)
}
