package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

func TestReadPDF(t *testing.T) {
	dir := t.TempDir()
	content := []byte("%PDF-1.7\nresults")

	pdf := filepath.Join(dir, "Results.PDF")
	require.NoError(t, os.WriteFile(pdf, content, 0o600))
	got, err := readPDF(pdf)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(content), got)

	png := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(png, content, 0o600))
	_, err = readPDF(png)
	assert.ErrorContains(t, err, "only PDF files")

	_, err = readPDF(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJobFilter(t *testing.T) {
	t.Cleanup(func() { jobsKind, jobsStatus, jobsSince, jobsLimit = "", "", "", 50 })

	jobsKind, jobsStatus, jobsSince, jobsLimit = "regatta", "degraded", "2024-06-20", 10
	f, err := jobFilter()
	require.NoError(t, err)
	assert.Equal(t, constants.JobKindRegatta, f.Kind)
	assert.Equal(t, constants.JobStatusDegraded, f.Status)
	assert.Equal(t, 10, f.Limit)
	require.NotNil(t, f.Since)
	assert.Equal(t, 20, f.Since.Day())

	jobsSince = "last week"
	_, err = jobFilter()
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestOCRProgressStaysQuietWithoutPages(t *testing.T) {
	var out bytes.Buffer
	p := newOCRProgress(&out)
	p.update(ocr.Progress{Status: "loading"})
	p.finish()
	assert.Nil(t, p.bar)
	assert.Empty(t, out.String())

	p.update(ocr.Progress{Status: "recognizing", Page: 1, Total: 3})
	assert.NotNil(t, p.bar)
}

func TestHelpers(t *testing.T) {
	assert.Same(t, good, confidenceColor(constants.ConfidenceHigh))
	assert.Same(t, warn, confidenceColor(constants.ConfidenceMedium))
	assert.Same(t, bad, confidenceColor(constants.ConfidenceLow))

	n := 17
	assert.Equal(t, "17", intOrDash(&n))
	assert.Equal(t, "-", intOrDash(nil))
	s := "Kieler Woche"
	assert.Equal(t, "Kieler Woche", deref(&s))
	assert.Equal(t, "-", deref(nil))
}
