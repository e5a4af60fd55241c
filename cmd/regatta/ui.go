package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
)

var (
	headline = color.New(color.Bold)
	good     = color.New(color.FgGreen)
	warn     = color.New(color.FgYellow)
	bad      = color.New(color.FgRed)
	faint    = color.New(color.Faint)
)

func confidenceColor(c constants.Confidence) *color.Color {
	switch c {
	case constants.ConfidenceHigh:
		return good
	case constants.ConfidenceMedium:
		return warn
	default:
		return bad
	}
}

// readPDF loads a file and base64-encodes it the way API callers send it.
func readPDF(path string) (string, error) {
	if !constants.IsPDFExt(filepath.Ext(path)) {
		return "", fmt.Errorf("%s: only PDF files are supported", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > constants.MaxDocumentBytes {
		return "", fmt.Errorf("%s: file is larger than %d MiB", path, constants.MaxDocumentBytes>>20)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ocrProgress renders OCR page progress on stderr. The bar only appears once
// OCR actually starts; embedded-text documents show nothing.
type ocrProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newOCRProgress(out io.Writer) *ocrProgress { return &ocrProgress{out: out} }

func (p *ocrProgress) update(u ocr.Progress) {
	if u.Total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(u.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("OCR"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set(u.Page)
}

func (p *ocrProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
