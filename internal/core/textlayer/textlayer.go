// Package textlayer reads the embedded text layer of a PDF and rebuilds its
// reading order from glyph positions.
package textlayer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
)

// LineGap is the vertical distance (PDF units) beyond which a glyph starts a
// new line.
const LineGap = 4.0

// Extractor pulls positioned text out of a PDF without rendering it.
type Extractor struct {
	maxPages int
	logger   *slog.Logger
}

func NewExtractor(maxPages int, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{maxPages: maxPages, logger: logger}
}

// Extract returns one ExtractedPage per readable page. Parser failures, panics
// included, come back as ErrDocumentUnreadable so the caller can fall back to
// OCR.
func (e *Extractor) Extract(ctx context.Context, raw *document.RawDocument) (doc document.Document, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("pdf text layer panicked", "panic", fmt.Sprint(r))
			doc = document.Document{}
			err = fmt.Errorf("text layer: %v: %w", r, common.ErrDocumentUnreadable)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw.Payload), int64(len(raw.Payload)))
	if err != nil {
		return document.Document{}, fmt.Errorf("open pdf: %v: %w", err, common.ErrDocumentUnreadable)
	}

	n := r.NumPage()
	raw.PageCount = n
	if e.maxPages > 0 && n > e.maxPages {
		n = e.maxPages
	}

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return document.Document{}, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		lines := Lines(p.Content().Text)
		doc.Pages = append(doc.Pages, document.ExtractedPage{
			Number: i,
			Lines:  lines,
			Method: constants.MethodEmbeddedText,
		})
	}

	e.logger.Debug("text layer extracted",
		"pages", n,
		"chars", doc.CharCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

type line struct {
	y      float64
	glyphs []pdf.Text
}

// Lines groups glyph fragments into text lines, top to bottom. Fragments on a
// line are ordered by X; touching fragments are merged into one word and
// separated ones are joined with a single space.
func Lines(texts []pdf.Text) []string {
	if len(texts) == 0 {
		return nil
	}
	glyphs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			glyphs = append(glyphs, t)
		}
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		if glyphs[i].Y != glyphs[j].Y {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var rows []*line
	for _, g := range glyphs {
		if len(rows) > 0 {
			cur := rows[len(rows)-1]
			if math.Abs(cur.y-g.Y) <= LineGap {
				cur.glyphs = append(cur.glyphs, g)
				continue
			}
		}
		rows = append(rows, &line{y: g.Y, glyphs: []pdf.Text{g}})
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if s := joinRow(row.glyphs); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinRow(glyphs []pdf.Text) string {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var b strings.Builder
	var prevEnd float64
	for i, g := range glyphs {
		if i > 0 {
			gap := g.X - prevEnd
			if gap > wordGap(g) && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prevEnd = g.X + width(g)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordGap(g pdf.Text) float64 {
	return math.Max(1, 0.2*g.FontSize)
}

// width falls back to half an em per rune when the font reports no advance.
func width(g pdf.Text) float64 {
	if g.W > 0 {
		return g.W
	}
	size := g.FontSize
	if size <= 0 {
		size = 10
	}
	return 0.5 * size * float64(utf8.RuneCountInString(g.S))
}
