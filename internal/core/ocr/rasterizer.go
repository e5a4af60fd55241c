package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI renders at twice the 72 dpi PDF user-space scale.
const DefaultDPI = 144

// Rasterizer opens a PDF for page-by-page rendering.
type Rasterizer interface {
	Open(ctx context.Context, pdf []byte) (PageSource, error)
}

// PageSource renders single pages to PNG. Pages are 1-based.
type PageSource interface {
	NumPage() int
	Render(ctx context.Context, page int) ([]byte, error)
	Close() error
}

// FitzRasterizer renders in-process with MuPDF.
type FitzRasterizer struct {
	DPI int
}

func (f FitzRasterizer) Open(_ context.Context, pdf []byte) (PageSource, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("fitz open: %w", err)
	}
	dpi := f.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &fitzPages{doc: doc, dpi: float64(dpi)}, nil
}

type fitzPages struct {
	mu  sync.Mutex
	doc *fitz.Document
	dpi float64
}

func (p *fitzPages) NumPage() int { return p.doc.NumPage() }

func (p *fitzPages) Render(ctx context.Context, page int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	png, err := p.doc.ImagePNG(page-1, p.dpi)
	if err != nil {
		return nil, fmt.Errorf("fitz render page %d: %w", page, err)
	}
	return png, nil
}

func (p *fitzPages) Close() error { return p.doc.Close() }

// PopplerRasterizer shells out to pdfinfo and pdftoppm.
type PopplerRasterizer struct {
	Pdftoppm string
	Pdfinfo  string
	DPI      int
	Runner   Runner
	Logger   *slog.Logger
}

var rePdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

func (p PopplerRasterizer) Open(ctx context.Context, pdf []byte) (PageSource, error) {
	if p.Pdftoppm == "" {
		p.Pdftoppm = "pdftoppm"
	}
	if p.Pdfinfo == "" {
		p.Pdfinfo = "pdfinfo"
	}
	if p.DPI <= 0 {
		p.DPI = DefaultDPI
	}
	if p.Runner == nil {
		p.Runner = ExecRunner{}
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	tmpDir, err := os.MkdirTemp("", "rt-pp-*")
	if err != nil {
		return nil, err
	}
	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}

	out, errb, err := p.Runner.Run(ctx, p.Pdfinfo, p.Logger, nil, in)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("pdfinfo: %w: %s", err, truncate(string(errb), 512))
	}
	m := rePdfinfoPages.FindSubmatch(out)
	if m == nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("pdfinfo: page count missing")
	}
	n, _ := strconv.Atoi(string(m[1]))

	return &popplerPages{cfg: p, dir: tmpDir, in: in, pages: n}, nil
}

type popplerPages struct {
	cfg   PopplerRasterizer
	dir   string
	in    string
	pages int
}

func (p *popplerPages) NumPage() int { return p.pages }

func (p *popplerPages) Render(ctx context.Context, page int) ([]byte, error) {
	prefix := filepath.Join(p.dir, fmt.Sprintf("page-%d", page))
	n := strconv.Itoa(page)
	// pdftoppm -r 144 -f n -l n -png -singlefile <in.pdf> <prefix>
	_, errb, err := p.cfg.Runner.Run(ctx, p.cfg.Pdftoppm, p.cfg.Logger, nil,
		"-r", strconv.Itoa(p.cfg.DPI), "-f", n, "-l", n, "-png", "-singlefile", p.in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	out := prefix + ".png"
	defer func() { _ = os.Remove(out) }()
	return os.ReadFile(out)
}

func (p *popplerPages) Close() error { return os.RemoveAll(p.dir) }
