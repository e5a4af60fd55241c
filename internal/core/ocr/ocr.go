// Package ocr rasterizes PDF pages and recognizes their text when the
// embedded text layer is missing or too thin.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/document"
)

// DefaultLanguages covers German and English result sheets.
const DefaultLanguages = "deu+eng"

// ErrNotInitialized is returned by Recognize before Initialize succeeded.
var ErrNotInitialized = errors.New("ocr: not initialized")

type Config struct {
	Engine      string // "tesseract" | "gosseract"
	Rasterizer  string // "fitz" | "pdftoppm"
	Languages   string // tesseract syntax, default "deu+eng"
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm    string // if empty -> "pdftoppm"
	Pdfinfo     string // if empty -> "pdfinfo"
	TessdataDir string
	DPI         int // default 144
	MaxPages    int // 0 = no limit

	ArtifactCacheDir string // rendered pages keyed by content hash; empty disables
}

// ConfigFrom maps the application config section.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		Engine:      c.Engine,
		Rasterizer:  c.Rasterizer,
		Languages:   c.Languages,
		Tesseract:   c.Tesseract,
		Pdftoppm:    c.Pdftoppm,
		TessdataDir: c.TessdataDir,
		MaxPages:    c.MaxPages,

		ArtifactCacheDir: c.ArtifactCacheDir,
	}
}

// Progress is a page-scoped status update.
type Progress struct {
	Status string `json:"status"`
	Page   int    `json:"page,omitempty"`
	Total  int    `json:"total,omitempty"`
}

// ProgressFunc receives advisory status updates. It must not block.
type ProgressFunc func(Progress)

type Option func(*Recognizer)

func WithRunner(r Runner) Option         { return func(o *Recognizer) { o.runner = r } }
func WithEngine(e Engine) Option         { return func(o *Recognizer) { o.engine = e } }
func WithRasterizer(r Rasterizer) Option { return func(o *Recognizer) { o.rasterizer = r } }

// Recognizer is the OCR fallback. Call Initialize once before Recognize.
type Recognizer struct {
	cfg        Config
	logger     *slog.Logger
	runner     Runner
	engine     Engine
	rasterizer Rasterizer
	artifacts  artifactCache

	once    sync.Once
	initErr error
	ready   atomic.Bool
	mu      sync.Mutex // one document at a time keeps one bitmap alive
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Languages == "" {
		cfg.Languages = DefaultLanguages
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	r := &Recognizer{cfg: cfg, logger: logger, runner: ExecRunner{}}
	for _, o := range opts {
		o(r)
	}
	r.artifacts = artifactCache{dir: cfg.ArtifactCacheDir, logger: logger}
	return r
}

// Initialize builds the engine and rasterizer and verifies the engine is
// usable. It runs at most once; later calls return the first outcome.
func (r *Recognizer) Initialize(ctx context.Context) error {
	r.once.Do(func() {
		start := time.Now()
		if r.rasterizer == nil {
			switch r.cfg.Rasterizer {
			case "pdftoppm":
				r.rasterizer = PopplerRasterizer{
					Pdftoppm: r.cfg.Pdftoppm,
					Pdfinfo:  r.cfg.Pdfinfo,
					DPI:      r.cfg.DPI,
					Runner:   r.runner,
					Logger:   r.logger,
				}
			case "", "fitz":
				r.rasterizer = FitzRasterizer{DPI: r.cfg.DPI}
			default:
				r.initErr = fmt.Errorf("unknown rasterizer %q", r.cfg.Rasterizer)
				return
			}
		}
		if r.engine == nil {
			switch r.cfg.Engine {
			case "", "tesseract":
				r.engine = &TesseractCLI{
					Binary:      r.cfg.Tesseract,
					Languages:   r.cfg.Languages,
					TessdataDir: r.cfg.TessdataDir,
					Runner:      r.runner,
					Logger:      r.logger,
				}
			case "gosseract":
				r.engine, r.initErr = newGosseract(r.cfg)
				if r.initErr != nil {
					return
				}
			default:
				r.initErr = fmt.Errorf("unknown ocr engine %q", r.cfg.Engine)
				return
			}
		}
		if err := r.engine.Init(ctx); err != nil {
			r.initErr = fmt.Errorf("ocr init: %w", err)
			return
		}
		r.ready.Store(true)
		r.logger.Info("ocr initialized",
			"engine", r.cfg.Engine,
			"rasterizer", r.cfg.Rasterizer,
			"languages", r.cfg.Languages,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	if r.initErr != nil {
		r.logger.Error("ocr initialization failed", "error", r.initErr)
	}
	return r.initErr
}

// Close releases the engine.
func (r *Recognizer) Close() error {
	if r.engine == nil {
		return nil
	}
	return r.engine.Close()
}

// Recognize rasterizes and recognizes every page, strictly one after another.
// A page that fails is skipped; when no page yields text the call fails.
func (r *Recognizer) Recognize(ctx context.Context, raw document.RawDocument, progress ProgressFunc) (document.Document, error) {
	if !r.ready.Load() {
		return document.Document{}, ErrNotInitialized
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	report := safeProgress(progress, r.logger)
	report(Progress{Status: "Rendering document"})

	src, err := r.rasterizer.Open(ctx, raw.Payload)
	if err != nil {
		return document.Document{}, fmt.Errorf("rasterize: %v: %w", err, common.ErrDocumentUnreadable)
	}
	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Warn("closing rasterizer failed", "error", err)
		}
	}()

	total := src.NumPage()
	if r.cfg.MaxPages > 0 && total > r.cfg.MaxPages {
		total = r.cfg.MaxPages
	}

	var (
		doc     document.Document
		lastErr error
		failed  int
	)
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return document.Document{}, err
		}
		report(Progress{Status: fmt.Sprintf("Recognizing page %d of %d", page, total), Page: page, Total: total})

		txt, err := r.recognizePage(ctx, src, page)
		if err != nil {
			failed++
			lastErr = err
			r.logger.Warn("ocr page failed", "page", page, "error", err)
			continue
		}
		doc.Pages = append(doc.Pages, document.ExtractedPage{
			Number: page,
			Lines:  SplitLines(Normalize(txt)),
			Method: constants.MethodOCR,
		})
	}

	if failed > 0 && doc.Empty() {
		return document.Document{}, fmt.Errorf("ocr failed on %d of %d pages: %w", failed, total, lastErr)
	}

	report(Progress{Status: "Recognition finished", Page: total, Total: total})
	r.logger.Info("ocr finished",
		"pages", total,
		"failed_pages", failed,
		"chars", doc.CharCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// recognizePage keeps only one rendered bitmap reachable at a time.
func (r *Recognizer) recognizePage(ctx context.Context, src PageSource, page int) (string, error) {
	png, ok := r.artifacts.load(ctx, page, r.cfg.DPI)
	if !ok {
		var err error
		png, err = src.Render(ctx, page)
		if err != nil {
			return "", err
		}
		r.artifacts.store(ctx, page, r.cfg.DPI, png)
	}
	return r.engine.Recognize(ctx, png)
}

func safeProgress(fn ProgressFunc, logger *slog.Logger) ProgressFunc {
	if fn == nil {
		return func(Progress) {}
	}
	return func(p Progress) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Warn("progress callback panicked", "panic", fmt.Sprint(rec))
			}
		}()
		fn(p)
	}
}
