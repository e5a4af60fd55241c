// Package app assembles the extraction pipeline and its supporting services
// from configuration. Every binary builds through here.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/regatta-tracker/internal/cache"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/acquire"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/textlayer"
	"github.com/joseph-ayodele/regatta-tracker/internal/export"
	"github.com/joseph-ayodele/regatta-tracker/internal/invoice"
	"github.com/joseph-ayodele/regatta-tracker/internal/regatta"
	repo "github.com/joseph-ayodele/regatta-tracker/internal/repository"
	"github.com/joseph-ayodele/regatta-tracker/internal/schema"
)

// App holds everything a binary needs. DB and Jobs are nil when built
// without the audit log.
type App struct {
	Config     *common.Config
	Logger     *slog.Logger
	DB         *repo.DB
	Jobs       repo.ExtractJobRepository
	Cache      cache.Cache
	Recognizer *ocr.Recognizer
	Processor  *core.Processor
	Export     *export.Service
}

type options struct {
	withoutDB    bool
	withoutCache bool
	recognizer   []ocr.Option
}

type Option func(*options)

// WithoutDB skips the audit log.
func WithoutDB() Option { return func(o *options) { o.withoutDB = true } }

// WithoutCache disables result caching regardless of config.
func WithoutCache() Option { return func(o *options) { o.withoutCache = true } }

// WithOCROptions passes options to the OCR recognizer.
func WithOCROptions(opts ...ocr.Option) Option {
	return func(o *options) { o.recognizer = append(o.recognizer, opts...) }
}

// Build wires the pipeline. On error everything opened so far is closed.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (a *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	a = &App{Config: cfg, Logger: logger, Cache: cache.Nop{}}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if !o.withoutDB {
		a.DB, err = repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return a, err
		}
		if err = repo.Migrate(ctx, a.DB, logger); err != nil {
			return a, err
		}
		a.Jobs = repo.NewExtractJobRepository(a.DB, logger)
		a.Export = export.NewService(a.Jobs, logger)
	}

	if !o.withoutCache {
		a.Cache, err = cache.New(ctx, cfg.Cache, logger)
		if err != nil {
			return a, err
		}
	}

	catalog := regatta.DefaultCatalog
	if path := cfg.Extraction.ClassCatalog; path != "" {
		src, rerr := os.ReadFile(path)
		if rerr != nil {
			return a, common.NewAppError("CONFIG_ERROR", "read class catalog", rerr)
		}
		if catalog, err = regatta.ParseCatalog(string(src)); err != nil {
			return a, common.NewAppError("CONFIG_ERROR", "parse class catalog", errors.Join(common.ErrInvalidInput, err))
		}
	}

	// a nil *ocr.Recognizer inside the interface would not read as "no fallback"
	var fallback acquire.OCR
	if cfg.OCR.Enabled {
		rec := ocr.New(ocr.ConfigFrom(cfg.OCR), logger, o.recognizer...)
		if ierr := rec.Initialize(ctx); ierr != nil {
			logger.Warn("ocr fallback disabled", "error", ierr)
		} else {
			a.Recognizer = rec
			fallback = rec
		}
	} else {
		logger.Info("ocr fallback disabled by config")
	}

	acq := acquire.New(textlayer.NewExtractor(cfg.OCR.MaxPages, logger), fallback, cfg.Extraction.MinTextChars, logger)

	validator, err := schema.Default()
	if err != nil {
		return a, err
	}

	popts := []core.ProcessorOption{
		core.WithCache(a.Cache, cfg.Cache.TTL),
		core.WithValidator(validator),
		core.WithTimeout(cfg.Extraction.Timeout),
	}
	if a.Jobs != nil {
		popts = append(popts, core.WithJobs(a.Jobs))
	}
	a.Processor = core.NewProcessor(logger,
		regatta.NewExtractor(acq, logger, regatta.WithCatalog(catalog)),
		invoice.NewExtractor(acq, logger),
		popts...,
	)
	return a, nil
}

// Close releases the OCR engine, the cache and the database.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Recognizer != nil {
		if err := a.Recognizer.Close(); err != nil {
			a.Logger.Warn("ocr close failed", "error", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("cache close failed", "error", err)
		}
	}
	repo.Close(a.DB, a.Logger)
}
