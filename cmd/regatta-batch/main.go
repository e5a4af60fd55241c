package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/regatta-tracker/constants"
	"github.com/joseph-ayodele/regatta-tracker/internal/app"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/async"
	"github.com/joseph-ayodele/regatta-tracker/internal/entity"
	"github.com/joseph-ayodele/regatta-tracker/internal/export"
	"github.com/joseph-ayodele/regatta-tracker/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to process PDFs from (required)")
		sail       = flag.String("sail", "", "sail number to look for in result lists (required for -kind regatta)")
		kindStr    = flag.String("kind", "regatta", "regatta or invoice")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		watch      = flag.Bool("watch", false, "keep running and process PDFs as they appear")
		workers    = flag.Int("workers", 2, "concurrent extractions")
		configPath = flag.String("config", os.Getenv("REGATTA_CONFIG"), "optional YAML config file")
		noDB       = flag.Bool("no-db", false, "do not record extraction jobs")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	kind := constants.JobKind(strings.ToUpper(*kindStr))
	switch kind {
	case constants.JobKindRegatta:
		if strings.TrimSpace(*sail) == "" {
			printError("Error: --sail is required for regatta result lists\n")
			os.Exit(1)
		}
	case constants.JobKindInvoice:
	default:
		printError("Error: --kind must be regatta or invoice\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), strings.ToLower(string(kind))+"-results.xlsx")
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Format = "json"
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if *noDB {
		opts = append(opts, app.WithoutDB())
	}
	a, err := app.Build(ctx, cfg, logger, opts...)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		mu       sync.Mutex
		outcomes []async.Outcome
		bar      *progressbar.ProgressBar
	)
	queue := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(*workers),
		async.WithProcessTimeout(cfg.Extraction.Timeout+30*time.Second),
		async.WithOnResult(func(o async.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, o)
			if bar != nil {
				_ = bar.Add(1)
			}
		}),
	)
	ingestor := ingest.NewFSIngestor(queue, kind, *sail, logger)

	if *watch {
		runWatch(ctx, ingestor, *dir, logger)
	} else {
		results, stats, err := ingestor.IngestDirectory(ctx, *dir, true)
		if err != nil {
			logger.Error("failed to ingest directory", "error", err)
			os.Exit(1)
		}
		enqueued := 0
		for _, r := range results {
			if r.Enqueued {
				enqueued++
			}
		}
		mu.Lock()
		bar = progressbar.NewOptions(enqueued,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("extracting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionSetRenderBlankState(true),
		)
		_ = bar.Add(len(outcomes))
		mu.Unlock()
		logger.Info("ingestion complete",
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"enqueued", enqueued,
			"deduplicated", stats.Deduplicated,
			"failed", stats.Failed)
	}

	queue.Shutdown(context.Background())
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	mu.Lock()
	done := outcomes
	mu.Unlock()

	rows := make([]*entity.ExtractJob, 0, len(done))
	succeeded, degraded, failures := 0, 0, 0
	for _, o := range done {
		row := summaryRow(o)
		rows = append(rows, row)
		switch row.Status {
		case constants.JobStatusOK:
			succeeded++
		case constants.JobStatusDegraded:
			degraded++
		default:
			failures++
		}
	}

	xlsx, err := export.JobsWorkbook(rows)
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_processed", len(done),
		"succeeded", succeeded,
		"degraded", degraded,
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files processed: %d\n", len(done))
	fmt.Printf("- Found: %d\n", succeeded)
	fmt.Printf("- Needs review: %d\n", degraded)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}

// runWatch processes existing and newly arriving PDFs until ctx is done.
func runWatch(ctx context.Context, ingestor ingest.Ingestor, dir string, logger *slog.Logger) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    750 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching for PDFs", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok {
				logger.Warn("watcher error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return
			}
			if ingest.IsHidden(path) {
				continue
			}
			if _, err := ingestor.IngestPath(ctx, path); err != nil {
				logger.Warn("ingest failed", "path", path, "error", err)
			}
		}
	}
}

// summaryRow maps a queue outcome onto the job-log shape so the batch summary
// uses the same workbook layout as the job export, with or without a database.
func summaryRow(o async.Outcome) *entity.ExtractJob {
	started := o.Job.SubmittedAt
	finished := started.Add(o.Duration)
	row := &entity.ExtractJob{
		Kind:        o.Job.Kind,
		ContentHash: o.Job.ContentHash,
		Status:      constants.JobStatusFailed,
		StartedAt:   started,
		FinishedAt:  &finished,
	}
	file := filepath.Base(o.Job.Path)

	switch {
	case o.Err != nil:
		msg := o.Err.Error()
		row.ErrorMessage = &msg
		row.RegattaName = &file
	case o.Regatta != nil:
		res := o.Regatta.Result
		row.ID = o.Regatta.JobID
		row.Success = res.Success
		row.Status = statusOf(res.Success)
		sail := o.Job.SailNumber
		row.SailNumber = &sail
		name := fmt.Sprintf("%s (%s)", res.Metadata.Name, file)
		row.RegattaName = &name
		if res.Participant != nil {
			rank := res.Participant.Rank
			row.Rank = &rank
		}
		if res.Metadata.TotalParticipants > 0 {
			total := res.Metadata.TotalParticipants
			row.TotalParticipants = &total
		}
		confidence, method := string(res.Confidence), string(res.Method)
		row.Confidence, row.Method = &confidence, &method
		if res.Feedback != "" {
			row.Feedback = &res.Feedback
		}
	case o.Invoice != nil:
		res := o.Invoice.Result
		row.ID = o.Invoice.JobID
		row.Success = res.Success
		row.Status = statusOf(res.Success)
		row.RegattaName = &file
		if res.Success {
			amount := res.Amount
			row.Amount = &amount
		}
		method := string(res.Method)
		row.Method = &method
		if res.Feedback != "" {
			row.Feedback = &res.Feedback
		}
	}
	return row
}

func statusOf(success bool) constants.JobStatus {
	if success {
		return constants.JobStatusOK
	}
	return constants.JobStatusDegraded
}
