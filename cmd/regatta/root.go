package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/regatta-tracker/internal/app"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	"github.com/joseph-ayodele/regatta-tracker/internal/core"
	"github.com/joseph-ayodele/regatta-tracker/internal/core/ocr"
	svc "github.com/joseph-ayodele/regatta-tracker/internal/server"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	noDB    bool
	remote  string
)

var rootCmd = &cobra.Command{
	Use:           "regatta",
	Short:         "Extract regatta placements and invoice totals from PDFs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("REGATTA_CONFIG"), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline decisions to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noDB, "no-db", false, "do not record extraction jobs")
	rootCmd.PersistentFlags().StringVar(&remote, "remote", "", "call a running regattad at this gRPC address instead of extracting locally")
}

func loadConfig() (*common.Config, *slog.Logger, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logCfg := common.LogConfig{Level: "warn", Format: "text"}
	if verbose {
		logCfg.Level = "debug"
	}
	logger := common.NewLogger(logCfg, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// extractor hides whether extraction runs in-process or on a regattad.
type extractor interface {
	ExtractRegatta(ctx context.Context, req svc.RegattaRequest, progress ocr.ProgressFunc) (core.RegattaResponse, error)
	ExtractInvoice(ctx context.Context, req svc.InvoiceRequest, progress ocr.ProgressFunc) (core.InvoiceResponse, error)
	Close()
}

func newExtractor(ctx context.Context) (extractor, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if remote != "" {
		conn, err := grpc.NewClient(remote,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(64<<20)),
		)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", remote, err)
		}
		return &remoteExtractor{conn: conn, client: svc.NewExtractionClient(conn)}, nil
	}

	var opts []app.Option
	if noDB {
		opts = append(opts, app.WithoutDB())
	}
	a, err := app.Build(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &localExtractor{app: a}, nil
}

type localExtractor struct{ app *app.App }

func (l *localExtractor) ExtractRegatta(ctx context.Context, req svc.RegattaRequest, progress ocr.ProgressFunc) (core.RegattaResponse, error) {
	return l.app.Processor.ExtractRegatta(ctx, req.ToDomain(progress)), nil
}

func (l *localExtractor) ExtractInvoice(ctx context.Context, req svc.InvoiceRequest, progress ocr.ProgressFunc) (core.InvoiceResponse, error) {
	return l.app.Processor.ExtractInvoice(ctx, req.PDFBase64, progress), nil
}

func (l *localExtractor) Close() { l.app.Close() }

type remoteExtractor struct {
	conn   *grpc.ClientConn
	client *svc.ExtractionClient
}

func (r *remoteExtractor) ExtractRegatta(ctx context.Context, req svc.RegattaRequest, progress ocr.ProgressFunc) (core.RegattaResponse, error) {
	return r.client.ExtractRegattaStream(ctx, req, progress)
}

func (r *remoteExtractor) ExtractInvoice(ctx context.Context, req svc.InvoiceRequest, _ ocr.ProgressFunc) (core.InvoiceResponse, error) {
	return r.client.ExtractInvoiceAmount(ctx, req)
}

func (r *remoteExtractor) Close() { _ = r.conn.Close() }
