package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/regatta-tracker/internal/app"
	"github.com/joseph-ayodele/regatta-tracker/internal/common"
	svc "github.com/joseph-ayodele/regatta-tracker/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("REGATTA_CONFIG"), "optional YAML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		common.NewLogger(common.LogConfig{}, os.Stderr).Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Ping DB to ensure connectivity
	if err := svc.PingDB(ctx, a.DB, logger, cfg.Database.DialTimeout); err != nil {
		os.Exit(1)
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(svc.UnaryRequestID(logger)),
		grpc.ChainStreamInterceptor(svc.StreamRequestID(logger)),
		grpc.MaxRecvMsgSize(64<<20),
	)
	healthServer := svc.RegisterExtractionService(grpcServer, svc.NewExtractionService(a.Processor, logger))

	api := svc.NewAPI(a.Processor, logger,
		svc.WithJobRepository(a.Jobs),
		svc.WithExporter(a.Export),
		svc.WithHealth(svc.DBHealth(a.DB, logger, cfg.Database.DialTimeout)),
		svc.WithRequestTimeout(cfg.Server.RequestTimeout),
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("regattad grpc listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		logger.Info("regattad http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
