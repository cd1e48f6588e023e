package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/joseph-ayodele/labex-extractor/internal/async"
	"github.com/joseph-ayodele/labex-extractor/internal/common"
	"github.com/joseph-ayodele/labex-extractor/internal/export"
	"github.com/joseph-ayodele/labex-extractor/internal/ingest"
	"github.com/joseph-ayodele/labex-extractor/internal/pipeline"
	repo "github.com/joseph-ayodele/labex-extractor/internal/repository"
	"github.com/joseph-ayodele/labex-extractor/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close(logger)

	if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(ctx, db, logger); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	jobsRepo := repo.NewExtractJobRepository(db, logger)
	processor := pipeline.NewFromConfig(cfg, jobsRepo, logger)
	stager := ingest.NewStager(cfg.Staging.Dir, cfg.Server.MaxUploadBytes, logger)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		api := &server.ReportsAPI{
			Processor: processor,
			Jobs:      jobsRepo,
			Stager:    stager,
			Queue:     queue,
			Export:    export.NewService(jobsRepo, logger),
			Ping:      func(ctx context.Context) error { return repo.HealthCheck(ctx, db, time.Second, logger) },
			MaxUpload: cfg.Server.MaxUploadBytes,
			Logger:    logger,
		}
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("labexd http listening", "addr", cfg.Server.HTTPAddr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve error", "error", err)
				stop()
			}
		}()
	}

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		server.RegisterGRPC(grpcServer, server.NewExtractionService(stager, processor, logger))

		logger.Info("labexd grpc listening", "addr", cfg.Server.GRPCAddr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "error", err)
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	queue.Shutdown(shutdownCtx)
}
