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

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-recognizer/internal/async"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/core"
	"github.com/joseph-ayodele/receipt-recognizer/internal/httpapi"
	"github.com/joseph-ayodele/receipt-recognizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-recognizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-recognizer/internal/server"
)

func main() {
	// Messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfigFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := core.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build recognizer", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.DB != nil {
		if err := app.DB.HealthCheck(ctx, 5*time.Second); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
	}

	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
		async.WithResultHandler(func(job async.Job, res pipeline.Result, err error) {
			if err != nil {
				logger.Warn("inbox.rejected", "path", job.Path, "error_type", common.ErrorType(err), "status", res.Status)
			}
		}),
	)

	if len(cfg.Server.InboxDirs) > 0 {
		if err := watchInbox(ctx, cfg.Server.InboxDirs, queue, logger); err != nil {
			logger.Error("failed to watch inbox", "dirs", cfg.Server.InboxDirs, "error", err)
			os.Exit(1)
		}
	}

	// Typed-nil pointers must not leak into the optional interfaces.
	var exporter httpapi.Exporter
	var grpcExporter server.Exporter
	if app.Exporter != nil {
		exporter = app.Exporter
		grpcExporter = app.Exporter
	}

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr: cfg.Server.HTTPAddr,
			Handler: httpapi.NewRouter(httpapi.Deps{
				Logger:     logger,
				Recognizer: app.Processor,
				Receipts:   app.Receipts,
				Exporter:   exporter,
				Upload:     cfg.Upload,
				Timeout:    cfg.Queue.ProcessTimeout,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve error", "error", err)
				stop()
			}
		}()
	}

	var grpcSrv interface{ GracefulStop() }
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		var ing ingest.Ingestor
		if app.Ingestor != nil {
			ing = app.Ingestor
		}
		svc := server.NewRecognizerService(app.Processor, app.Receipts, ing, grpcExporter, logger)
		gs, _ := server.NewGRPCServer(svc, logger)
		grpcSrv = gs
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		go func() {
			if err := gs.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	queue.Shutdown(shutdownCtx)
}

// watchInbox feeds every receipt file dropped into dirs to the queue.
func watchInbox(ctx context.Context, dirs []string, queue async.Queue, logger *slog.Logger) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       dirs,
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	go func() {
		for err := range errs {
			logger.Warn("inbox.watch.error", "error", err)
		}
	}()
	go func() {
		for p := range paths {
			job := async.Job{Path: p, Source: "inbox", RequestID: uuid.NewString(), SubmittedAt: time.Now()}
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("inbox.enqueue.failed", "path", p, "error", err)
			}
		}
	}()
	return nil
}
