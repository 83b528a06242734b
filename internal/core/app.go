// Package core assembles the recognizer from configuration.
package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/receipt-recognizer/internal/cache"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/export"
	"github.com/joseph-ayodele/receipt-recognizer/internal/extract"
	"github.com/joseph-ayodele/receipt-recognizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-recognizer/internal/ocr"
	"github.com/joseph-ayodele/receipt-recognizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-recognizer/internal/qr"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
)

// App holds the wired components. DB, Receipts and Exporter are nil when no
// database is configured; Cache is nil when caching is off.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	Receipts  repository.ReceiptRepository
	Cache     cache.Client
	Processor *pipeline.Processor
	Ingestor  *ingest.FSIngestor
	Exporter  *export.Service

	logger *slog.Logger
}

// Build opens the configured stores and wires the recognition pipeline.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	if cfg.Database.DSN != "" {
		db, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.DB = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Receipts = repository.NewReceiptRepository(db, logger)
		a.Exporter = export.NewService(a.Receipts, logger)
	} else {
		logger.Warn("DB_URL not set, recognized receipts will not be stored")
	}

	switch cfg.Cache.Driver {
	case "memory":
		a.Cache = cache.NewMemoryClient(1024)
	case "redis":
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = rc
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:   cfg.OCR.Binary,
		TessdataDir: cfg.OCR.TessdataDir,
		Languages:   cfg.OCR.Languages,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		Timeout:     cfg.OCR.Timeout,
	}, logger)

	opts := []pipeline.Option{}
	if cfg.QR.Binary != "" {
		opts = append(opts, pipeline.WithQRDecoder(qr.NewDecoder(qr.Config{
			Zbarimg: cfg.QR.Binary,
			Timeout: cfg.QR.Timeout,
		}, nil, logger)))
	}
	if a.Cache != nil {
		opts = append(opts, pipeline.WithCache(a.Cache, cfg.Cache.TTL))
	}
	if a.Receipts != nil {
		opts = append(opts, pipeline.WithRepository(a.Receipts))
	}
	a.Processor = pipeline.NewProcessor(logger, extract.FromOCR(extractor), opts...)
	a.Ingestor = ingest.NewFSIngestor(a.Processor, a.Receipts, logger)
	return a, nil
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Error("failed to close cache", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
