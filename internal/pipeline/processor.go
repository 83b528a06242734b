package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/cache"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
	"github.com/joseph-ayodele/receipt-recognizer/internal/extract"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
	"github.com/joseph-ayodele/receipt-recognizer/internal/schema"
	"github.com/joseph-ayodele/receipt-recognizer/internal/utils"
)

// Result is the outcome of recognizing one file.
type Result struct {
	Record    parser.Record
	FileHash  string
	ReceiptID uuid.UUID // uuid.Nil when persistence is off
	Status    constants.Status
	Cached    bool
	OCR       extract.OCRText
}

// Processor runs OCR, QR decoding and parsing for a receipt file, then
// enriches, validates and optionally caches and stores the record.
type Processor struct {
	logger   *slog.Logger
	ocr      extract.TextExtractor
	qr       extract.QRDecoder
	parser   *parser.Parser
	cache    cache.Client
	cacheTTL time.Duration
	receipts repository.ReceiptRepository
}

type Option func(*Processor)

// WithQRDecoder enables the QR stage.
func WithQRDecoder(d extract.QRDecoder) Option {
	return func(p *Processor) { p.qr = d }
}

// WithCache stores serialized records keyed by file hash.
func WithCache(c cache.Client, ttl time.Duration) Option {
	return func(p *Processor) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithRepository persists every recognized record.
func WithRepository(r repository.ReceiptRepository) Option {
	return func(p *Processor) { p.receipts = r }
}

// WithParser replaces the default parser.
func WithParser(ps *parser.Parser) Option {
	return func(p *Processor) {
		if ps != nil {
			p.parser = ps
		}
	}
}

func NewProcessor(logger *slog.Logger, ocr extract.TextExtractor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{logger: logger, ocr: ocr}
	for _, o := range opts {
		o(p)
	}
	if p.parser == nil {
		p.parser = parser.New(parser.WithLogger(logger))
	}
	return p
}

// RecognizeFile recognizes the receipt stored at path.
func (p *Processor) RecognizeFile(ctx context.Context, path string) (Result, error) {
	log := common.LoggerFromContext(ctx, p.logger)

	hash, size, err := utils.HashFile(path)
	if err != nil {
		return Result{Status: constants.StatusFailed}, fmt.Errorf("read file: %w", err)
	}
	if size == 0 {
		return Result{FileHash: hash, Status: constants.StatusFailed}, common.ErrEmptyFile
	}

	if res, ok := p.lookup(ctx, log, hash); ok {
		return res, nil
	}

	// 1) OCR
	ocrRes, err := p.ocr.Extract(ctx, path)
	if err != nil {
		log.Error("processor.ocr.failed", "path", path, "err", err)
		return Result{FileHash: hash, Status: constants.StatusFailed, OCR: ocrRes},
			fmt.Errorf("%w: %w", common.ErrRecognition, err)
	}
	log.Info("processor.ocr.ok",
		"path", path,
		"method", ocrRes.Method,
		"pages", ocrRes.Pages,
		"confidence", ocrRes.Confidence,
	)

	// 2) QR
	var qrValue string
	if p.qr != nil {
		if v, ok := p.qr.Decode(ctx, path); ok {
			qrValue = v
			log.Info("processor.qr.ok", "path", path)
		} else {
			log.Info("processor.qr.none", "path", path)
		}
	}

	// 3) parse + enrich
	rec := p.parser.ParseText(ocrRes.Text)
	Enrich(&rec, qrValue, ocrRes.Text)
	log.Info("processor.parse.ok", "path", path, "services", len(rec.Services))

	body, err := json.Marshal(rec)
	if err != nil {
		return Result{FileHash: hash, Status: constants.StatusFailed}, fmt.Errorf("%w: encode record: %v", common.ErrInternal, err)
	}
	if err := schema.Validate(body); err != nil {
		log.Error("processor.schema.failed", "path", path, "err", err)
		return Result{FileHash: hash, Status: constants.StatusFailed}, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	res := Result{Record: rec, FileHash: hash, Status: constants.StatusRecognized, OCR: ocrRes}
	if p.receipts != nil {
		stored := &entity.Receipt{FileHash: hash, SourcePath: path, Record: rec}
		created, err := p.receipts.Save(ctx, stored)
		if err != nil {
			return res, err
		}
		res.ReceiptID = stored.ID
		if !created {
			res.Status = constants.StatusDuplicate
			res.Record = stored.Record
		}
	}
	p.store(ctx, log, hash, body)
	return res, nil
}

// RecognizeText parses already extracted OCR text.
func (p *Processor) RecognizeText(text string) parser.Record {
	return p.parser.ParseText(text)
}

// lookup answers from the cache, then the repository, before any OCR runs.
func (p *Processor) lookup(ctx context.Context, log *slog.Logger, hash string) (Result, bool) {
	if p.cache != nil {
		body, err := p.cache.Get(ctx, cache.Key("record", hash))
		switch {
		case err == nil:
			var rec parser.Record
			if err := json.Unmarshal(body, &rec); err == nil {
				log.Info("processor.cache.hit", "file_hash", hash)
				return Result{Record: rec, FileHash: hash, Status: constants.StatusRecognized, Cached: true}, true
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			log.Warn("processor.cache.failed", "file_hash", hash, "err", err)
		}
	}
	if p.receipts != nil {
		stored, err := p.receipts.GetByHash(ctx, hash)
		if err == nil {
			log.Info("processor.dedup.hit", "file_hash", hash, "receipt_id", stored.ID)
			return Result{Record: stored.Record, FileHash: hash, ReceiptID: stored.ID, Status: constants.StatusDuplicate}, true
		}
		if !errors.Is(err, common.ErrNotFound) {
			log.Warn("processor.dedup.failed", "file_hash", hash, "err", err)
		}
	}
	return Result{}, false
}

func (p *Processor) store(ctx context.Context, log *slog.Logger, hash string, body []byte) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, cache.Key("record", hash), body, p.cacheTTL); err != nil {
		log.Warn("processor.cache.failed", "file_hash", hash, "err", err)
	}
}
