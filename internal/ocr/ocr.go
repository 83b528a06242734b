package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
)

var (
	// ErrEngineUnavailable means the OCR binary could not be found on the host.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	// ErrEmptyText means recognition ran but produced no text.
	ErrEmptyText = errors.New("ocr produced no text")
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Languages []string // default rus, eng
	DPI       int      // rasterization DPI for scanned PDFs, default 300
	MaxPages  int      // 0 = no limit

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // 6 treats the receipt as one uniform block of text
	OEM int // 3 = default engine mode

	Timeout time.Duration // per command; 0 = caller's context only
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithRunner replaces the host command runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"rus", "eng"}
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) lang() string { return strings.Join(e.cfg.Languages, "+") }

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "ext", ext, "lang", e.lang())

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	res.Duration = time.Since(start)
	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = ErrEmptyText
	}
	return res, err
}
