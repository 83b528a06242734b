// Package httpapi is the HTTP boundary of the recognizer.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/pipeline"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
)

const serviceName = "receipt-recognizer"

// Recognizer turns an uploaded receipt file into a record.
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string) (pipeline.Result, error)
}

// Exporter renders stored receipts as an XLSX workbook.
type Exporter interface {
	ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

// Deps wires the handlers. Receipts and Exporter are optional; their routes
// answer 404 when persistence is off.
type Deps struct {
	Logger     *slog.Logger
	Recognizer Recognizer
	Receipts   repository.ReceiptRepository
	Exporter   Exporter
	Upload     common.UploadConfig
	Timeout    time.Duration
}

// NewRouter builds the chi router with all routes configured.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Upload.MaxBytes <= 0 {
		d.Upload.MaxBytes = common.DefaultConfig().Upload.MaxBytes
	}
	h := &handler{deps: d, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS([]string{"*"}))
	if d.Timeout > 0 {
		r.Use(chimiddleware.Timeout(d.Timeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", common.ErrorTypeNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
	})

	r.Get("/health", h.health)
	r.Post("/recognize", h.recognize)
	r.Get("/receipts", h.listReceipts)
	r.Get("/receipts/{id}", h.getReceipt)
	r.Get("/export.xlsx", h.exportXLSX)
	return r
}
