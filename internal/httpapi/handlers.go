package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
)

const dateLayout = "2006-01-02"

type handler struct {
	deps   Deps
	logger *slog.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

// recognize handles POST /recognize with a multipart "file" field.
func (h *handler) recognize(w http.ResponseWriter, r *http.Request) {
	log := common.LoggerFromContext(r.Context(), h.logger)

	path, err := h.saveUpload(w, r)
	if err != nil {
		log.Warn("recognize.upload.rejected", "error", err)
		writeError(w, http.StatusBadRequest, uploadMessage(err), common.ErrorType(err))
		return
	}
	defer os.Remove(path)

	res, err := h.deps.Recognizer.RecognizeFile(r.Context(), path)
	if err != nil {
		log.Error("recognize.failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error(), common.ErrorType(err))
		return
	}
	writeData(w, res.Record)
}

// saveUpload validates the uploaded file and copies it to a temp file that
// keeps the original extension.
func (h *handler) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	limit := h.deps.Upload.MaxBytes
	// multipart framing rides on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return "", common.ErrFileTooLarge
		}
		return "", fmt.Errorf("%w: %v", common.ErrNoFile, err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", common.ErrNoFile
	}
	defer file.Close()

	if err := h.checkUpload(header); err != nil {
		return "", err
	}

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp(h.deps.Upload.TempDir, "upload_*."+ext)
	if err != nil {
		return "", fmt.Errorf("%w: temp file: %v", common.ErrInternal, err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write upload: %v", common.ErrInternal, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write upload: %v", common.ErrInternal, err)
	}
	return tmp.Name(), nil
}

func (h *handler) checkUpload(header *multipart.FileHeader) error {
	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	mime := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
	_, mimeOK := constants.UploadMIMETypes[mime]
	if !h.allowedExt(ext) || !mimeOK {
		return common.ErrUnsupportedFormat
	}
	if header.Size == 0 {
		return common.ErrEmptyFile
	}
	if header.Size > h.deps.Upload.MaxBytes {
		return common.ErrFileTooLarge
	}
	return nil
}

func (h *handler) allowedExt(ext string) bool {
	if len(h.deps.Upload.Extensions) == 0 {
		return constants.IsUploadExt(ext)
	}
	for _, e := range h.deps.Upload.Extensions {
		if constants.NormalizeExt(e) == ext {
			return true
		}
	}
	return false
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, common.ErrNoFile):
		return `no file uploaded; send it in the multipart field "file"`
	case errors.Is(err, common.ErrUnsupportedFormat):
		return "unsupported file format; use PNG, JPG or JPEG"
	case errors.Is(err, common.ErrEmptyFile):
		return "uploaded file is empty"
	case errors.Is(err, common.ErrFileTooLarge):
		return "file is too large"
	default:
		return err.Error()
	}
}

// getReceipt handles GET /receipts/{id}.
func (h *handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	if h.deps.Receipts == nil {
		writeError(w, http.StatusNotFound, "persistence is not configured", common.ErrorTypeNotFound)
		return
	}
	id := chi.URLParam(r, "id")
	v := common.NewValidator().Field("id", id, common.Required, common.UUID)
	if v.HasErrors() {
		writeError(w, http.StatusBadRequest, v.ErrorMessage(), "invalid_input")
		return
	}

	rec, err := h.deps.Receipts.GetByID(r.Context(), uuid.MustParse(id))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeData(w, receiptView(rec))
}

// listReceipts handles GET /receipts?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	if h.deps.Receipts == nil {
		writeError(w, http.StatusNotFound, "persistence is not configured", common.ErrorTypeNotFound)
		return
	}
	from, to, ok := dateWindow(w, r)
	if !ok {
		return
	}
	recs, err := h.deps.Receipts.List(r.Context(), from, to)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	out := make([]storedReceipt, 0, len(recs))
	for _, rec := range recs {
		out = append(out, receiptView(rec))
	}
	writeData(w, out)
}

// exportXLSX handles GET /export.xlsx?from=&to=.
func (h *handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if h.deps.Exporter == nil {
		writeError(w, http.StatusNotFound, "persistence is not configured", common.ErrorTypeNotFound)
		return
	}
	from, to, ok := dateWindow(w, r)
	if !ok {
		return
	}
	data, err := h.deps.Exporter.ExportXLSX(r.Context(), from, to)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "receipt not found", common.ErrorTypeNotFound)
		return
	}
	common.LoggerFromContext(r.Context(), h.logger).Error("store.failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error", common.ErrorTypeInternal)
}

func dateWindow(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	q := r.URL.Query()
	fromStr, toStr := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	v := common.NewValidator().
		Field("from", fromStr, common.Date(dateLayout)).
		Field("to", toStr, common.Date(dateLayout))
	if v.HasErrors() {
		writeError(w, http.StatusBadRequest, v.ErrorMessage(), "invalid_input")
		return nil, nil, false
	}
	return parseDay(fromStr), parseDay(toStr), true
}

func parseDay(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// storedReceipt is the JSON view of a persisted receipt.
type storedReceipt struct {
	ID         string `json:"id"`
	FileHash   string `json:"file_hash"`
	SourcePath string `json:"source_path"`
	CreatedAt  string `json:"created_at"`
	Record     any    `json:"record"`
}

func receiptView(r *entity.Receipt) storedReceipt {
	return storedReceipt{
		ID:         r.ID.String(),
		FileHash:   r.FileHash,
		SourcePath: r.SourcePath,
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
		Record:     r.Record,
	}
}
