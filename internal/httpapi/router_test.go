package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
	"github.com/joseph-ayodele/receipt-recognizer/internal/pipeline"
)

type stubRecognizer struct {
	err      error
	gotPath  string
	gotBytes []byte
}

func (s *stubRecognizer) RecognizeFile(_ context.Context, path string) (pipeline.Result, error) {
	s.gotPath = path
	s.gotBytes, _ = os.ReadFile(path)
	if s.err != nil {
		return pipeline.Result{Status: constants.StatusFailed}, s.err
	}
	total := "500.00"
	return pipeline.Result{
		Status: constants.StatusRecognized,
		Record: parser.Record{TotalAmount: &total, Services: []parser.Service{}},
	}, nil
}

type stubRepo struct {
	rec *entity.Receipt
}

func (s *stubRepo) Save(context.Context, *entity.Receipt) (bool, error) { return true, nil }
func (s *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Receipt, error) {
	if s.rec == nil || s.rec.ID != id {
		return nil, fmt.Errorf("receipt: %w", common.ErrNotFound)
	}
	return s.rec, nil
}
func (s *stubRepo) GetByHash(context.Context, string) (*entity.Receipt, error) {
	return nil, common.ErrNotFound
}
func (s *stubRepo) List(context.Context, *time.Time, *time.Time) ([]*entity.Receipt, error) {
	if s.rec == nil {
		return nil, nil
	}
	return []*entity.Receipt{s.rec}, nil
}

type stubExporter struct{ from, to *time.Time }

func (s *stubExporter) ExportXLSX(_ context.Context, from, to *time.Time) ([]byte, error) {
	s.from, s.to = from, to
	return []byte("PK-xlsx"), nil
}

func upload(t *testing.T, field, filename, contentType string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/recognize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_Health(t *testing.T) {
	h := NewRouter(Deps{Recognizer: &stubRecognizer{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"receipt-recognizer"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Recognize_OK(t *testing.T) {
	stub := &stubRecognizer{}
	h := NewRouter(Deps{Recognizer: stub, Upload: common.UploadConfig{MaxBytes: 1 << 20, TempDir: t.TempDir()}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, upload(t, "file", "receipt.JPG", "image/jpeg", []byte("jpeg-bytes")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "500.00", data["total_amount"])
	assert.Equal(t, []any{}, data["services"])
	assert.Nil(t, data["receipt_number"])

	assert.Equal(t, []byte("jpeg-bytes"), stub.gotBytes)
	assert.Contains(t, stub.gotPath, ".jpg")
	_, err := os.Stat(stub.gotPath)
	assert.True(t, os.IsNotExist(err), "temp upload must be removed")
}

func TestRouter_Recognize_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		wantType string
	}{
		{
			name:     "missing field",
			req:      func(t *testing.T) *http.Request { return upload(t, "photo", "a.jpg", "image/jpeg", []byte("x")) },
			wantType: common.ErrorTypeNoFile,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/recognize", bytes.NewReader([]byte("{}")))
			},
			wantType: common.ErrorTypeNoFile,
		},
		{
			name:     "bad extension",
			req:      func(t *testing.T) *http.Request { return upload(t, "file", "a.gif", "image/jpeg", []byte("x")) },
			wantType: common.ErrorTypeInvalidFormat,
		},
		{
			name:     "bad mime",
			req:      func(t *testing.T) *http.Request { return upload(t, "file", "a.png", "text/plain", []byte("x")) },
			wantType: common.ErrorTypeInvalidFormat,
		},
		{
			name:     "empty file",
			req:      func(t *testing.T) *http.Request { return upload(t, "file", "a.png", "image/png", nil) },
			wantType: common.ErrorTypeEmptyFile,
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return upload(t, "file", "a.png", "image/png", bytes.Repeat([]byte("x"), 2048))
			},
			wantType: common.ErrorTypeFileTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubRecognizer{}
			h := NewRouter(Deps{Recognizer: stub, Upload: common.UploadConfig{MaxBytes: 1024, TempDir: t.TempDir()}})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req(t))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantType, body["error_type"])
			assert.NotEmpty(t, body["error"])
			assert.Empty(t, stub.gotPath)
		})
	}
}

func TestRouter_Recognize_OCRFailure(t *testing.T) {
	stub := &stubRecognizer{err: fmt.Errorf("%w: tesseract exploded", common.ErrRecognition)}
	h := NewRouter(Deps{Recognizer: stub, Upload: common.UploadConfig{MaxBytes: 1 << 20, TempDir: t.TempDir()}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, upload(t, "file", "a.png", "image/png", []byte("png")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, common.ErrorTypeOCRFailed, decode(t, rec)["error_type"])
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := NewRouter(Deps{Recognizer: &stubRecognizer{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recognize", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method_not_allowed", decode(t, rec)["error_type"])
}

func TestRouter_Preflight(t *testing.T) {
	h := NewRouter(Deps{Recognizer: &stubRecognizer{}})
	req := httptest.NewRequest(http.MethodOptions, "/recognize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_Receipts(t *testing.T) {
	stored := &entity.Receipt{
		ID:        uuid.New(),
		FileHash:  "abc",
		CreatedAt: time.Date(2024, 2, 1, 9, 5, 0, 0, time.UTC),
		Record:    parser.Record{Services: []parser.Service{{Name: "Доставка", Amount: "50.00"}}},
	}
	h := NewRouter(Deps{Recognizer: &stubRecognizer{}, Receipts: &stubRepo{rec: stored}})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/"+stored.ID.String(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)["data"].(map[string]any)
		assert.Equal(t, stored.ID.String(), data["id"])
		assert.Equal(t, "2024-02-01T09:05:00Z", data["created_at"])
	})
	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
	t.Run("bad id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts?from=2024-01-01", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["data"], 1)
	})
	t.Run("list bad date", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/receipts?to=01.02.2024", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_Receipts_PersistenceOff(t *testing.T) {
	h := NewRouter(Deps{Recognizer: &stubRecognizer{}})
	for _, path := range []string{"/receipts", "/receipts/" + uuid.NewString(), "/export.xlsx"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestRouter_ExportXLSX(t *testing.T) {
	exp := &stubExporter{}
	h := NewRouter(Deps{Recognizer: &stubRecognizer{}, Receipts: &stubRepo{}, Exporter: exp})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.xlsx?from=2024-01-01&to=2024-01-31", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PK-xlsx", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipts.xlsx")
	require.NotNil(t, exp.from)
	assert.Equal(t, 31, exp.to.Day())
}
