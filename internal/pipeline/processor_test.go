package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/cache"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/extract"
	"github.com/joseph-ayodele/receipt-recognizer/internal/ocr"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
)

const receiptText = "Кассовый чек\n01.02.2024 9:05\nИНН продавца 123456789012\nИтого 500,00 ₽"

const fnsLink = "https://lknpd.nalog.ru/api/v1/receipt/123456789012/20abc1def2/print"

type stubOCR struct {
	text  string
	err   error
	calls int
}

func (s *stubOCR) Extract(_ context.Context, _ string) (extract.OCRText, error) {
	s.calls++
	if s.err != nil {
		return extract.OCRText{}, s.err
	}
	return extract.OCRText{Text: s.text, Method: "image-ocr", Pages: 1, SourceType: constants.IMAGE}, nil
}

type stubQR struct{ value string }

func (s stubQR) Decode(context.Context, string) (string, bool) {
	return s.value, s.value != ""
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProcessor_RecognizeFile_EnrichesRecord(t *testing.T) {
	o := &stubOCR{text: receiptText}
	p := NewProcessor(nil, o, WithQRDecoder(stubQR{value: fnsLink}))

	res, err := p.RecognizeFile(context.Background(), writeFile(t, "jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, constants.StatusRecognized, res.Status)
	assert.Len(t, res.FileHash, 64)
	assert.Equal(t, "20abc1def2", parser.Value(res.Record.ReceiptNumber))
	assert.Equal(t, fnsLink, parser.Value(res.Record.FNSURL))
	assert.Equal(t, receiptText, parser.Value(res.Record.RawText))
	assert.Equal(t, "500.00", parser.Value(res.Record.TotalAmount))
	assert.Equal(t, "01.02.2024", parser.Value(res.Record.Date))
	assert.False(t, res.Cached)
}

func TestProcessor_RecognizeFile_NoQR(t *testing.T) {
	p := NewProcessor(nil, &stubOCR{text: receiptText}, WithQRDecoder(stubQR{}))

	res, err := p.RecognizeFile(context.Background(), writeFile(t, "x"))
	require.NoError(t, err)
	assert.Nil(t, res.Record.FNSURL)
	assert.Nil(t, res.Record.ReceiptNumber)
	assert.NotNil(t, res.Record.RawText)
}

func TestProcessor_RecognizeFile_MissingTotalIsPartialSuccess(t *testing.T) {
	p := NewProcessor(nil, &stubOCR{text: "Чек №AB12345678\n01.02.2024 14:05"})

	res, err := p.RecognizeFile(context.Background(), writeFile(t, "no-total"))
	require.NoError(t, err)
	assert.Equal(t, constants.StatusRecognized, res.Status)
	assert.Equal(t, "AB12345678", parser.Value(res.Record.ReceiptNumber))
	assert.Equal(t, "14:05", parser.Value(res.Record.Time))
	assert.Nil(t, res.Record.TotalAmount)
	assert.Empty(t, res.Record.Services)
}

func TestProcessor_RecognizeFile_CacheHitSkipsOCR(t *testing.T) {
	o := &stubOCR{text: receiptText}
	p := NewProcessor(nil, o, WithCache(cache.NewMemoryClient(10), time.Hour))
	path := writeFile(t, "same-bytes")

	first, err := p.RecognizeFile(context.Background(), path)
	require.NoError(t, err)
	second, err := p.RecognizeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, o.calls)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Record, second.Record)
}

func TestProcessor_RecognizeFile_PersistsAndDedups(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	repo := repository.NewReceiptRepository(db, nil)

	o := &stubOCR{text: receiptText}
	p := NewProcessor(nil, o, WithRepository(repo))
	path := writeFile(t, "stored-bytes")

	first, err := p.RecognizeFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusRecognized, first.Status)

	second, err := p.RecognizeFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDuplicate, second.Status)
	assert.Equal(t, first.ReceiptID, second.ReceiptID)
	assert.Equal(t, 1, o.calls)

	stored, err := repo.GetByID(ctx, first.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, path, stored.SourcePath)
}

func TestProcessor_RecognizeFile_Errors(t *testing.T) {
	t.Run("ocr failure", func(t *testing.T) {
		p := NewProcessor(nil, &stubOCR{err: ocr.ErrEmptyText})
		res, err := p.RecognizeFile(context.Background(), writeFile(t, "x"))
		assert.ErrorIs(t, err, common.ErrRecognition)
		assert.ErrorIs(t, err, ocr.ErrEmptyText)
		assert.Equal(t, constants.StatusFailed, res.Status)
	})
	t.Run("empty file", func(t *testing.T) {
		o := &stubOCR{text: receiptText}
		p := NewProcessor(nil, o)
		_, err := p.RecognizeFile(context.Background(), writeFile(t, ""))
		assert.ErrorIs(t, err, common.ErrEmptyFile)
		assert.Zero(t, o.calls)
	})
	t.Run("missing file", func(t *testing.T) {
		p := NewProcessor(nil, &stubOCR{})
		_, err := p.RecognizeFile(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
		assert.Error(t, err)
	})
}

func TestEnrich(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name       string
		number     *string
		qr         string
		wantNumber string
		wantURL    bool
	}{
		{name: "absent number", number: nil, qr: fnsLink, wantNumber: "20abc1def2", wantURL: true},
		{name: "short number", number: str("AB12"), qr: fnsLink, wantNumber: "20abc1def2", wantURL: true},
		{name: "digit misread", number: str("123456789"), qr: fnsLink, wantNumber: "20abc1def2", wantURL: true},
		{name: "plausible number kept", number: str("AB12345678"), qr: fnsLink, wantNumber: "AB12345678", wantURL: true},
		{name: "long digit number kept", number: str("1234567890"), qr: fnsLink, wantNumber: "1234567890", wantURL: true},
		{name: "non-url payload", number: nil, qr: "t=20240201T0905&s=500.00", wantNumber: "", wantURL: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := parser.Record{ReceiptNumber: tt.number, Services: []parser.Service{}}
			Enrich(&rec, tt.qr, "raw")

			assert.Equal(t, tt.wantNumber, parser.Value(rec.ReceiptNumber))
			assert.Equal(t, tt.wantURL, rec.FNSURL != nil)
			assert.Equal(t, "raw", parser.Value(rec.RawText))
		})
	}
}
