package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
)

// maxTextRunes bounds ParseText input.
const maxTextRunes = 1 << 16

// TextParser parses OCR text into a record.
type TextParser interface {
	RecognizeText(text string) parser.Record
}

// Exporter renders stored receipts as XLSX bytes.
type Exporter interface {
	ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

// RecognizerService implements RecognizerServer. Receipts, Ingestor and
// Exporter are optional; calls that need a missing one fail with Unavailable.
type RecognizerService struct {
	parser   TextParser
	receipts repository.ReceiptRepository
	ingestor ingest.Ingestor
	exporter Exporter
	logger   *slog.Logger
}

func NewRecognizerService(p TextParser, receipts repository.ReceiptRepository, ing ingest.Ingestor, exp Exporter, logger *slog.Logger) *RecognizerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecognizerService{parser: p, receipts: receipts, ingestor: ing, exporter: exp, logger: logger}
}

func (s *RecognizerService) ParseText(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text := req.GetValue()
	v := common.NewValidator().Field("value", text, common.Required, common.MaxLength(maxTextRunes))
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Error("parse text request invalid", "error", v.ErrorMessage())
		return nil, err
	}
	rec := s.parser.RecognizeText(text)
	s.logger.Info("grpc.parse_text.ok", "lines", strings.Count(text, "\n")+1, "services", len(rec.Services))
	return toStruct(rec)
}

func (s *RecognizerService) GetReceipt(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.receipts == nil {
		return nil, common.UnavailableError("persistence is not configured")
	}
	id := strings.TrimSpace(req.GetValue())
	v := common.NewValidator().Field("id", id, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	rec, err := s.receipts.GetByID(ctx, uuid.MustParse(id))
	if err != nil {
		s.logger.Error("failed to get receipt", "id", id, "error", err)
		return nil, common.GRPCError(err)
	}
	return toStruct(map[string]any{
		"id":          rec.ID.String(),
		"file_hash":   rec.FileHash,
		"source_path": rec.SourcePath,
		"created_at":  rec.CreatedAt.UTC().Format(time.RFC3339),
		"record":      rec.Record,
	})
}

func (s *RecognizerService) IngestFile(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.ingestor == nil {
		return nil, common.UnavailableError("ingestion is not configured")
	}
	path := strings.TrimSpace(req.GetValue())
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	s.logger.Info("starting file ingest", "path", path)
	r, err := s.ingestor.IngestPath(ctx, path)
	if err != nil {
		s.logger.Error("file ingest failed", "path", path, "error", err)
		return nil, common.GRPCError(err)
	}
	s.logger.Info("file ingest succeeded", "path", path, "receipt_id", r.ReceiptID, "deduplicated", r.Deduplicated)

	out := map[string]any{
		"source_path":  r.SourcePath,
		"file_hash":    r.HashHex,
		"status":       string(r.Status),
		"deduplicated": r.Deduplicated,
		"record":       r.Record,
	}
	if r.ReceiptID != uuid.Nil {
		out["receipt_id"] = r.ReceiptID.String()
	}
	return toStruct(out)
}

func (s *RecognizerService) ExportReceipts(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if s.exporter == nil {
		return nil, common.UnavailableError("persistence is not configured")
	}
	fields := req.GetFields()
	fromStr := strings.TrimSpace(fields["from_date"].GetStringValue())
	toStr := strings.TrimSpace(fields["to_date"].GetStringValue())
	v := common.NewValidator().
		Field("from_date", fromStr, common.Date("2006-01-02")).
		Field("to_date", toStr, common.Date("2006-01-02"))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	data, err := s.exporter.ExportXLSX(ctx, parseDay(fromStr), parseDay(toStr))
	if err != nil {
		s.logger.Error("export failed", "error", err)
		return nil, common.InternalErrorf("export: %v", err)
	}
	return wrapperspb.Bytes(data), nil
}

func parseDay(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// toStruct converts any JSON-serializable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode: %v", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode: %v", err)
	}
	return st, nil
}
