package server

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
	"github.com/joseph-ayodele/receipt-recognizer/internal/ingest"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
)

type parserAdapter struct{ p *parser.Parser }

func (a parserAdapter) RecognizeText(text string) parser.Record { return a.p.ParseText(text) }

type stubRepo struct{ rec *entity.Receipt }

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
	return nil, nil
}

type stubIngestor struct{}

func (stubIngestor) IngestPath(_ context.Context, path string) (ingest.IngestionResult, error) {
	if path == "bad.gif" {
		return ingest.IngestionResult{}, fmt.Errorf("%w: gif", common.ErrUnsupportedFormat)
	}
	return ingest.IngestionResult{SourcePath: path, HashHex: "ff", Status: constants.StatusRecognized,
		Record: &parser.Record{Services: []parser.Service{}}}, nil
}
func (stubIngestor) IngestDirectory(context.Context, string, bool) ([]ingest.IngestionResult, ingest.DirStats, error) {
	return nil, ingest.DirStats{}, nil
}

type stubExporter struct{ from *time.Time }

func (s *stubExporter) ExportXLSX(_ context.Context, from, _ *time.Time) ([]byte, error) {
	s.from = from
	return []byte("xlsx"), nil
}

func dial(t *testing.T, svc RecognizerServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s, _ := NewGRPCServer(svc, nil)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRecognizer_ParseText(t *testing.T) {
	svc := NewRecognizerService(parserAdapter{parser.New()}, nil, nil, nil, nil)
	client := NewRecognizerClient(dial(t, svc))

	out, err := client.ParseText(context.Background(), wrapperspb.String("Чек №AB12345678\n01.02.2024 9:05\nИтого 500,00 ₽"))
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, "AB12345678", m["receipt_number"])
	assert.Equal(t, "500.00", m["total_amount"])
	assert.Nil(t, m["buyer_inn"])
	assert.Contains(t, m, "buyer_inn")
	assert.Equal(t, []any{}, m["services"])
}

func TestRecognizer_ParseText_Empty(t *testing.T) {
	svc := NewRecognizerService(parserAdapter{parser.New()}, nil, nil, nil, nil)
	client := NewRecognizerClient(dial(t, svc))

	_, err := client.ParseText(context.Background(), wrapperspb.String("  "))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecognizer_GetReceipt(t *testing.T) {
	stored := &entity.Receipt{ID: uuid.New(), FileHash: "abc", Record: parser.Record{Services: []parser.Service{}}}
	svc := NewRecognizerService(parserAdapter{parser.New()}, &stubRepo{rec: stored}, nil, nil, nil)
	client := NewRecognizerClient(dial(t, svc))
	ctx := context.Background()

	out, err := client.GetReceipt(ctx, wrapperspb.String(stored.ID.String()))
	require.NoError(t, err)
	assert.Equal(t, stored.ID.String(), out.AsMap()["id"])

	_, err = client.GetReceipt(ctx, wrapperspb.String(uuid.NewString()))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetReceipt(ctx, wrapperspb.String("nope"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecognizer_Unconfigured(t *testing.T) {
	svc := NewRecognizerService(parserAdapter{parser.New()}, nil, nil, nil, nil)
	client := NewRecognizerClient(dial(t, svc))
	ctx := context.Background()

	_, err := client.GetReceipt(ctx, wrapperspb.String(uuid.NewString()))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	_, err = client.IngestFile(ctx, wrapperspb.String("a.jpg"))
	assert.Equal(t, codes.Unavailable, status.Code(err))
	_, err = client.ExportReceipts(ctx, &structpb.Struct{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRecognizer_IngestFile(t *testing.T) {
	svc := NewRecognizerService(parserAdapter{parser.New()}, nil, stubIngestor{}, nil, nil)
	client := NewRecognizerClient(dial(t, svc))
	ctx := context.Background()

	out, err := client.IngestFile(ctx, wrapperspb.String("/inbox/a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "RECOGNIZED", out.AsMap()["status"])

	_, err = client.IngestFile(ctx, wrapperspb.String("bad.gif"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecognizer_ExportReceipts(t *testing.T) {
	exp := &stubExporter{}
	svc := NewRecognizerService(parserAdapter{parser.New()}, nil, nil, exp, nil)
	client := NewRecognizerClient(dial(t, svc))
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]any{"from_date": "2024-01-01"})
	require.NoError(t, err)
	out, err := client.ExportReceipts(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), out.GetValue())
	require.NotNil(t, exp.from)

	bad, err := structpb.NewStruct(map[string]any{"to_date": "01/02/2024"})
	require.NoError(t, err)
	_, err = client.ExportReceipts(ctx, bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth_Serving(t *testing.T) {
	svc := NewRecognizerService(parserAdapter{parser.New()}, nil, nil, nil, nil)
	hc := healthpb.NewHealthClient(dial(t, svc))

	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
