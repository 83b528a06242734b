package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
)

type stubRepo struct {
	recs     []*entity.Receipt
	from, to *time.Time
}

func (s *stubRepo) Save(context.Context, *entity.Receipt) (bool, error) { return true, nil }
func (s *stubRepo) GetByID(context.Context, uuid.UUID) (*entity.Receipt, error) {
	return nil, nil
}
func (s *stubRepo) GetByHash(context.Context, string) (*entity.Receipt, error) { return nil, nil }
func (s *stubRepo) List(_ context.Context, from, to *time.Time) ([]*entity.Receipt, error) {
	s.from, s.to = from, to
	return s.recs, nil
}

func str(s string) *string { return &s }

func TestService_ExportXLSX(t *testing.T) {
	id := uuid.New()
	repo := &stubRepo{recs: []*entity.Receipt{{
		ID:         id,
		SourcePath: "/inbox/a.jpg",
		Record: parser.Record{
			ReceiptNumber: str("AB12345678"),
			Date:          str("01.02.2024"),
			SellerName:    str("Иван Петров"),
			TotalAmount:   str("1500.00"),
			Services: []parser.Service{
				{Name: "Выполнение работ", Amount: "1000.00"},
				{Name: "Доставка", Amount: "500.00"},
			},
		},
	}}}
	svc := NewService(repo, nil)

	data, err := svc.ExportXLSX(context.Background(), nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Receipts", "Services"}, f.GetSheetList())

	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Receipt Number", rows[0][1])
	assert.Equal(t, id.String(), rows[1][0])
	assert.Equal(t, "AB12345678", rows[1][1])
	assert.Equal(t, "Иван Петров", rows[1][4])
	assert.Equal(t, "1500", rows[1][7])

	srows, err := f.GetRows("Services")
	require.NoError(t, err)
	require.Len(t, srows, 3)
	assert.Equal(t, "Выполнение работ", srows[1][3])
	assert.Equal(t, "Доставка", srows[2][3])
}

func TestService_ExportXLSX_OpenEndedWindow(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC) }

	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := svc.ExportXLSX(context.Background(), &from, nil)
	require.NoError(t, err)

	require.NotNil(t, repo.from)
	require.NotNil(t, repo.to)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *repo.from)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), *repo.to)
}
