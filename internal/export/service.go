package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
	"github.com/joseph-ayodele/receipt-recognizer/internal/repository"
	"github.com/joseph-ayodele/receipt-recognizer/internal/utils"
)

const (
	receiptsSheet = "Receipts"
	servicesSheet = "Services"
)

var receiptHeaders = []string{
	"ID",
	"Receipt Number",
	"Date",
	"Time",
	"Seller",
	"Seller INN",
	"Buyer INN",
	"Total",
	"Tax Mode",
	"Check Former",
	"Check Former INN",
	"FNS Link",
	"File",
}

var serviceHeaders = []string{"Receipt ID", "Receipt Number", "Date", "Service", "Amount"}

// Service produces XLSX bytes for stored receipts.
type Service struct {
	receipts repository.ReceiptRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo repository.ReceiptRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{receipts: repo, logger: logger, now: time.Now}
}

// ExportXLSX returns a workbook for receipts issued within the window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all receipts.
func (s *Service) ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	fromDate, toDate := dateOnly(from), dateOnly(to)
	if fromDate != nil && toDate == nil {
		toDate = dateOnly(ptrTime(s.now().UTC()))
	}

	recs, err := s.receipts.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}

	f, err := Workbook(recs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Workbook lays receipts out on two sheets: one row per receipt, and one row
// per service line item.
func Workbook(recs []*entity.Receipt) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", receiptsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(servicesSheet); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	writeRow(f, receiptsSheet, 1, toAny(receiptHeaders))
	writeRow(f, servicesSheet, 1, toAny(serviceHeaders))

	row, srow := 2, 2
	for _, r := range recs {
		rec := r.Record
		writeRow(f, receiptsSheet, row, []any{
			r.ID.String(),
			utils.StrOrEmpty(rec.ReceiptNumber),
			utils.StrOrEmpty(rec.Date),
			utils.StrOrEmpty(rec.Time),
			utils.StrOrEmpty(rec.SellerName),
			utils.StrOrEmpty(rec.SellerINN),
			utils.StrOrEmpty(rec.BuyerINN),
			amountCell(utils.StrOrEmpty(rec.TotalAmount)),
			utils.StrOrEmpty(rec.TaxMode),
			utils.StrOrEmpty(rec.CheckFormer),
			utils.StrOrEmpty(rec.CheckFormerINN),
			utils.StrOrEmpty(rec.FNSURL),
			r.SourcePath,
		})
		row++

		for _, svc := range rec.Services {
			writeRow(f, servicesSheet, srow, []any{
				r.ID.String(),
				utils.StrOrEmpty(rec.ReceiptNumber),
				utils.StrOrEmpty(rec.Date),
				svc.Name,
				amountCell(svc.Amount),
			})
			srow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(receiptsSheet, "A", "A", 38) // id
	_ = f.SetColWidth(receiptsSheet, "B", "D", 14)
	_ = f.SetColWidth(receiptsSheet, "E", "E", 32) // seller
	_ = f.SetColWidth(receiptsSheet, "L", "M", 60) // link, path
	_ = f.SetColWidth(servicesSheet, "A", "A", 38)
	_ = f.SetColWidth(servicesSheet, "D", "D", 60) // service
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// amountCell stores normalized amounts as numbers so spreadsheets can sum them.
func amountCell(s string) any {
	if s == "" {
		return ""
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func ptrTime(t time.Time) *time.Time { return &t }
