package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-recognizer/internal/common"
	"github.com/joseph-ayodele/receipt-recognizer/internal/entity"
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
	dayLayout       = "2006-01-02"
)

const receiptColumns = `id, file_hash, source_path, receipt_number, receipt_date, receipt_time,
	seller_name, seller_inn, buyer_inn, total_amount, tax_mode, check_former, check_former_inn,
	services, fns_url, raw_text, issued_on, created_at`

type ReceiptRepository interface {
	// Save stores r. When a receipt with the same file hash already exists the
	// stored one is loaded into r and created is false.
	Save(ctx context.Context, r *entity.Receipt) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	GetByHash(ctx context.Context, hash string) (*entity.Receipt, error)
	// List returns receipts issued within [from, to]; nil bounds are open.
	List(ctx context.Context, from, to *time.Time) ([]*entity.Receipt, error)
}

type receiptRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepo{db: db, logger: logger, now: time.Now}
}

func (r *receiptRepo) Save(ctx context.Context, rec *entity.Receipt) (bool, error) {
	if rec.FileHash == "" {
		return false, common.NewAppError("INVALID_RECEIPT", "file hash is required", common.ErrInvalidInput)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	if rec.IssuedOn == nil {
		rec.IssuedOn = entity.ParseIssuedOn(rec.Record.Date)
	}
	services := rec.Record.Services
	if services == nil {
		services = []parser.Service{}
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return false, fmt.Errorf("encode services: %w", err)
	}

	f := rec.Record
	query := r.db.rebind(`INSERT INTO receipts (` + receiptColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (file_hash) DO NOTHING`)
	res, err := r.db.SQL.ExecContext(ctx, query,
		rec.ID.String(), rec.FileHash, rec.SourcePath,
		f.ReceiptNumber, f.Date, f.Time,
		f.SellerName, f.SellerINN, f.BuyerINN, f.TotalAmount,
		f.TaxMode, f.CheckFormer, f.CheckFormerINN,
		string(servicesJSON), f.FNSURL, f.RawText,
		formatDay(rec.IssuedOn), rec.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		r.logger.Error("failed to save receipt", "file_hash", rec.FileHash, "source_path", rec.SourcePath, "error", err)
		return false, fmt.Errorf("%w: save receipt: %v", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		existing, err := r.GetByHash(ctx, rec.FileHash)
		if err != nil {
			return false, err
		}
		*rec = *existing
		r.logger.Debug("receipt already stored", "file_hash", rec.FileHash, "id", rec.ID)
		return false, nil
	}
	return true, nil
}

func (r *receiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	return r.getOne(ctx, "id", id.String())
}

func (r *receiptRepo) GetByHash(ctx context.Context, hash string) (*entity.Receipt, error) {
	return r.getOne(ctx, "file_hash", hash)
}

func (r *receiptRepo) getOne(ctx context.Context, column, value string) (*entity.Receipt, error) {
	query := r.db.rebind(`SELECT ` + receiptColumns + ` FROM receipts WHERE ` + column + ` = ?`)
	rec, err := scanReceipt(r.db.SQL.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt %s %s: %w", column, value, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get receipt", column, value, "error", err)
		return nil, fmt.Errorf("%w: get receipt: %v", common.ErrDatabase, err)
	}
	return rec, nil
}

func (r *receiptRepo) List(ctx context.Context, from, to *time.Time) ([]*entity.Receipt, error) {
	var (
		where []string
		args  []any
	)
	if from != nil {
		where = append(where, "issued_on >= ?")
		args = append(args, from.Format(dayLayout))
	}
	if to != nil {
		where = append(where, "issued_on <= ?")
		args = append(args, to.Format(dayLayout))
	}
	query := `SELECT ` + receiptColumns + ` FROM receipts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.logger.Error("failed to list receipts", "error", err)
		return nil, fmt.Errorf("%w: list receipts: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := []*entity.Receipt{}
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan receipt: %v", common.ErrDatabase, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", common.ErrDatabase, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*entity.Receipt, error) {
	var (
		id, hash, source, services, created string
		number, date, tm, sellerName        sql.NullString
		sellerINN, buyerINN, total, taxMode sql.NullString
		former, formerINN, fnsURL, rawText  sql.NullString
		issued                              sql.NullString
	)
	if err := row.Scan(&id, &hash, &source, &number, &date, &tm,
		&sellerName, &sellerINN, &buyerINN, &total, &taxMode, &former, &formerINN,
		&services, &fnsURL, &rawText, &issued, &created); err != nil {
		return nil, err
	}

	rec := &entity.Receipt{
		FileHash:   hash,
		SourcePath: source,
		Record: parser.Record{
			ReceiptNumber:  nullable(number),
			Date:           nullable(date),
			Time:           nullable(tm),
			SellerName:     nullable(sellerName),
			SellerINN:      nullable(sellerINN),
			BuyerINN:       nullable(buyerINN),
			TotalAmount:    nullable(total),
			TaxMode:        nullable(taxMode),
			CheckFormer:    nullable(former),
			CheckFormerINN: nullable(formerINN),
			FNSURL:         nullable(fnsURL),
			RawText:        nullable(rawText),
			Services:       []parser.Service{},
		},
	}
	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("receipt id: %w", err)
	}
	if err := json.Unmarshal([]byte(services), &rec.Record.Services); err != nil {
		return nil, fmt.Errorf("receipt services: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
		return nil, fmt.Errorf("receipt created_at: %w", err)
	}
	if issued.Valid {
		if t, err := time.Parse(dayLayout, issued.String); err == nil {
			rec.IssuedOn = &t
		}
	}
	return rec, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func formatDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dayLayout)
	return &s
}
