package repository

import (
	"context"
	"fmt"
)

var receiptsDDL = []string{
	`CREATE TABLE IF NOT EXISTS receipts (
		id               TEXT PRIMARY KEY,
		file_hash        TEXT NOT NULL UNIQUE,
		source_path      TEXT NOT NULL,
		receipt_number   TEXT,
		receipt_date     TEXT,
		receipt_time     TEXT,
		seller_name      TEXT,
		seller_inn       TEXT,
		buyer_inn        TEXT,
		total_amount     TEXT,
		tax_mode         TEXT,
		check_former     TEXT,
		check_former_inn TEXT,
		services         TEXT NOT NULL,
		fns_url          TEXT,
		raw_text         TEXT,
		issued_on        TEXT,
		created_at       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS receipts_issued_on_idx ON receipts (issued_on)`,
}

// Migrate creates the schema when it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range receiptsDDL {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Info("database schema ready")
	return nil
}
