package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialects understood by Open.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB wraps a database/sql handle with the dialect it speaks.
type DB struct {
	SQL     *sql.DB
	Dialect string

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to postgres:// DSNs through a pgx pool and to sqlite:, file:
// and :memory: DSNs through the pure-Go sqlite driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect, dsn, err := classifyDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	logger.Info("connecting to database", "dialect", dialect)

	if dialect == DialectSQLite {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		// A shared in-memory database only lives as long as its connection.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
		logger.Info("successfully connected to database")
		return &DB{SQL: db, Dialect: dialect, logger: logger}, nil
	}

	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "receipt-recognizer"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: dialect, pool: pool, logger: logger}, nil
}

func classifyDSN(dsn string) (dialect, cleaned string, err error) {
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("database DSN is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case dsn == ":memory:":
		return DialectSQLite, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"):
		return DialectSQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database DSN scheme")
	}
}

// Close closes the database connections gracefully.
func (d *DB) Close() {
	d.logger.Info("closing database connections")
	if err := d.SQL.Close(); err != nil {
		d.logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings the database, bounded by timeout when positive.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.SQL.PingContext(ctx); err != nil {
		return err
	}
	d.logger.Debug("database ping successful")
	return nil
}

// rebind rewrites '?' placeholders into the numbered form postgres expects.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
