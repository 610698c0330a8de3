package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"market-cache/src/helpers"
	"market-cache/src/logger"
	"market-cache/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------
// PostgresRecordStore is the record store for deployments that already run a
// shared Postgres. Same contract as SQLite; rows live in one table.
// -----------------------------------------------------------------------------

type PostgresRecordStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	ttl    time.Duration
}

// -----------------------------------------------------------------------------

func NewPostgresRecordStore(cfg *models.MConfig, log *logger.Logger) (*PostgresRecordStore, error) {
	return &PostgresRecordStore{
		Config: cfg,
		Logger: log,
		ttl:    time.Duration(cfg.Storage.TTLMinutes) * time.Minute,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	query := `
		CREATE TABLE IF NOT EXISTS cache_records (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			interval TEXT NOT NULL,
			indicator TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			inserted_at BIGINT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create cache_records: %w", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_cache_records_symbol ON cache_records (symbol);"); err != nil {
		return fmt.Errorf("failed to index cache_records: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) Get(ctx context.Context, id string) (*models.MPersistedRecord, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, symbol, interval, indicator, payload, inserted_at
		FROM cache_records WHERE id = $1
	`, id)

	var rec models.MPersistedRecord
	var payload []byte
	err := row.Scan(&rec.ID, &rec.Symbol, &rec.Interval, &rec.Indicator, &payload, &rec.InsertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewStorageError("postgres get failed", err)
	}
	rec.Payload = payload

	age := time.Since(time.UnixMilli(rec.InsertedAt))
	if age > d.ttl {
		if _, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE id = $1", id); err != nil {
			d.Logger.Warning("Failed to delete stale record '%s': %v", id, err)
		}
		return nil, nil
	}

	return &rec, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) Set(ctx context.Context, rec *models.MPersistedRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO cache_records (id, symbol, interval, indicator, payload, inserted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			symbol = excluded.symbol,
			interval = excluded.interval,
			indicator = excluded.indicator,
			payload = excluded.payload,
			inserted_at = excluded.inserted_at
	`, rec.ID, rec.Symbol, rec.Interval, rec.Indicator, []byte(rec.Payload), rec.InsertedAt)
	if err != nil {
		return helpers.NewStorageError("postgres set failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) Delete(ctx context.Context, id string) error {
	if _, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE id = $1", id); err != nil {
		return helpers.NewStorageError("postgres delete failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) DeleteBySymbol(ctx context.Context, symbol string) error {
	if _, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE symbol = $1", symbol); err != nil {
		return helpers.NewStorageError("postgres delete by symbol failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-d.ttl).UnixMilli()

	res, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE inserted_at < $1", cutoff)
	if err != nil {
		return 0, helpers.NewStorageError("postgres cleanup failed", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresRecordStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
