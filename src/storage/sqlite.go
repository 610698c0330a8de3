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

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteRecordStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
	ttl    time.Duration
}

// -----------------------------------------------------------------------------

func NewSQLiteRecordStore(cfg *models.MConfig, log *logger.Logger) (*SQLiteRecordStore, error) {
	return &SQLiteRecordStore{
		Config: cfg,
		Logger: log,
		ttl:    time.Duration(cfg.Storage.TTLMinutes) * time.Minute,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) createTables() error {
	// Records must survive restarts, so the table is created, never dropped.
	// SQLite types: INTEGER for int64, TEXT for string/JSON
	query := `
		CREATE TABLE IF NOT EXISTS cache_records (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			interval TEXT NOT NULL,
			indicator TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			inserted_at INTEGER NOT NULL
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

func (d *SQLiteRecordStore) Get(ctx context.Context, id string) (*models.MPersistedRecord, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, symbol, interval, indicator, payload, inserted_at
		FROM cache_records WHERE id = ?
	`, id)

	var rec models.MPersistedRecord
	var payload string
	err := row.Scan(&rec.ID, &rec.Symbol, &rec.Interval, &rec.Indicator, &payload, &rec.InsertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewStorageError("sqlite get failed", err)
	}
	rec.Payload = []byte(payload)

	// Stale rows are deleted on read and reported as a miss.
	age := time.Since(time.UnixMilli(rec.InsertedAt))
	if age > d.ttl {
		if _, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE id = ?", id); err != nil {
			d.Logger.Warning("Failed to delete stale record '%s': %v", id, err)
		}
		return nil, nil
	}

	return &rec, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) Set(ctx context.Context, rec *models.MPersistedRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO cache_records (id, symbol, interval, indicator, payload, inserted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			symbol = excluded.symbol,
			interval = excluded.interval,
			indicator = excluded.indicator,
			payload = excluded.payload,
			inserted_at = excluded.inserted_at
	`, rec.ID, rec.Symbol, rec.Interval, rec.Indicator, string(rec.Payload), rec.InsertedAt)
	if err != nil {
		return helpers.NewStorageError("sqlite set failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) Delete(ctx context.Context, id string) error {
	if _, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE id = ?", id); err != nil {
		return helpers.NewStorageError("sqlite delete failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) DeleteBySymbol(ctx context.Context, symbol string) error {
	if _, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE symbol = ?", symbol); err != nil {
		return helpers.NewStorageError("sqlite delete by symbol failed", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-d.ttl).UnixMilli()

	res, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE inserted_at < ?", cutoff)
	if err != nil {
		return 0, helpers.NewStorageError("sqlite cleanup failed", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteRecordStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
