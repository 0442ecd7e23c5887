package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"shower-scraper/models"
)

const facilityColumns = 13

// PostgresWriter mirrors persisted facilities to PostgreSQL. The JSON files
// stay authoritative; the table is a queryable copy.
type PostgresWriter struct {
	db *sql.DB
}

var _ FacilityMirror = (*PostgresWriter)(nil)

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS facilities (
			id            UUID         PRIMARY KEY,
			region        TEXT         NOT NULL,
			name          TEXT         NOT NULL,
			address       TEXT         NOT NULL DEFAULT '',
			lat           DOUBLE PRECISION,
			lng           DOUBLE PRECISION,
			free          BOOLEAN,
			verdict       VARCHAR(16)  NOT NULL,
			first_seen    TIMESTAMPTZ  NOT NULL,
			last_verified TIMESTAMPTZ,
			source        TEXT         NOT NULL DEFAULT '',
			run_id        TEXT         NOT NULL DEFAULT '',
			url           TEXT         NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_facilities_region  ON facilities(region);
		CREATE INDEX IF NOT EXISTS idx_facilities_verdict ON facilities(verdict);
	`)
	return err
}

// Mirror upserts every facility of ds by id. Rows are never deleted.
func (pw *PostgresWriter) Mirror(ctx context.Context, ds *models.Dataset) error {
	facilities := ds.Facilities()
	if len(facilities) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const batchSize = 50
	for i := 0; i < len(facilities); i += batchSize {
		end := i + batchSize
		if end > len(facilities) {
			end = len(facilities)
		}
		query, args := upsertStatement(facilities[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: upsert %s: %w", ds.Region, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func upsertStatement(batch []*models.Facility) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*facilityColumns)

	for idx, f := range batch {
		base := idx * facilityColumns
		placeholders := make([]string, facilityColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var lat, lng sql.NullFloat64
		if f.Coordinates != nil {
			lat = sql.NullFloat64{Float64: f.Coordinates.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: f.Coordinates.Lng, Valid: true}
		}
		var free sql.NullBool
		if f.Free != nil {
			free = sql.NullBool{Bool: *f.Free, Valid: true}
		}
		var lastVerified sql.NullTime
		if f.LastVerified != nil {
			lastVerified = sql.NullTime{Time: *f.LastVerified, Valid: true}
		}

		valueArgs = append(valueArgs,
			f.ID, f.Region, f.Name, f.Address, lat, lng, free, string(f.Verdict),
			f.FirstSeen, lastVerified, f.Source, f.RunID, f.URL)
	}

	query := fmt.Sprintf(`
		INSERT INTO facilities (id, region, name, address, lat, lng, free, verdict,
			first_seen, last_verified, source, run_id, url)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			free = EXCLUDED.free,
			verdict = EXCLUDED.verdict,
			last_verified = EXCLUDED.last_verified,
			run_id = EXCLUDED.run_id,
			url = EXCLUDED.url
	`, strings.Join(valueStrings, ","))

	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
