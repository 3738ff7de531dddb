package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"sbahn.dev/delays/model"
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the delays table will be dropped on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, storageError("open", fmt.Errorf("failed to open db: %w", err))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageError("open", fmt.Errorf("failed to ping db: %w", err))
	}

	if clearDB {
		_, err = db.Exec(`DROP TABLE IF EXISTS delays;`)
		if err != nil {
			db.Close()
			return nil, storageError("open", fmt.Errorf("clearing db: %w", err))
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS delays (
    id BIGSERIAL PRIMARY KEY,
    line TEXT NOT NULL,
    station TEXT NOT NULL,
    scheduled_minute INTEGER NOT NULL,
    delay_minutes INTEGER NOT NULL,
    direction TEXT NOT NULL,
    source TEXT NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS delays_line ON delays (line);`)
	if err != nil {
		db.Close()
		return nil, storageError("open", fmt.Errorf("creating delays table: %w", err))
	}

	return &PSQLStorage{db: db}, nil
}

func (s *PSQLStorage) Append(record *model.DelayRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	err := s.db.QueryRow(`
INSERT INTO delays (line, station, scheduled_minute, delay_minutes, direction, source, captured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`,
		record.Line,
		record.Station,
		int(record.ScheduledTime),
		record.Delay,
		record.Direction.String(),
		string(record.Source),
		record.CapturedAt.UTC(),
	).Scan(&record.ID)
	if err != nil {
		return storageError("append", fmt.Errorf("inserting record: %w", err))
	}

	return nil
}

func (s *PSQLStorage) Scan(filter RecordFilter, fn func(*model.DelayRecord) error) error {
	query := `
SELECT id, line, station, scheduled_minute, delay_minutes, direction, source, captured_at
FROM delays`
	params := []interface{}{}
	if filter.Line != "" {
		query += " WHERE line = UPPER($1)"
		params = append(params, filter.Line)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return storageError("scan", fmt.Errorf("querying records: %w", err))
	}
	defer rows.Close()

	return scanRows(rows, fn)
}

func (s *PSQLStorage) Count(filter RecordFilter) (int, error) {
	query := "SELECT COUNT(*) FROM delays"
	params := []interface{}{}
	if filter.Line != "" {
		query += " WHERE line = UPPER($1)"
		params = append(params, filter.Line)
	}

	var n int
	if err := s.db.QueryRow(query, params...).Scan(&n); err != nil {
		return 0, storageError("count", fmt.Errorf("counting records: %w", err))
	}
	return n, nil
}

func (s *PSQLStorage) Close() error {
	return s.db.Close()
}
