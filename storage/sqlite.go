package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"sbahn.dev/delays/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		// WAL lets scans proceed while the poller appends.
		sourceName = "file:" + filepath.Join(directory, "delays.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, storageError("open", fmt.Errorf("opening database: %w", err))
	}

	// Each connection to :memory: is a separate database.
	if !onDisk {
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS delays (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    line TEXT NOT NULL,
    station TEXT NOT NULL,
    scheduled_minute INTEGER NOT NULL,
    delay_minutes INTEGER NOT NULL,
    direction TEXT NOT NULL,
    source TEXT NOT NULL,
    captured_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS delays_line ON delays (line);`)
	if err != nil {
		db.Close()
		return nil, storageError("open", fmt.Errorf("creating delays table: %w", err))
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Append(record *model.DelayRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	res, err := s.db.Exec(`
INSERT INTO delays (line, station, scheduled_minute, delay_minutes, direction, source, captured_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Line,
		record.Station,
		int(record.ScheduledTime),
		record.Delay,
		record.Direction.String(),
		string(record.Source),
		record.CapturedAt.UTC(),
	)
	if err != nil {
		return storageError("append", fmt.Errorf("inserting record: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storageError("append", fmt.Errorf("getting record id: %w", err))
	}
	record.ID = id

	return nil
}

func (s *SQLiteStorage) Scan(filter RecordFilter, fn func(*model.DelayRecord) error) error {
	query := `
SELECT id, line, station, scheduled_minute, delay_minutes, direction, source, captured_at
FROM delays`
	params := []interface{}{}
	if filter.Line != "" {
		query += " WHERE line = UPPER(?)"
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

func (s *SQLiteStorage) Count(filter RecordFilter) (int, error) {
	query := "SELECT COUNT(*) FROM delays"
	params := []interface{}{}
	if filter.Line != "" {
		query += " WHERE line = UPPER(?)"
		params = append(params, filter.Line)
	}

	var n int
	if err := s.db.QueryRow(query, params...).Scan(&n); err != nil {
		return 0, storageError("count", fmt.Errorf("counting records: %w", err))
	}
	return n, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Shared by the SQL backends. Row errors are StorageErrors, errors
// from fn are passed through untouched.
func scanRows(rows *sql.Rows, fn func(*model.DelayRecord) error) error {
	for rows.Next() {
		var r model.DelayRecord
		var scheduled int
		var direction, source string
		err := rows.Scan(
			&r.ID,
			&r.Line,
			&r.Station,
			&scheduled,
			&r.Delay,
			&direction,
			&source,
			&r.CapturedAt,
		)
		if err != nil {
			return storageError("scan", fmt.Errorf("scanning record: %w", err))
		}

		r.ScheduledTime = model.TimeOfDay(scheduled)
		r.Source = model.RecordSource(source)
		r.Direction, err = model.ParseDirection(direction)
		if err != nil {
			return storageError("scan", fmt.Errorf("record %d: %w", r.ID, err))
		}

		if err := fn(&r); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return storageError("scan", fmt.Errorf("iterating records: %w", err))
	}

	return nil
}
