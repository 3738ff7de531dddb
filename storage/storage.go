package storage

import (
	"errors"
	"fmt"
	"strings"

	"sbahn.dev/delays/model"
)

// Storage is an append-only log of delay records.
//
// Implementations must make Append atomic with respect to Scan: a
// scan in progress sees either none or all of an appended record.
type Storage interface {
	// Validates and persists a record. On success, record.ID is
	// set to the assigned sequence number. Records are never
	// rejected for being outliers.
	Append(record *model.DelayRecord) error

	// Calls fn for each record matching the filter, in append
	// order. If fn returns an error, scanning stops and that
	// error is returned as is. Scanning again yields the same
	// records, plus anything appended since.
	Scan(filter RecordFilter, fn func(*model.DelayRecord) error) error

	// Number of records matching the filter.
	Count(filter RecordFilter) (int, error)

	Close() error
}

type RecordFilter struct {
	// If set, only include records for this line. Matching is
	// case insensitive.
	Line string
}

func (f RecordFilter) Matches(r *model.DelayRecord) bool {
	if f.Line != "" && !strings.EqualFold(f.Line, r.Line) {
		return false
	}
	return true
}

var ErrInvalidRecord = errors.New("invalid record")

// StorageError is returned when the underlying storage fails to read
// or write. It is never returned for invalid input.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Checks a record before it's written. Line is normalized to upper
// case.
func validateRecord(r *model.DelayRecord) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	r.Line = strings.ToUpper(strings.TrimSpace(r.Line))
	if r.Line == "" {
		return fmt.Errorf("%w: empty line", ErrInvalidRecord)
	}
	if !r.ScheduledTime.Valid() {
		return fmt.Errorf("%w: scheduled time %d out of range", ErrInvalidRecord, r.ScheduledTime)
	}
	if !r.Direction.Valid() {
		return fmt.Errorf("%w: direction %d", ErrInvalidRecord, r.Direction)
	}
	if r.Source == "" {
		r.Source = model.SourceManual
	}
	return nil
}
