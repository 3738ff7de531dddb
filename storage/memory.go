package storage

import (
	"sync"

	"sbahn.dev/delays/model"
)

// In memory implementation of Storage. Nothing survives a restart,
// so this is mostly for tests.

type MemoryStorage struct {
	mutex   sync.RWMutex
	records []model.DelayRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Append(record *model.DelayRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	record.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *record)

	return nil
}

func (s *MemoryStorage) Scan(filter RecordFilter, fn func(*model.DelayRecord) error) error {
	// Snapshot the slice header. Appends never modify existing
	// elements, so the snapshot is stable without holding the
	// lock while calling fn.
	s.mutex.RLock()
	records := s.records[:len(s.records):len(s.records)]
	s.mutex.RUnlock()

	for i := range records {
		r := records[i]
		if !filter.Matches(&r) {
			continue
		}
		if err := fn(&r); err != nil {
			return err
		}
	}

	return nil
}

func (s *MemoryStorage) Count(filter RecordFilter) (int, error) {
	n := 0
	err := s.Scan(filter, func(*model.DelayRecord) error {
		n++
		return nil
	})
	return n, err
}

func (s *MemoryStorage) Close() error {
	return nil
}
