// FILE: logtrace/src/internal/store/store.go
package store

import (
	"sync"
	"sync/atomic"

	"logtrace/src/internal/core"

	"github.com/lixenwraith/log"
)

// Record is a parsed line held in the buffer, tagged with the sequence
// number assigned on insertion. Sequence numbers are monotonic and never
// reused, so a record remains addressable after older entries are evicted.
type Record struct {
	Seq  uint64          `json:"seq"`
	Line core.ParsedLine `json:"line"`
}

// Store is a bounded in-memory ring buffer of parsed records. When full,
// inserting evicts the oldest record.
type Store struct {
	mu      sync.RWMutex
	records []Record
	head    int
	count   int
	nextSeq uint64
	logger  *log.Logger

	// Statistics
	totalInserted atomic.Uint64
	totalEvicted  atomic.Uint64
}

// New creates a record store holding at most capacity records.
// Non-positive capacity falls back to 10000.
func New(capacity int, logger *log.Logger) *Store {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Store{
		records: make([]Record, capacity),
		nextSeq: 1,
		logger:  logger,
	}
}

// Insert appends a parsed line and returns its sequence number.
func (s *Store) Insert(line core.ParsedLine) uint64 {
	s.mu.Lock()
	seq := s.nextSeq
	s.nextSeq++

	idx := (s.head + s.count) % len(s.records)
	if s.count == len(s.records) {
		// Buffer full, overwrite oldest
		idx = s.head
		s.head = (s.head + 1) % len(s.records)
		s.totalEvicted.Add(1)
	} else {
		s.count++
	}
	s.records[idx] = Record{Seq: seq, Line: line}
	s.mu.Unlock()

	s.totalInserted.Add(1)
	return seq
}

// Get returns the record with the given sequence number, or false when it
// was never inserted or has been evicted.
func (s *Store) Get(seq uint64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return Record{}, false
	}
	oldest := s.records[s.head].Seq
	if seq < oldest || seq >= s.nextSeq {
		return Record{}, false
	}
	idx := (s.head + int(seq-oldest)) % len(s.records)
	return s.records[idx], true
}

// Recent returns up to limit records, newest first. A level filter narrows
// the result to records whose parsed level matches; empty level matches all.
func (s *Store) Recent(limit int, level string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.count == 0 {
		return nil
	}

	out := make([]Record, 0, min(limit, s.count))
	for i := s.count - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.records[(s.head+i)%len(s.records)]
		if level != "" && rec.Line.Level != level {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of records currently buffered.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// GetStats returns store statistics.
func (s *Store) GetStats() map[string]any {
	s.mu.RLock()
	count := s.count
	capacity := len(s.records)
	s.mu.RUnlock()

	return map[string]any{
		"buffered":       count,
		"capacity":       capacity,
		"total_inserted": s.totalInserted.Load(),
		"total_evicted":  s.totalEvicted.Load(),
	}
}
