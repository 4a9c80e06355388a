// Package audit records every question the service answers.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("audit: not found")

type Kind string

const (
	KindQuery    Kind = "query"
	KindExplain  Kind = "explain"
	KindValidate Kind = "validate"
)

type Record struct {
	ID         string    `json:"id"`
	TraceID    string    `json:"trace_id"`
	Principal  string    `json:"principal"`
	Kind       Kind      `json:"kind"`
	QueryText  string    `json:"query_text"`
	Entity     string    `json:"entity"`
	Operation  string    `json:"operation"`
	SQL        string    `json:"sql"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	RowCount   int       `json:"row_count"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Normalize fills in a fresh id and the creation time when they are unset.
func (r Record) Normalize(now time.Time) Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	return r
}

type Recorder interface {
	Record(ctx context.Context, record Record) error
}

type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
}

type Store interface {
	Recorder
	Reader
}

// Nop drops every record.
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }

func (Nop) ListRecent(context.Context, int) ([]Record, error) { return []Record{}, nil }

func (Nop) Get(context.Context, string) (Record, error) { return Record{}, ErrNotFound }

// Memory keeps the most recent records in process, oldest evicted first.
type Memory struct {
	mu       sync.Mutex
	capacity int
	records  []Record
	now      func() time.Time
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 500
	}
	return &Memory{capacity: capacity, now: time.Now}
}

func (m *Memory) Record(_ context.Context, record Record) error {
	record = record.Normalize(m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	if overflow := len(m.records) - m.capacity; overflow > 0 {
		m.records = append([]Record(nil), m.records[overflow:]...)
	}
	return nil
}

func (m *Memory) ListRecent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID == id {
			return record, nil
		}
	}
	return Record{}, ErrNotFound
}
