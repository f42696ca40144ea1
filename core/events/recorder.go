package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"vouchnet/core/types"
)

// Carrier is implemented by emitted events that wrap a typed payload. The
// recorder uses it to capture full attribute maps rather than just the type.
type Carrier interface {
	Event() *types.Event
}

// Record is a single append-only audit log entry.
type Record struct {
	ID         string            `json:"id"`
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// MemoryRecorder retains every emitted event in order. Records are never
// removed or rewritten; Sequence is strictly increasing.
type MemoryRecorder struct {
	mu      sync.Mutex
	nextSeq uint64
	records []Record
	nowFn   func() time.Time
}

// NewMemoryRecorder constructs an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{nowFn: time.Now}
}

// SetNowFunc overrides the timestamp source, primarily for tests.
func (r *MemoryRecorder) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.mu.Lock()
	r.nowFn = now
	r.mu.Unlock()
}

// Emit implements the Emitter interface.
func (r *MemoryRecorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	record := Record{
		ID:   uuid.NewString(),
		Type: evt.EventType(),
	}
	if carrier, ok := evt.(Carrier); ok {
		if payload := carrier.Event(); payload != nil {
			record.Attributes = payload.Clone().Attributes
		}
	}
	r.mu.Lock()
	record.Sequence = r.nextSeq
	record.RecordedAt = r.nowFn()
	r.nextSeq++
	r.records = append(r.records, record)
	r.mu.Unlock()
}

// Records returns a copy of the accumulated log.
func (r *MemoryRecorder) Records() []Record {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len reports the number of recorded events.
func (r *MemoryRecorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
