package events

import (
	"testing"
	"time"

	"vouchnet/core/types"
)

type testEvent struct {
	payload *types.Event
}

func (e testEvent) EventType() string   { return e.payload.Type }
func (e testEvent) Event() *types.Event { return e.payload }

type bareEvent struct{}

func (bareEvent) EventType() string { return "bare.event" }

func TestMemoryRecorderCapturesInOrder(t *testing.T) {
	recorder := NewMemoryRecorder()
	fixed := time.Unix(1_700_000_000, 0).UTC()
	recorder.SetNowFunc(func() time.Time { return fixed })

	recorder.Emit(testEvent{payload: &types.Event{
		Type:       "voucher.redeemed",
		Attributes: map[string]string{"id": "abc"},
	}})
	recorder.Emit(bareEvent{})

	records := recorder.Records()
	if len(records) != 2 || recorder.Len() != 2 {
		t.Fatalf("recorded %d events, want 2", len(records))
	}
	first, second := records[0], records[1]
	if first.Sequence != 0 || second.Sequence != 1 {
		t.Fatalf("sequences = %d/%d, want 0/1", first.Sequence, second.Sequence)
	}
	if first.Type != "voucher.redeemed" || first.Attributes["id"] != "abc" {
		t.Fatalf("first record = %+v", first)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("record ids must be unique and non-empty")
	}
	if !first.RecordedAt.Equal(fixed) {
		t.Fatalf("recordedAt = %v, want %v", first.RecordedAt, fixed)
	}
	// Events without a payload still record their type.
	if second.Type != "bare.event" || second.Attributes != nil {
		t.Fatalf("second record = %+v", second)
	}

	// The returned slice is a copy.
	records[0].Type = "mutated"
	if recorder.Records()[0].Type != "voucher.redeemed" {
		t.Fatalf("Records leaked internal storage")
	}
}

func TestMultiEmitterFansOut(t *testing.T) {
	a := NewMemoryRecorder()
	b := NewMemoryRecorder()
	multi := MultiEmitter{a, nil, b, NoopEmitter{}}
	multi.Emit(bareEvent{})
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("fan-out reached %d/%d recorders, want 1/1", a.Len(), b.Len())
	}
}
