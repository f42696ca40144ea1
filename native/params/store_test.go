package params

import (
	"math/big"
	"testing"

	"vouchnet/native/voucher"
)

type memParamState struct {
	values map[string][]byte
}

func newMemParamState() *memParamState {
	return &memParamState{values: make(map[string][]byte)}
}

func (m *memParamState) ParamStoreSet(name string, value []byte) error {
	m.values[name] = append([]byte(nil), value...)
	return nil
}

func (m *memParamState) ParamStoreGet(name string) ([]byte, bool, error) {
	value, ok := m.values[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func TestPeriodsDefaultWhenUnset(t *testing.T) {
	store := NewStore(newMemParamState())
	complain, err := store.ComplainPeriod()
	if err != nil {
		t.Fatalf("complain period: %v", err)
	}
	if complain != voucher.DefaultComplainPeriodSecs {
		t.Fatalf("complain period = %d, want default %d", complain, voucher.DefaultComplainPeriodSecs)
	}
	cancel, err := store.CancelPeriod()
	if err != nil {
		t.Fatalf("cancel period: %v", err)
	}
	if cancel != voucher.DefaultCancelPeriodSecs {
		t.Fatalf("cancel period = %d, want default %d", cancel, voucher.DefaultCancelPeriodSecs)
	}
}

func TestPeriodRoundTrip(t *testing.T) {
	store := NewStore(newMemParamState())
	if err := store.SetComplainPeriod(3600); err != nil {
		t.Fatalf("set complain period: %v", err)
	}
	if err := store.SetCancelPeriod(1800); err != nil {
		t.Fatalf("set cancel period: %v", err)
	}
	complain, _ := store.ComplainPeriod()
	cancel, _ := store.CancelPeriod()
	if complain != 3600 || cancel != 1800 {
		t.Fatalf("periods = %d/%d, want 3600/1800", complain, cancel)
	}
	if err := store.SetComplainPeriod(0); err == nil {
		t.Fatalf("expected zero period to be rejected")
	}
	if err := store.SetCancelPeriod(-5); err == nil {
		t.Fatalf("expected negative period to be rejected")
	}
}

func TestOrderLimits(t *testing.T) {
	store := NewStore(newMemParamState())

	max, err := store.MaxOrderValue("native")
	if err != nil {
		t.Fatalf("max order value: %v", err)
	}
	if max != nil {
		t.Fatalf("expected unrestricted currency, got %s", max)
	}

	if err := store.SetOrderLimit("native", big.NewInt(1_000_000)); err != nil {
		t.Fatalf("set order limit: %v", err)
	}
	max, err = store.MaxOrderValue("native")
	if err != nil {
		t.Fatalf("max order value: %v", err)
	}
	if max == nil || max.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("max = %v, want 1000000", max)
	}

	if err := store.SetOrderLimit("native", big.NewInt(-1)); err == nil {
		t.Fatalf("expected negative limit to be rejected")
	}

	// A nil amount removes the ceiling.
	if err := store.SetOrderLimit("native", nil); err != nil {
		t.Fatalf("remove order limit: %v", err)
	}
	max, _ = store.MaxOrderValue("native")
	if max != nil {
		t.Fatalf("expected ceiling removed, got %s", max)
	}
}

func TestPauses(t *testing.T) {
	store := NewStore(newMemParamState())
	pauses, err := store.Pauses()
	if err != nil {
		t.Fatalf("pauses: %v", err)
	}
	if pauses.IsPaused("voucher") {
		t.Fatalf("fresh store must not pause anything")
	}
	if err := store.SetPauses(PauseSet{"voucher": true}); err != nil {
		t.Fatalf("set pauses: %v", err)
	}
	pauses, err = store.Pauses()
	if err != nil {
		t.Fatalf("pauses: %v", err)
	}
	if !pauses.IsPaused("voucher") || pauses.IsPaused("other") {
		t.Fatalf("unexpected pause set: %v", pauses)
	}
	// The store itself is a live pause view over the persisted set.
	if !store.IsPaused("voucher") || store.IsPaused("other") {
		t.Fatalf("store pause view disagrees with persisted set")
	}
}

func TestStoreWithoutState(t *testing.T) {
	store := NewStore(nil)
	if _, err := store.ComplainPeriod(); err == nil {
		t.Fatalf("expected error without state backend")
	}
}
