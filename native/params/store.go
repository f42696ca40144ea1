package params

import (
	"encoding/json"
	"fmt"
	"math/big"

	"vouchnet/native/voucher"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// PauseSet is the persisted shape of the operator pause switches. It satisfies
// the native/common.PauseView contract.
type PauseSet map[string]bool

// IsPaused reports whether the named module is halted.
func (p PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p[module]
}

// Store provides typed accessors for operator-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

func (s *Store) periodSecs(key string, fallback int64) (int64, error) {
	state, err := s.withState()
	if err != nil {
		return 0, err
	}
	raw, ok, err := state.ParamStoreGet(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	var secs int64
	if err := json.Unmarshal(raw, &secs); err != nil {
		return 0, fmt.Errorf("params: decode %s: %w", key, err)
	}
	if secs <= 0 {
		return fallback, nil
	}
	return secs, nil
}

func (s *Store) setPeriodSecs(key string, secs int64) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if secs <= 0 {
		return fmt.Errorf("params: %s must be positive", key)
	}
	encoded, err := json.Marshal(secs)
	if err != nil {
		return fmt.Errorf("params: encode %s: %w", key, err)
	}
	return state.ParamStoreSet(key, encoded)
}

// ComplainPeriod returns the complain window duration in seconds, defaulting
// when unset.
func (s *Store) ComplainPeriod() (int64, error) {
	return s.periodSecs(ParamsKeyComplainPeriod, voucher.DefaultComplainPeriodSecs)
}

// SetComplainPeriod persists a new complain window duration. Already started
// windows are unaffected: the engine snapshots the value at window start.
func (s *Store) SetComplainPeriod(secs int64) error {
	return s.setPeriodSecs(ParamsKeyComplainPeriod, secs)
}

// CancelPeriod returns the cancel window duration in seconds, defaulting when
// unset.
func (s *Store) CancelPeriod() (int64, error) {
	return s.periodSecs(ParamsKeyCancelPeriod, voucher.DefaultCancelPeriodSecs)
}

// SetCancelPeriod persists a new cancel window duration.
func (s *Store) SetCancelPeriod(secs int64) error {
	return s.setPeriodSecs(ParamsKeyCancelPeriod, secs)
}

// OrderLimits loads the per-currency order value ceilings, keyed by canonical
// currency key with decimal string values.
func (s *Store) OrderLimits() (map[string]*big.Int, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyOrderLimits)
	if err != nil {
		return nil, err
	}
	limits := make(map[string]*big.Int)
	if !ok {
		return limits, nil
	}
	var encoded map[string]string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("params: decode order limits: %w", err)
	}
	for key, value := range encoded {
		amount, valid := new(big.Int).SetString(value, 10)
		if !valid || amount.Sign() < 0 {
			return nil, fmt.Errorf("params: invalid order limit %q for %s", value, key)
		}
		limits[key] = amount
	}
	return limits, nil
}

// SetOrderLimit persists the maximum order value for one currency. A nil
// amount removes the ceiling.
func (s *Store) SetOrderLimit(currencyKey string, max *big.Int) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	limits, err := s.OrderLimits()
	if err != nil {
		return err
	}
	if max == nil {
		delete(limits, currencyKey)
	} else {
		if max.Sign() < 0 {
			return fmt.Errorf("params: order limit must be non-negative")
		}
		limits[currencyKey] = new(big.Int).Set(max)
	}
	encoded := make(map[string]string, len(limits))
	for key, value := range limits {
		encoded[key] = value.String()
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("params: encode order limits: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyOrderLimits, payload)
}

// MaxOrderValue implements the voucher engine's LimitsView contract. A nil
// result means the currency is unrestricted.
func (s *Store) MaxOrderValue(currencyKey string) (*big.Int, error) {
	limits, err := s.OrderLimits()
	if err != nil {
		return nil, err
	}
	if max, ok := limits[currencyKey]; ok {
		return new(big.Int).Set(max), nil
	}
	return nil, nil
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (PauseSet, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return nil, err
	}
	if !ok {
		return PauseSet{}, nil
	}
	var pauses PauseSet
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return nil, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

// IsPaused implements the native/common.PauseView contract against the
// persisted configuration. Lookup failures read as not paused.
func (s *Store) IsPaused(module string) bool {
	pauses, err := s.Pauses()
	if err != nil {
		return false
	}
	return pauses.IsPaused(module)
}

// SetPauses persists the supplied pause configuration.
func (s *Store) SetPauses(pauses PauseSet) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}
