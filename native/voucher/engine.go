package voucher

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"vouchnet/core/events"
	coretypes "vouchnet/core/types"
	nativecommon "vouchnet/native/common"
)

const moduleName = "voucher"

// Fallback window durations used when no parameter store is wired.
const (
	DefaultComplainPeriodSecs int64 = 7 * 24 * 60 * 60
	DefaultCancelPeriodSecs   int64 = 7 * 24 * 60 * 60
)

var errNilState = errors.New("voucher engine: state not configured")

type engineState interface {
	LedgerState
	PromisePut(*Promise) error
	PromiseGet(id [32]byte) (*Promise, bool)
	SupplyPut(*Supply) error
	SupplyGet(id [32]byte) (*Supply, bool)
	VoucherPut(*Voucher) error
	VoucherGet(id [32]byte) (*Voucher, bool)
	GetAccount(addr [20]byte) (*coretypes.Account, error)
	PutAccount(addr [20]byte, account *coretypes.Account) error
}

// ParamsStore exposes the operator-controlled window durations. Values are
// read at the moment a window opens; a voucher snapshots them so later updates
// never retroact.
type ParamsStore interface {
	ComplainPeriod() (int64, error)
	CancelPeriod() (int64, error)
	SetComplainPeriod(secs int64) error
	SetCancelPeriod(secs int64) error
}

// LimitsView is the per-currency order-value ceiling consulted at order
// creation. A nil maximum means the currency is unrestricted.
type LimitsView interface {
	MaxOrderValue(currencyKey string) (*big.Int, error)
}

// Engine owns the per-voucher lifecycle flags and enforces every transition's
// timing, ordering and authorization preconditions. All escrowed-fund movement
// goes through its Ledger.
type Engine struct {
	state     engineState
	ledger    *Ledger
	ownership Ownership
	emitter   events.Emitter
	params    ParamsStore
	limits    LimitsView
	pauses    nativecommon.PauseView
	operator  [20]byte
	nowFn     func() int64
}

// NewEngine creates a voucher engine with a no-op emitter. Callers configure
// state, ownership and parameters through the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend and rebinds the escrow ledger to it.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.ledger = NewLedger(state)
}

// SetOwnership configures the external token-ownership primitive.
func (e *Engine) SetOwnership(ownership Ownership) { e.ownership = ownership }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetParams configures the protocol parameter store.
func (e *Engine) SetParams(params ParamsStore) { e.params = params }

// SetLimits configures the per-currency order-value limit collaborator.
func (e *Engine) SetLimits(limits LimitsView) { e.limits = limits }

// SetPauses configures the operator pause switches.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetOperator configures the address authorized to change protocol
// parameters.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Ledger returns the escrow ledger bound to the engine's state.
func (e *Engine) Ledger() *Ledger { return e.ledger }

func (e *Engine) emit(event *coretypes.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(voucherEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) complainPeriod() (int64, error) {
	if e.params == nil {
		return DefaultComplainPeriodSecs, nil
	}
	return e.params.ComplainPeriod()
}

func (e *Engine) cancelPeriod() (int64, error) {
	if e.params == nil {
		return DefaultCancelPeriodSecs, nil
	}
	return e.params.CancelPeriod()
}

func (e *Engine) loadVoucher(id [32]byte) (*Voucher, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	v, ok := e.state.VoucherGet(id)
	if !ok {
		return nil, ErrUnknownVoucher
	}
	return v, nil
}

func (e *Engine) loadSupply(id [32]byte) (*Supply, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	s, ok := e.state.SupplyGet(id)
	if !ok {
		return nil, ErrUnknownSupply
	}
	return s, nil
}

func (e *Engine) loadPromise(id [32]byte) (*Promise, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, ok := e.state.PromiseGet(id)
	if !ok {
		return nil, ErrUnknownPromise
	}
	return p, nil
}

func (e *Engine) loadBundle(voucherID [32]byte) (*Voucher, *Supply, *Promise, error) {
	v, err := e.loadVoucher(voucherID)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := e.loadSupply(v.SupplyID)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := e.loadPromise(v.PromiseID)
	if err != nil {
		return nil, nil, nil, err
	}
	return v, s, p, nil
}

// resolveHolder returns the current owner of the voucher token, falling back
// to the escrow-side record when the primitive cannot resolve it (e.g. the
// token was burned on redemption).
func (e *Engine) resolveHolder(v *Voucher) [20]byte {
	if e.ownership != nil {
		if owner, err := e.ownership.OwnerOf(v.ID); err == nil && owner != ([20]byte{}) {
			return owner
		}
	}
	return v.Holder
}

// resolveIssuer returns the current owner of the originating supply, which is
// not the original seller when the supply itself changed hands.
func (e *Engine) resolveIssuer(s *Supply) [20]byte {
	if e.ownership != nil {
		if owner, err := e.ownership.OwnerOf(s.ID); err == nil && owner != ([20]byte{}) {
			return owner
		}
	}
	return s.Issuer
}

// startComplainClock records the resolution timestamp and snapshots both
// window durations in force at that moment.
func (e *Engine) startComplainClock(v *Voucher, now int64) error {
	complain, err := e.complainPeriod()
	if err != nil {
		return err
	}
	cancel, err := e.cancelPeriod()
	if err != nil {
		return err
	}
	v.ComplainWindowStart = now
	v.ComplainPeriod = complain
	v.CancelPeriod = cancel
	return nil
}

// Commit mints the next voucher from the supply for the buyer and escrows the
// already-confirmed price and buyer deposit under the buyer. The payment front
// door guarantees the exact amounts were moved into the module before this is
// invoked.
func (e *Engine) Commit(supplyID [32]byte, buyer [20]byte) (*Voucher, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	supply, err := e.loadSupply(supplyID)
	if err != nil {
		return nil, err
	}
	promise, err := e.loadPromise(supply.PromiseID)
	if err != nil {
		return nil, err
	}
	if supply.Remaining == 0 {
		return nil, fmt.Errorf("%w: supply exhausted", ErrInvalidTransition)
	}
	now := e.now()
	if now < promise.ValidFrom {
		return nil, fmt.Errorf("%w: supply not yet valid", ErrInvalidTransition)
	}
	if now >= promise.ValidTo {
		return nil, fmt.Errorf("%w: validity window closed", ErrInvalidTransition)
	}
	v := &Voucher{
		ID:          VoucherID(supply.ID, supply.NextIndex),
		SupplyID:    supply.ID,
		PromiseID:   promise.ID,
		Holder:      buyer,
		Status:      StatusCommitted,
		CommittedAt: now,
	}
	if err := e.ledger.Credit(buyer, promise.PriceCurrency, promise.Price); err != nil {
		return nil, err
	}
	if err := e.ledger.Credit(buyer, promise.DepositCurrency, promise.BuyerDeposit); err != nil {
		return nil, err
	}
	supply.Remaining--
	supply.Open++
	supply.NextIndex++
	if err := e.state.VoucherPut(v); err != nil {
		return nil, err
	}
	if err := e.state.SupplyPut(supply); err != nil {
		return nil, err
	}
	e.emit(NewDeliveredEvent(v))
	return v.Clone(), nil
}

// Redeem records that the holder consumed the promised goods or services. It
// starts the complain clock.
func (e *Engine) Redeem(voucherID [32]byte, caller [20]byte) error {
	return e.resolve(voucherID, caller, StatusRedeemed)
}

// Refund records that the holder gave the voucher up in exchange for the
// escrowed price. It starts the complain clock.
func (e *Engine) Refund(voucherID [32]byte, caller [20]byte) error {
	return e.resolve(voucherID, caller, StatusRefunded)
}

func (e *Engine) resolve(voucherID [32]byte, caller [20]byte, flag Status) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	v, _, promise, err := e.loadBundle(voucherID)
	if err != nil {
		return err
	}
	if !v.Status.Has(StatusCommitted) || v.Status.Resolved() || v.Status.Has(StatusFinalized) {
		return fmt.Errorf("%w: cannot resolve in status %s", ErrInvalidTransition, v.Status)
	}
	if caller != e.resolveHolder(v) {
		return fmt.Errorf("%w: caller is not the voucher holder", ErrInvalidTransition)
	}
	now := e.now()
	if now > promise.ValidTo {
		return fmt.Errorf("%w: validity window closed", ErrInvalidTransition)
	}
	v.Status = v.Status.With(flag)
	if err := e.startComplainClock(v, now); err != nil {
		return err
	}
	if err := e.state.VoucherPut(v); err != nil {
		return err
	}
	if flag == StatusRedeemed {
		e.emit(NewRedeemedEvent(v))
	} else {
		e.emit(NewRefundedEvent(v))
	}
	return nil
}

// TriggerExpire marks an unresolved voucher as expired once the validity
// window has elapsed. Anyone may invoke it; a repeated call is an idempotent
// no-op.
func (e *Engine) TriggerExpire(voucherID [32]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	v, _, promise, err := e.loadBundle(voucherID)
	if err != nil {
		return err
	}
	if v.Status.Has(StatusExpired) {
		return nil
	}
	if !v.Status.Has(StatusCommitted) || v.Status.Resolved() || v.Status.Has(StatusFinalized) {
		return fmt.Errorf("%w: cannot expire in status %s", ErrInvalidTransition, v.Status)
	}
	now := e.now()
	if now <= promise.ValidTo {
		return fmt.Errorf("%w: validity window still open", ErrInvalidTransition)
	}
	v.Status = v.Status.With(StatusExpired)
	if err := e.startComplainClock(v, now); err != nil {
		return err
	}
	if err := e.state.VoucherPut(v); err != nil {
		return err
	}
	e.emit(NewExpiredEvent(v))
	return nil
}

// Complain lodges the holder's complaint against the recorded resolution and
// opens the cancel window.
func (e *Engine) Complain(voucherID [32]byte, caller [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	v, err := e.loadVoucher(voucherID)
	if err != nil {
		return err
	}
	if !v.Status.Resolved() {
		return fmt.Errorf("%w: nothing to complain about in status %s", ErrInvalidTransition, v.Status)
	}
	if v.Status.Has(StatusComplained) || v.Status.Has(StatusFinalized) {
		return fmt.Errorf("%w: cannot complain in status %s", ErrInvalidTransition, v.Status)
	}
	if caller != e.resolveHolder(v) {
		return fmt.Errorf("%w: caller is not the voucher holder", ErrInvalidTransition)
	}
	now := e.now()
	if now > v.ComplainWindowStart+v.ComplainPeriod {
		return fmt.Errorf("%w: complain window closed", ErrInvalidTransition)
	}
	cancel, err := e.cancelPeriod()
	if err != nil {
		return err
	}
	v.Status = v.Status.With(StatusComplained)
	v.CancelWindowStart = now
	v.CancelPeriod = cancel
	if err := e.state.VoucherPut(v); err != nil {
		return err
	}
	e.emit(NewComplainedEvent(v))
	return nil
}

// CancelOrFault records the issuer's cancellation or admission of fault. The
// issuer is resolved as the current owner of the originating supply. Before a
// resolution fact is recorded the combined window has not started and the
// cancellation is always admissible.
func (e *Engine) CancelOrFault(voucherID [32]byte, caller [20]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	v, supply, _, err := e.loadBundle(voucherID)
	if err != nil {
		return err
	}
	if !v.Status.Has(StatusCommitted) || v.Status.Has(StatusCancelled) || v.Status.Has(StatusFinalized) {
		return fmt.Errorf("%w: cannot cancel in status %s", ErrInvalidTransition, v.Status)
	}
	if caller != e.resolveIssuer(supply) {
		return fmt.Errorf("%w: caller is not the supply issuer", ErrInvalidTransition)
	}
	now := e.now()
	switch {
	case v.Status.Has(StatusComplained):
		if now > v.CancelWindowStart+v.CancelPeriod {
			return fmt.Errorf("%w: cancel window closed", ErrInvalidTransition)
		}
	case v.Status.Resolved():
		if now > v.ComplainWindowStart+v.ComplainPeriod+v.CancelPeriod {
			return fmt.Errorf("%w: cancel window closed", ErrInvalidTransition)
		}
	}
	v.Status = v.Status.With(StatusCancelled)
	if err := e.state.VoucherPut(v); err != nil {
		return err
	}
	e.emit(NewCancelledEvent(v))
	return nil
}

// Finalize seals the flag vector once every applicable window has closed.
// Anyone may invoke it; a repeated call is an idempotent no-op. With both a
// complaint and a cancellation recorded nothing can change the outcome, so the
// voucher finalizes immediately.
func (e *Engine) Finalize(voucherID [32]byte) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	v, err := e.loadVoucher(voucherID)
	if err != nil {
		return err
	}
	if v.Status.Has(StatusFinalized) {
		return nil
	}
	if !v.Status.Resolved() {
		return fmt.Errorf("%w: cannot finalize unresolved voucher", ErrInvalidTransition)
	}
	now := e.now()
	switch {
	case v.Status.Has(StatusComplained) && v.Status.Has(StatusCancelled):
		// outcome fixed
	case v.Status.Has(StatusComplained):
		if now <= v.CancelWindowStart+v.CancelPeriod {
			return fmt.Errorf("%w: cancel window still open", ErrInvalidTransition)
		}
	default:
		if now <= v.ComplainWindowStart+v.ComplainPeriod {
			return fmt.Errorf("%w: complain window still open", ErrInvalidTransition)
		}
	}
	v.Status = v.Status.With(StatusFinalized)
	if err := e.state.VoucherPut(v); err != nil {
		return err
	}
	e.emit(NewFinalizedEvent(v))
	return nil
}

// UpdateComplainPeriod changes the complain window duration for future window
// starts. Operator-only; recorded windows keep their snapshotted durations.
func (e *Engine) UpdateComplainPeriod(caller [20]byte, secs int64) error {
	if err := e.authorizeOperator(caller); err != nil {
		return err
	}
	if secs <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidTransition)
	}
	if e.params == nil {
		return fmt.Errorf("voucher engine: params store not configured")
	}
	previous, err := e.complainPeriod()
	if err != nil {
		return err
	}
	if err := e.params.SetComplainPeriod(secs); err != nil {
		return err
	}
	e.emit(NewComplainPeriodUpdatedEvent(previous, secs))
	return nil
}

// UpdateCancelPeriod changes the cancel window duration for future window
// starts. Operator-only.
func (e *Engine) UpdateCancelPeriod(caller [20]byte, secs int64) error {
	if err := e.authorizeOperator(caller); err != nil {
		return err
	}
	if secs <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidTransition)
	}
	if e.params == nil {
		return fmt.Errorf("voucher engine: params store not configured")
	}
	previous, err := e.cancelPeriod()
	if err != nil {
		return err
	}
	if err := e.params.SetCancelPeriod(secs); err != nil {
		return err
	}
	e.emit(NewCancelPeriodUpdatedEvent(previous, secs))
	return nil
}

func (e *Engine) authorizeOperator(caller [20]byte) error {
	if e.operator == ([20]byte{}) || caller != e.operator {
		return fmt.Errorf("%w: caller is not the operator", ErrInvalidTransition)
	}
	return nil
}

// Voucher returns a copy of the stored voucher record.
func (e *Engine) Voucher(id [32]byte) (*Voucher, error) {
	v, err := e.loadVoucher(id)
	if err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

// Promise returns a copy of the stored promise terms.
func (e *Engine) Promise(id [32]byte) (*Promise, error) {
	p, err := e.loadPromise(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Supply returns a copy of the stored supply record.
func (e *Engine) Supply(id [32]byte) (*Supply, error) {
	s, err := e.loadSupply(id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// EscrowBalance reads a holder's escrowed balance in the given currency.
func (e *Engine) EscrowBalance(holder [20]byte, currency Currency) (*big.Int, error) {
	if e == nil || e.ledger == nil {
		return nil, errNilState
	}
	return e.ledger.BalanceOf(holder, currency)
}
