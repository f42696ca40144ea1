package voucher

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// LedgerState is the raw balance storage the escrow ledger operates on. One
// balance word per (holder, currency key) pair; absent entries read as zero.
type LedgerState interface {
	EscrowBalanceGet(holder [20]byte, currency string) (*uint256.Int, error)
	EscrowBalancePut(holder [20]byte, currency string, balance *uint256.Int) error
}

// Ledger is the sole mutator of escrowed balances. Every movement of escrowed
// funds in the module goes through Credit, Debit or Reassign; no other
// component touches LedgerState directly.
type Ledger struct {
	state LedgerState
}

// NewLedger constructs a ledger over the supplied balance storage.
func NewLedger(state LedgerState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) withState() (LedgerState, error) {
	if l == nil || l.state == nil {
		return nil, fmt.Errorf("voucher: ledger state not configured")
	}
	return l.state, nil
}

// toWord converts an engine-level amount into the ledger's unsigned word.
// Negative or oversized amounts are rejected with ErrOverflow rather than
// truncated.
func toWord(amount *big.Int) (*uint256.Int, error) {
	if amount == nil {
		return uint256.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrOverflow)
	}
	word, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("%w: amount exceeds 256 bits", ErrOverflow)
	}
	return word, nil
}

func (l *Ledger) balance(holder [20]byte, currency Currency) (*uint256.Int, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	if !currency.Valid() {
		return nil, fmt.Errorf("voucher: invalid currency")
	}
	bal, err := state.EscrowBalanceGet(holder, currency.Key())
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return uint256.NewInt(0), nil
	}
	return bal.Clone(), nil
}

// BalanceOf returns the escrowed balance held for holder in the given
// currency.
func (l *Ledger) BalanceOf(holder [20]byte, currency Currency) (*big.Int, error) {
	bal, err := l.balance(holder, currency)
	if err != nil {
		return nil, err
	}
	return bal.ToBig(), nil
}

// Credit adds amount to the holder's escrowed balance.
func (l *Ledger) Credit(holder [20]byte, currency Currency, amount *big.Int) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	delta, err := toWord(amount)
	if err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}
	current, err := l.balance(holder, currency)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(current, delta)
	if overflow {
		return fmt.Errorf("%w: credit %s to %x", ErrOverflow, delta, holder)
	}
	return state.EscrowBalancePut(holder, currency.Key(), next)
}

// Debit removes amount from the holder's escrowed balance, failing with
// ErrInsufficientEscrow when the balance cannot cover it.
func (l *Ledger) Debit(holder [20]byte, currency Currency, amount *big.Int) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	delta, err := toWord(amount)
	if err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}
	current, err := l.balance(holder, currency)
	if err != nil {
		return err
	}
	if current.Lt(delta) {
		return fmt.Errorf("%w: have %s need %s", ErrInsufficientEscrow, current, delta)
	}
	next := new(uint256.Int).Sub(current, delta)
	return state.EscrowBalancePut(holder, currency.Key(), next)
}

// Reassign atomically moves amount from one holder to another within the same
// currency. Both feasibility checks run before either balance is written, so a
// failure leaves the ledger untouched.
func (l *Ledger) Reassign(from, to [20]byte, currency Currency, amount *big.Int) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	delta, err := toWord(amount)
	if err != nil {
		return err
	}
	if delta.IsZero() || from == to {
		return nil
	}
	fromBal, err := l.balance(from, currency)
	if err != nil {
		return err
	}
	if fromBal.Lt(delta) {
		return fmt.Errorf("%w: reassign %s from %x", ErrInsufficientEscrow, delta, from)
	}
	toBal, err := l.balance(to, currency)
	if err != nil {
		return err
	}
	toNext, overflow := new(uint256.Int).AddOverflow(toBal, delta)
	if overflow {
		return fmt.Errorf("%w: reassign %s to %x", ErrOverflow, delta, to)
	}
	fromNext := new(uint256.Int).Sub(fromBal, delta)
	if err := state.EscrowBalancePut(from, currency.Key(), fromNext); err != nil {
		return err
	}
	return state.EscrowBalancePut(to, currency.Key(), toNext)
}
