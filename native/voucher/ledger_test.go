package voucher

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestLedgerCreditDebit(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	holder := newTestAddress(0x50)
	native := NativeCurrency()

	if err := ledger.Credit(holder, native, big.NewInt(120)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Debit(holder, native, big.NewInt(20)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	bal, err := ledger.BalanceOf(holder, native)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance = %s, want 100", bal)
	}
	// Zero and nil amounts are no-ops.
	if err := ledger.Credit(holder, native, nil); err != nil {
		t.Fatalf("nil credit: %v", err)
	}
	if err := ledger.Debit(holder, native, big.NewInt(0)); err != nil {
		t.Fatalf("zero debit: %v", err)
	}
}

func TestLedgerDebitInsufficient(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	holder := newTestAddress(0x51)

	if err := ledger.Credit(holder, NativeCurrency(), big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Debit(holder, NativeCurrency(), big.NewInt(11)); !errors.Is(err, ErrInsufficientEscrow) {
		t.Fatalf("expected ErrInsufficientEscrow, got %v", err)
	}
	bal, _ := ledger.BalanceOf(holder, NativeCurrency())
	if bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("failed debit changed the balance: %s", bal)
	}
}

func TestLedgerRejectsNegativeAndOversized(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	holder := newTestAddress(0x52)

	if err := ledger.Credit(holder, NativeCurrency(), big.NewInt(-1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for negative amount, got %v", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := ledger.Credit(holder, NativeCurrency(), huge); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow for 257-bit amount, got %v", err)
	}
}

func TestLedgerCreditOverflow(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	holder := newTestAddress(0x53)

	max := new(uint256.Int).SetAllOne()
	if err := state.EscrowBalancePut(holder, NativeCurrency().Key(), max); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if err := ledger.Credit(holder, NativeCurrency(), big.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow on saturated balance, got %v", err)
	}
}

func TestLedgerReassign(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	from := newTestAddress(0x54)
	to := newTestAddress(0x55)
	native := NativeCurrency()

	if err := ledger.Credit(from, native, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.Reassign(from, to, native, big.NewInt(60)); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	fromBal, _ := ledger.BalanceOf(from, native)
	toBal, _ := ledger.BalanceOf(to, native)
	if fromBal.Cmp(big.NewInt(40)) != 0 || toBal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("balances = %s/%s, want 40/60", fromBal, toBal)
	}

	if err := ledger.Reassign(from, to, native, big.NewInt(41)); !errors.Is(err, ErrInsufficientEscrow) {
		t.Fatalf("expected ErrInsufficientEscrow, got %v", err)
	}
	fromBal, _ = ledger.BalanceOf(from, native)
	toBal, _ = ledger.BalanceOf(to, native)
	if fromBal.Cmp(big.NewInt(40)) != 0 || toBal.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("failed reassign moved funds: %s/%s", fromBal, toBal)
	}

	// Self-transfers and zero amounts leave the ledger untouched.
	if err := ledger.Reassign(from, from, native, big.NewInt(40)); err != nil {
		t.Fatalf("self reassign: %v", err)
	}
	if err := ledger.Reassign(from, to, native, big.NewInt(0)); err != nil {
		t.Fatalf("zero reassign: %v", err)
	}
}

func TestLedgerCurrenciesIndependent(t *testing.T) {
	state := newMockState()
	ledger := NewLedger(state)
	holder := newTestAddress(0x56)
	token := TokenCurrency(newTestAddress(0xAA))

	if err := ledger.Credit(holder, NativeCurrency(), big.NewInt(5)); err != nil {
		t.Fatalf("credit native: %v", err)
	}
	if err := ledger.Credit(holder, token, big.NewInt(9)); err != nil {
		t.Fatalf("credit token: %v", err)
	}
	if err := ledger.Debit(holder, NativeCurrency(), big.NewInt(9)); !errors.Is(err, ErrInsufficientEscrow) {
		t.Fatalf("token balance must not cover a native debit, got %v", err)
	}
	tokenBal, _ := ledger.BalanceOf(holder, token)
	if tokenBal.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("token balance = %s, want 9", tokenBal)
	}
}
