package voucher

import (
	"fmt"
	"math/big"
)

// Ownership is the external multi-token primitive the core consults for
// current owners. The core never caches its answers beyond the escrow-side
// holder records maintained by the transfer callback below.
type Ownership interface {
	OwnerOf(unitID [32]byte) ([20]byte, error)
	BalanceOf(holder [20]byte, unitID [32]byte) (*big.Int, error)
}

// OnUnitTransfer is the synchronous transfer notification invoked by the token
// primitive before an ownership change completes. It moves the unresolved
// escrowed funds tied to the transferred unit from the old holder to the new
// one in the same atomic step as the transfer.
//
// For an individual voucher the buyer-side funds move: the price while the
// payment category is unreleased and the buyer deposit while the deposits
// category is unreleased. Supply units move only as a full issuer handover:
// the issuer role and the deposit backing of both unsold units and
// still-open vouchers transfer together, and a partial supply transfer is
// rejected. The backing of every unit therefore always sits with the
// recorded issuer.
//
// Reassignment is keyed off the recorded escrow holder, so a duplicate
// notification for the same transfer reassigns nothing.
func (e *Engine) OnUnitTransfer(from, to [20]byte, unitID [32]byte, quantity *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if from == to {
		return nil
	}
	if supply, ok := e.state.SupplyGet(unitID); ok {
		return e.onSupplyTransfer(from, to, supply, quantity)
	}
	if v, ok := e.state.VoucherGet(unitID); ok {
		return e.onVoucherTransfer(from, to, v)
	}
	return fmt.Errorf("%w: unit %x", ErrUnknownVoucher, unitID)
}

func (e *Engine) onVoucherTransfer(from, to [20]byte, v *Voucher) error {
	if from != v.Holder {
		// Already reassigned for this transfer, or a stale notification.
		return nil
	}
	if v.PaymentReleased && v.DepositsReleased {
		// Resolved funds stay with whoever withdrew them.
		return nil
	}
	promise, err := e.loadPromise(v.PromiseID)
	if err != nil {
		return err
	}
	if !v.PaymentReleased {
		if err := e.ledger.Reassign(from, to, promise.PriceCurrency, promise.Price); err != nil {
			return err
		}
	}
	if !v.DepositsReleased {
		if err := e.ledger.Reassign(from, to, promise.DepositCurrency, promise.BuyerDeposit); err != nil {
			return err
		}
	}
	v.Holder = to
	return e.state.VoucherPut(v)
}

func (e *Engine) onSupplyTransfer(from, to [20]byte, supply *Supply, quantity *big.Int) error {
	if quantity == nil || quantity.Sign() <= 0 {
		return fmt.Errorf("voucher: supply transfer quantity must be positive")
	}
	if from != supply.Issuer {
		// Already reassigned for this transfer, or a stale notification.
		return nil
	}
	if !quantity.IsUint64() || quantity.Uint64() != supply.Remaining || !e.transfersEntireHolding(from, supply, quantity) {
		return fmt.Errorf("%w: supply moves only as the issuer's entire unsold holding of %d units", ErrInvalidTransition, supply.Remaining)
	}
	promise, err := e.loadPromise(supply.PromiseID)
	if err != nil {
		return err
	}
	// The handover carries the backing of unsold units and of
	// committed-but-open vouchers in one reassignment.
	units := new(big.Int).SetUint64(supply.Remaining + supply.Open)
	moved := new(big.Int).Mul(promise.SellerDeposit, units)
	if err := e.ledger.Reassign(from, to, promise.DepositCurrency, moved); err != nil {
		return err
	}
	supply.Issuer = to
	return e.state.SupplyPut(supply)
}

// transfersEntireHolding reports whether the transfer empties the sender's
// supply balance. The callback runs before the primitive applies the transfer,
// so the sender's balance still includes the quantity in flight.
func (e *Engine) transfersEntireHolding(from [20]byte, supply *Supply, quantity *big.Int) bool {
	if e.ownership == nil {
		return quantity.IsUint64() && quantity.Uint64() == supply.Remaining
	}
	balance, err := e.ownership.BalanceOf(from, supply.ID)
	if err != nil || balance == nil {
		return false
	}
	return balance.Cmp(quantity) == 0
}
