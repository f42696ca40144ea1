package voucher

import (
	"fmt"
	"math/big"

	nativecommon "vouchnet/native/common"
)

// minValiditySecs is the smallest allowed distance between validFrom and
// validTo on a new promise.
const minValiditySecs int64 = 3600

// OrderTerms carries the caller-supplied terms of a new voucher set.
type OrderTerms struct {
	ValidFrom       int64
	ValidTo         int64
	Price           *big.Int
	SellerDeposit   *big.Int
	BuyerDeposit    *big.Int
	PriceCurrency   Currency
	DepositCurrency Currency
	Quantity        uint64
}

// CreateOrder registers an immutable promise and its mintable supply. The
// seller deposit for the full quantity has already been confirmed by the
// payment front door and is escrowed under the seller here. Creation is
// idempotent for an identical redefinition and rejects a conflicting one.
func (e *Engine) CreateOrder(seller [20]byte, nonce uint64, terms OrderTerms) (*Promise, *Supply, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}
	if terms.Quantity == 0 {
		return nil, nil, fmt.Errorf("voucher: order quantity must be positive")
	}
	now := e.now()
	promise := &Promise{
		ID:              SupplyID(seller, nonce),
		Seller:          seller,
		ValidFrom:       terms.ValidFrom,
		ValidTo:         terms.ValidTo,
		Price:           cloneBigInt(terms.Price),
		SellerDeposit:   cloneBigInt(terms.SellerDeposit),
		BuyerDeposit:    cloneBigInt(terms.BuyerDeposit),
		PriceCurrency:   terms.PriceCurrency,
		DepositCurrency: terms.DepositCurrency,
		Quantity:        terms.Quantity,
		CreatedAt:       now,
	}
	sanitized, err := SanitizePromise(promise)
	if err != nil {
		return nil, nil, err
	}
	if sanitized.ValidTo < sanitized.ValidFrom+minValiditySecs {
		return nil, nil, fmt.Errorf("voucher: validity window shorter than %d seconds", minValiditySecs)
	}
	if sanitized.ValidTo <= now {
		return nil, nil, fmt.Errorf("voucher: validity window already closed")
	}
	if err := e.checkOrderLimits(sanitized); err != nil {
		return nil, nil, err
	}
	if existing, ok := e.state.PromiseGet(sanitized.ID); ok {
		if !samePromiseTerms(existing, sanitized) {
			return nil, nil, fmt.Errorf("voucher: order identifier already exists with different terms")
		}
		supply, ok := e.state.SupplyGet(sanitized.ID)
		if !ok {
			return nil, nil, ErrUnknownSupply
		}
		return existing.Clone(), supply.Clone(), nil
	}
	supply := &Supply{
		ID:        sanitized.ID,
		PromiseID: sanitized.ID,
		Issuer:    seller,
		Remaining: sanitized.Quantity,
	}
	depositTotal := new(big.Int).Mul(sanitized.SellerDeposit, new(big.Int).SetUint64(sanitized.Quantity))
	if err := e.ledger.Credit(seller, sanitized.DepositCurrency, depositTotal); err != nil {
		return nil, nil, err
	}
	if err := e.state.PromisePut(sanitized); err != nil {
		return nil, nil, err
	}
	if err := e.state.SupplyPut(supply); err != nil {
		return nil, nil, err
	}
	e.emit(NewOrderCreatedEvent(sanitized, supply))
	return sanitized.Clone(), supply.Clone(), nil
}

// checkOrderLimits sums the order's committed value per currency and compares
// each total against the configured ceiling. Limits gate creation only, never
// an in-flight voucher.
func (e *Engine) checkOrderLimits(p *Promise) error {
	if e.limits == nil {
		return nil
	}
	qty := new(big.Int).SetUint64(p.Quantity)
	totals := make(map[string]*big.Int)
	addTotal := func(c Currency, perUnit *big.Int) {
		amount := new(big.Int).Mul(perUnit, qty)
		key := c.Key()
		if existing, ok := totals[key]; ok {
			existing.Add(existing, amount)
			return
		}
		totals[key] = amount
	}
	addTotal(p.PriceCurrency, p.Price)
	addTotal(p.DepositCurrency, p.BuyerDeposit)
	addTotal(p.DepositCurrency, p.SellerDeposit)
	for key, total := range totals {
		max, err := e.limits.MaxOrderValue(key)
		if err != nil {
			return err
		}
		if max == nil {
			continue
		}
		if total.Cmp(max) > 0 {
			return fmt.Errorf("%w: %s exceeds %s in %s", ErrOrderLimit, total, max, key)
		}
	}
	return nil
}

func samePromiseTerms(a, b *Promise) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Seller == b.Seller &&
		a.ValidFrom == b.ValidFrom &&
		a.ValidTo == b.ValidTo &&
		a.PriceCurrency == b.PriceCurrency &&
		a.DepositCurrency == b.DepositCurrency &&
		a.Quantity == b.Quantity &&
		cloneBigInt(a.Price).Cmp(cloneBigInt(b.Price)) == 0 &&
		cloneBigInt(a.SellerDeposit).Cmp(cloneBigInt(b.SellerDeposit)) == 0 &&
		cloneBigInt(a.BuyerDeposit).Cmp(cloneBigInt(b.BuyerDeposit)) == 0
}
