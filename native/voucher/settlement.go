package voucher

import (
	"errors"
	"fmt"
	"math/big"

	coretypes "vouchnet/core/types"
	nativecommon "vouchnet/native/common"
)

var errNilEngine = errors.New("voucher settlement: engine not configured")

// CategorySupplyDeposits labels the release of deposits backing never-sold
// supply units.
const CategorySupplyDeposits = "supply_deposits"

// Settlement moves finalized escrow to its final payees. It never computes a
// split itself: the distribution calculator is the single source of the
// three-way partition, and the escrow ledger is the single mutator of
// escrowed balances.
type Settlement struct {
	engine *Engine
	pool   [20]byte
}

// NewSettlement constructs a settlement component bound to the lifecycle
// engine.
func NewSettlement(engine *Engine) *Settlement {
	return &Settlement{engine: engine}
}

// SetPool configures the protocol pool address receiving penalty shares.
func (s *Settlement) SetPool(addr [20]byte) { s.pool = addr }

func (s *Settlement) withEngine() (*Engine, error) {
	if s == nil || s.engine == nil || s.engine.state == nil {
		return nil, errNilEngine
	}
	return s.engine, nil
}

// Finalize seals the voucher once its windows have closed. Idempotent no-op
// when already finalized.
func (s *Settlement) Finalize(voucherID [32]byte) error {
	engine, err := s.withEngine()
	if err != nil {
		return err
	}
	return engine.Finalize(voucherID)
}

// Withdraw releases the finalized voucher's escrow to the resolved payees.
// Each fund category is released at most once. Every escrow debit the call
// needs is verified against the ledger before the first balance or flag is
// written, so a failing call leaves the voucher exactly as it found it; the
// release flag is then persisted ahead of the payout credits so a re-entrant
// or repeated call cannot double-pay. A call finding both categories already
// released fails with AlreadyReleased and changes no balances.
func (s *Settlement) Withdraw(voucherID [32]byte) error {
	engine, err := s.withEngine()
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(engine.pauses, moduleName); err != nil {
		return err
	}
	v, supply, promise, err := engine.loadBundle(voucherID)
	if err != nil {
		return err
	}
	if !v.Status.Has(StatusFinalized) {
		return fmt.Errorf("%w: withdraw requires a finalized voucher", ErrInvalidTransition)
	}
	if v.PaymentReleased && v.DepositsReleased {
		return ErrAlreadyReleased
	}
	dist, err := Distribute(v.Status, promise.Price, promise.BuyerDeposit, promise.SellerDeposit)
	if err != nil {
		return err
	}
	buyer := engine.resolveHolder(v)
	seller := engine.resolveIssuer(supply)
	if err := s.ensurePoolConfigured(dist); err != nil {
		return err
	}
	var pending []escrowDebit
	if !v.PaymentReleased {
		pending = append(pending, escrowDebit{v.Holder, promise.PriceCurrency, promise.Price})
	}
	if !v.DepositsReleased {
		pending = append(pending,
			escrowDebit{v.Holder, promise.DepositCurrency, promise.BuyerDeposit},
			escrowDebit{supply.Issuer, promise.DepositCurrency, promise.SellerDeposit},
		)
	}
	if err := s.ensureDebitable(pending); err != nil {
		return err
	}
	if !v.PaymentReleased {
		if err := engine.ledger.Debit(v.Holder, promise.PriceCurrency, promise.Price); err != nil {
			return err
		}
		v.PaymentReleased = true
		if err := engine.state.VoucherPut(v); err != nil {
			return err
		}
		if err := s.distribute(v.ID, CategoryPayment, promise.PriceCurrency, dist.Price, buyer, seller); err != nil {
			return err
		}
		engine.emit(NewFundsReleasedEvent(v.ID, CategoryPayment))
	}
	if !v.DepositsReleased {
		if err := engine.ledger.Debit(v.Holder, promise.DepositCurrency, promise.BuyerDeposit); err != nil {
			return err
		}
		if err := engine.ledger.Debit(supply.Issuer, promise.DepositCurrency, promise.SellerDeposit); err != nil {
			return err
		}
		v.DepositsReleased = true
		if err := engine.state.VoucherPut(v); err != nil {
			return err
		}
		if supply.Open > 0 {
			supply.Open--
		}
		if err := engine.state.SupplyPut(supply); err != nil {
			return err
		}
		combined := Share{
			Buyer:  new(big.Int).Add(dist.BuyerDeposit.Buyer, dist.SellerDeposit.Buyer),
			Seller: new(big.Int).Add(dist.BuyerDeposit.Seller, dist.SellerDeposit.Seller),
			Pool:   new(big.Int).Add(dist.BuyerDeposit.Pool, dist.SellerDeposit.Pool),
		}
		if err := s.distribute(v.ID, CategoryDeposits, promise.DepositCurrency, combined, buyer, seller); err != nil {
			return err
		}
		engine.emit(NewFundsReleasedEvent(v.ID, CategoryDeposits))
	}
	return nil
}

// WithdrawRemainingDeposits returns the deposit backing of never-sold units to
// the issuer once the validity window has closed. Write-once per supply: the
// reclaim flag is persisted only after the escrow debit lands, so a failing
// debit leaves the supply reclaimable.
func (s *Settlement) WithdrawRemainingDeposits(supplyID [32]byte, caller [20]byte) error {
	engine, err := s.withEngine()
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(engine.pauses, moduleName); err != nil {
		return err
	}
	supply, err := engine.loadSupply(supplyID)
	if err != nil {
		return err
	}
	promise, err := engine.loadPromise(supply.PromiseID)
	if err != nil {
		return err
	}
	if supply.DepositsReclaimed {
		return ErrAlreadyReleased
	}
	if caller != engine.resolveIssuer(supply) {
		return fmt.Errorf("%w: caller is not the supply issuer", ErrInvalidTransition)
	}
	if engine.now() <= promise.ValidTo {
		return fmt.Errorf("%w: validity window still open", ErrInvalidTransition)
	}
	amount := new(big.Int).Mul(promise.SellerDeposit, new(big.Int).SetUint64(supply.Remaining))
	if amount.Sign() > 0 {
		if err := engine.ledger.Debit(supply.Issuer, promise.DepositCurrency, amount); err != nil {
			return err
		}
	}
	supply.DepositsReclaimed = true
	if err := engine.state.SupplyPut(supply); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := s.creditAccount(supply.Issuer, promise.DepositCurrency, amount); err != nil {
		return err
	}
	engine.emit(NewFundsReleasedEvent(supply.ID, CategorySupplyDeposits))
	engine.emit(NewAmountDistributedEvent(supply.ID, supply.Issuer, RoleSeller, CategorySupplyDeposits, promise.DepositCurrency, amount))
	return nil
}

// escrowDebit is one pending removal from the escrow ledger.
type escrowDebit struct {
	holder   [20]byte
	currency Currency
	amount   *big.Int
}

// ensureDebitable verifies the ledger covers every pending debit, totalled
// per holder and currency, before any balance or release flag is written.
func (s *Settlement) ensureDebitable(debits []escrowDebit) error {
	engine, err := s.withEngine()
	if err != nil {
		return err
	}
	type slot struct {
		holder   [20]byte
		currency Currency
	}
	totals := make(map[slot]*big.Int)
	for _, debit := range debits {
		if debit.amount == nil || debit.amount.Sign() <= 0 {
			continue
		}
		key := slot{debit.holder, debit.currency}
		if total, ok := totals[key]; ok {
			total.Add(total, debit.amount)
		} else {
			totals[key] = new(big.Int).Set(debit.amount)
		}
	}
	for key, total := range totals {
		balance, err := engine.ledger.BalanceOf(key.holder, key.currency)
		if err != nil {
			return err
		}
		if balance.Cmp(total) < 0 {
			return fmt.Errorf("%w: have %s need %s", ErrInsufficientEscrow, balance, total)
		}
	}
	return nil
}

// distribute credits the payee accounts with their shares and emits one
// distribution record per non-zero payee.
func (s *Settlement) distribute(voucherID [32]byte, category string, currency Currency, share Share, buyer, seller [20]byte) error {
	engine, err := s.withEngine()
	if err != nil {
		return err
	}
	payouts := []struct {
		addr   [20]byte
		role   string
		amount *big.Int
	}{
		{buyer, RoleBuyer, share.Buyer},
		{seller, RoleSeller, share.Seller},
		{s.pool, RolePool, share.Pool},
	}
	for _, payout := range payouts {
		if payout.amount == nil || payout.amount.Sign() == 0 {
			continue
		}
		if err := s.creditAccount(payout.addr, currency, payout.amount); err != nil {
			return err
		}
		engine.emit(NewAmountDistributedEvent(voucherID, payout.addr, payout.role, category, currency, payout.amount))
	}
	return nil
}

func (s *Settlement) creditAccount(addr [20]byte, currency Currency, amount *big.Int) error {
	engine, err := s.withEngine()
	if err != nil {
		return err
	}
	account, err := engine.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if account == nil {
		account = coretypes.NewAccount()
	}
	account.AddBalance(currency.Key(), amount)
	return engine.state.PutAccount(addr, account)
}

// ensurePoolConfigured rejects a withdrawal routing a penalty share to an
// unset pool address.
func (s *Settlement) ensurePoolConfigured(dist *Distribution) error {
	if s.pool != ([20]byte{}) {
		return nil
	}
	total := new(big.Int).Add(dist.Price.Pool, dist.BuyerDeposit.Pool)
	total.Add(total, dist.SellerDeposit.Pool)
	if total.Sign() > 0 {
		return fmt.Errorf("voucher settlement: pool address not configured")
	}
	return nil
}
