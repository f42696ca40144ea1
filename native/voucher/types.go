package voucher

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// CurrencyKind distinguishes the ledger's two fungible asset families.
type CurrencyKind uint8

const (
	CurrencyNative CurrencyKind = iota
	CurrencyToken
)

// Currency identifies one independent escrow ledger: either the native
// currency or a specific fungible-token contract. Cross-currency operations
// are never permitted; the Kind/Token pair is the full key.
type Currency struct {
	Kind  CurrencyKind `json:"kind"`
	Token [20]byte     `json:"token"`
}

// NativeCurrency returns the native-coin currency selector.
func NativeCurrency() Currency { return Currency{Kind: CurrencyNative} }

// TokenCurrency returns the selector for the fungible token at addr.
func TokenCurrency(addr [20]byte) Currency {
	return Currency{Kind: CurrencyToken, Token: addr}
}

// Valid reports whether the selector is well formed. Token currencies require
// a non-zero contract address.
func (c Currency) Valid() bool {
	switch c.Kind {
	case CurrencyNative:
		return c.Token == ([20]byte{})
	case CurrencyToken:
		return c.Token != ([20]byte{})
	default:
		return false
	}
}

// Key returns the canonical string key used by the escrow ledger and account
// balance maps.
func (c Currency) Key() string {
	if c.Kind == CurrencyNative {
		return "native"
	}
	return "0x" + hex.EncodeToString(c.Token[:])
}

func (c Currency) String() string { return c.Key() }

// ParseCurrency converts a canonical currency key back into a selector.
func ParseCurrency(key string) (Currency, error) {
	trimmed := strings.ToLower(strings.TrimSpace(key))
	if trimmed == "native" {
		return NativeCurrency(), nil
	}
	trimmed = strings.TrimPrefix(trimmed, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil || len(raw) != 20 {
		return Currency{}, fmt.Errorf("voucher: invalid currency key %q", key)
	}
	var addr [20]byte
	copy(addr[:], raw)
	currency := TokenCurrency(addr)
	if !currency.Valid() {
		return Currency{}, fmt.Errorf("voucher: invalid currency key %q", key)
	}
	return currency, nil
}

// Promise captures the immutable terms of a voucher set. A promise is written
// once at order creation and never mutated or deleted afterwards; it remains
// the historical record the lifecycle and settlement read from.
type Promise struct {
	ID              [32]byte `json:"id"`
	Seller          [20]byte `json:"seller"`
	ValidFrom       int64    `json:"validFrom"`
	ValidTo         int64    `json:"validTo"`
	Price           *big.Int `json:"price"`
	SellerDeposit   *big.Int `json:"sellerDeposit"`
	BuyerDeposit    *big.Int `json:"buyerDeposit"`
	PriceCurrency   Currency `json:"priceCurrency"`
	DepositCurrency Currency `json:"depositCurrency"`
	Quantity        uint64   `json:"quantity"`
	CreatedAt       int64    `json:"createdAt"`
}

// Clone returns a deep copy of the promise.
func (p *Promise) Clone() *Promise {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Price = cloneBigInt(p.Price)
	clone.SellerDeposit = cloneBigInt(p.SellerDeposit)
	clone.BuyerDeposit = cloneBigInt(p.BuyerDeposit)
	return &clone
}

// Supply tracks the fungible, not-yet-individualized portion of a voucher set
// plus the committed vouchers whose seller deposits are still escrowed under
// the issuer.
type Supply struct {
	ID        [32]byte `json:"id"`
	PromiseID [32]byte `json:"promiseId"`
	// Issuer is the escrow-side owner of the supply. It is kept current by
	// ownership transfer callbacks, never trusted as a stale cache at
	// privileged calls.
	Issuer    [20]byte `json:"issuer"`
	Remaining uint64   `json:"remaining"`
	// Open counts committed vouchers whose deposits category has not been
	// released yet.
	Open              uint64 `json:"open"`
	NextIndex         uint64 `json:"nextIndex"`
	DepositsReclaimed bool   `json:"depositsReclaimed"`
}

// Clone returns a copy of the supply record.
func (s *Supply) Clone() *Supply {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Voucher is one individualized, transferable instance committed by a buyer.
type Voucher struct {
	ID        [32]byte `json:"id"`
	SupplyID  [32]byte `json:"supplyId"`
	PromiseID [32]byte `json:"promiseId"`
	// Holder is the escrow-side owner of the voucher, kept current by
	// transfer callbacks. Authorization checks resolve the live owner via
	// the ownership primitive and only fall back to this field when the
	// token has been burned.
	Holder      [20]byte `json:"holder"`
	Status      Status   `json:"status"`
	CommittedAt int64    `json:"committedAt"`
	// Window starts are recorded once; the period values in force at that
	// moment are copied alongside so later parameter changes never reopen
	// or shrink an already started window.
	ComplainWindowStart int64 `json:"complainWindowStart"`
	CancelWindowStart   int64 `json:"cancelWindowStart"`
	ComplainPeriod      int64 `json:"complainPeriod"`
	CancelPeriod        int64 `json:"cancelPeriod"`
	PaymentReleased     bool  `json:"paymentReleased"`
	DepositsReleased    bool  `json:"depositsReleased"`
}

// Clone returns a copy of the voucher record.
func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// SupplyID derives the deterministic voucher-set identifier from the seller
// address and an order nonce. The promise shares the same identifier, keeping
// the 1:1 binding implicit.
func SupplyID(seller [20]byte, nonce uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return ethcrypto.Keccak256Hash(seller[:], buf[:])
}

// VoucherID derives the identifier for the index-th voucher minted from the
// supply.
func VoucherID(supplyID [32]byte, index uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], index)
	return ethcrypto.Keccak256Hash(supplyID[:], buf[:])
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// SanitizePromise validates and normalises a promise, returning a clone with
// non-nil amounts. The original value is not mutated.
func SanitizePromise(p *Promise) (*Promise, error) {
	if p == nil {
		return nil, fmt.Errorf("voucher: nil promise")
	}
	clone := p.Clone()
	if !clone.PriceCurrency.Valid() {
		return nil, fmt.Errorf("voucher: invalid price currency")
	}
	if !clone.DepositCurrency.Valid() {
		return nil, fmt.Errorf("voucher: invalid deposit currency")
	}
	if clone.Price.Sign() < 0 || clone.SellerDeposit.Sign() < 0 || clone.BuyerDeposit.Sign() < 0 {
		return nil, fmt.Errorf("voucher: promise amounts must be non-negative")
	}
	if clone.ValidTo <= clone.ValidFrom {
		return nil, fmt.Errorf("voucher: validity window inverted")
	}
	return clone, nil
}
