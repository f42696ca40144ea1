package voucher

import (
	"fmt"
	"math/big"
)

// Share partitions one fund category among the three final payees. The parts
// always sum exactly to the category total.
type Share struct {
	Buyer  *big.Int
	Seller *big.Int
	Pool   *big.Int
}

// Total returns the sum of the three parts.
func (s Share) Total() *big.Int {
	total := new(big.Int).Set(s.Buyer)
	total.Add(total, s.Seller)
	return total.Add(total, s.Pool)
}

// Distribution is the final three-way split per fund category.
type Distribution struct {
	Price         Share
	BuyerDeposit  Share
	SellerDeposit Share
}

type payee uint8

const (
	toBuyer payee = iota
	toSeller
)

// sellerDepositRule selects how the seller deposit category is partitioned.
type sellerDepositRule uint8

const (
	// sdToSeller returns the whole deposit to the seller.
	sdToSeller sellerDepositRule = iota
	// sdHalfEach splits the deposit evenly between buyer and seller;
	// the indivisible remainder goes to the pool.
	sdHalfEach
	// sdPenalty applies the fault penalty: half to the buyer, a quarter to
	// the seller, the rest (quarter plus rounding remainder) to the pool.
	sdPenalty
)

type tableKey struct {
	resolution Resolution
	complained bool
	cancelled  bool
}

type tableRow struct {
	price         payee
	buyerDeposit  payee
	sellerDeposit sellerDepositRule
}

// distributionTable is the exhaustive decision table over the reachable flag
// combinations. A complaint alone never penalizes the seller; the penalty
// applies only once CANCELLED is also recorded, and it touches the seller
// deposit only: a redeemed price always stays with the seller. The buyer
// deposit returns to the buyer in every outcome.
var distributionTable = map[tableKey]tableRow{
	{ResolutionRedeemed, false, false}: {price: toSeller, buyerDeposit: toBuyer, sellerDeposit: sdToSeller},
	{ResolutionRedeemed, false, true}:  {price: toSeller, buyerDeposit: toBuyer, sellerDeposit: sdHalfEach},
	{ResolutionRedeemed, true, false}:  {price: toSeller, buyerDeposit: toBuyer, sellerDeposit: sdToSeller},
	{ResolutionRedeemed, true, true}:   {price: toSeller, buyerDeposit: toBuyer, sellerDeposit: sdPenalty},

	{ResolutionRefunded, false, false}: {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdToSeller},
	{ResolutionRefunded, false, true}:  {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdHalfEach},
	{ResolutionRefunded, true, false}:  {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdToSeller},
	{ResolutionRefunded, true, true}:   {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdPenalty},

	{ResolutionExpired, false, false}: {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdToSeller},
	{ResolutionExpired, false, true}:  {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdHalfEach},
	{ResolutionExpired, true, false}:  {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdToSeller},
	{ResolutionExpired, true, true}:   {price: toBuyer, buyerDeposit: toBuyer, sellerDeposit: sdPenalty},
}

// Distribute computes the final three-way split for every fund category from
// the accumulated status flags. It is a pure function with no side effects;
// the settlement engine is its only production caller.
func Distribute(status Status, price, buyerDeposit, sellerDeposit *big.Int) (*Distribution, error) {
	resolution := status.Resolution()
	if resolution == ResolutionNone {
		return nil, fmt.Errorf("%w: voucher not resolved", ErrInvalidTransition)
	}
	row, ok := distributionTable[tableKey{
		resolution: resolution,
		complained: status.Has(StatusComplained),
		cancelled:  status.Has(StatusCancelled),
	}]
	if !ok {
		return nil, fmt.Errorf("%w: no distribution rule for status %s", ErrInvalidTransition, status)
	}
	dist := &Distribution{
		Price:         allocateSingle(price, row.price),
		BuyerDeposit:  allocateSingle(buyerDeposit, row.buyerDeposit),
		SellerDeposit: allocateSellerDeposit(sellerDeposit, row.sellerDeposit),
	}
	return dist, nil
}

func zeroShare() Share {
	return Share{Buyer: big.NewInt(0), Seller: big.NewInt(0), Pool: big.NewInt(0)}
}

func allocateSingle(total *big.Int, destination payee) Share {
	share := zeroShare()
	amount := cloneBigInt(total)
	switch destination {
	case toBuyer:
		share.Buyer = amount
	case toSeller:
		share.Seller = amount
	}
	return share
}

func allocateSellerDeposit(total *big.Int, rule sellerDepositRule) Share {
	share := zeroShare()
	amount := cloneBigInt(total)
	switch rule {
	case sdToSeller:
		share.Seller = amount
	case sdHalfEach:
		half := new(big.Int).Rsh(amount, 1)
		share.Buyer = new(big.Int).Set(half)
		share.Seller = new(big.Int).Set(half)
		share.Pool = new(big.Int).Sub(amount, new(big.Int).Add(share.Buyer, share.Seller))
	case sdPenalty:
		share.Buyer = new(big.Int).Rsh(amount, 1)
		share.Seller = new(big.Int).Rsh(amount, 2)
		share.Pool = new(big.Int).Sub(amount, new(big.Int).Add(share.Buyer, share.Seller))
	}
	return share
}
