package voucher

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"vouchnet/core/types"
)

const (
	EventTypeOrderCreated          = "voucher.order_created"
	EventTypeDelivered             = "voucher.delivered"
	EventTypeRedeemed              = "voucher.redeemed"
	EventTypeRefunded              = "voucher.refunded"
	EventTypeComplained            = "voucher.complained"
	EventTypeCancelled             = "voucher.cancel_fault"
	EventTypeExpired               = "voucher.expired"
	EventTypeFinalized             = "voucher.finalized"
	EventTypeFundsReleased         = "voucher.funds_released"
	EventTypeAmountDistributed     = "voucher.amount_distributed"
	EventTypeComplainPeriodUpdated = "voucher.complain_period_updated"
	EventTypeCancelPeriodUpdated   = "voucher.cancel_period_updated"
)

// Fund category labels used by release and distribution events.
const (
	CategoryPayment  = "payment"
	CategoryDeposits = "deposits"
)

// Payee role labels used by distribution events.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RolePool   = "pool"
)

// voucherEvent adapts the typed payload to the events.Emitter contract.
type voucherEvent struct {
	evt *types.Event
}

func (e voucherEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e voucherEvent) Event() *types.Event { return e.evt }

// NewOrderCreatedEvent returns the canonical payload for a freshly registered
// promise and its supply.
func NewOrderCreatedEvent(p *Promise, s *Supply) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		attrs["promiseId"] = hex.EncodeToString(p.ID[:])
		attrs["seller"] = hex.EncodeToString(p.Seller[:])
		attrs["validFrom"] = strconv.FormatInt(p.ValidFrom, 10)
		attrs["validTo"] = strconv.FormatInt(p.ValidTo, 10)
		attrs["price"] = cloneBigInt(p.Price).String()
		attrs["sellerDeposit"] = cloneBigInt(p.SellerDeposit).String()
		attrs["buyerDeposit"] = cloneBigInt(p.BuyerDeposit).String()
		attrs["priceCurrency"] = p.PriceCurrency.Key()
		attrs["depositCurrency"] = p.DepositCurrency.Key()
		attrs["quantity"] = strconv.FormatUint(p.Quantity, 10)
	}
	if s != nil {
		attrs["supplyId"] = hex.EncodeToString(s.ID[:])
	}
	return &types.Event{Type: EventTypeOrderCreated, Attributes: attrs}
}

// NewDeliveredEvent returns the payload emitted when a voucher is committed to
// a buyer.
func NewDeliveredEvent(v *Voucher) *types.Event {
	return newVoucherEvent(EventTypeDelivered, v)
}

// NewRedeemedEvent returns the payload emitted on redemption.
func NewRedeemedEvent(v *Voucher) *types.Event { return newVoucherEvent(EventTypeRedeemed, v) }

// NewRefundedEvent returns the payload emitted on refund.
func NewRefundedEvent(v *Voucher) *types.Event { return newVoucherEvent(EventTypeRefunded, v) }

// NewComplainedEvent returns the payload emitted when a complaint is lodged.
func NewComplainedEvent(v *Voucher) *types.Event { return newVoucherEvent(EventTypeComplained, v) }

// NewCancelledEvent returns the payload emitted on a cancel-or-fault.
func NewCancelledEvent(v *Voucher) *types.Event { return newVoucherEvent(EventTypeCancelled, v) }

// NewExpiredEvent returns the payload emitted when expiry is triggered.
func NewExpiredEvent(v *Voucher) *types.Event { return newVoucherEvent(EventTypeExpired, v) }

// NewFinalizedEvent returns the payload emitted when a voucher becomes final.
func NewFinalizedEvent(v *Voucher) *types.Event { return newVoucherEvent(EventTypeFinalized, v) }

// NewFundsReleasedEvent returns the payload emitted once per released fund
// category.
func NewFundsReleasedEvent(id [32]byte, category string) *types.Event {
	return &types.Event{Type: EventTypeFundsReleased, Attributes: map[string]string{
		"voucherId": hex.EncodeToString(id[:]),
		"category":  category,
	}}
}

// NewAmountDistributedEvent returns the per-payee distribution record emitted
// during withdrawal.
func NewAmountDistributedEvent(id [32]byte, payee [20]byte, role, category string, currency Currency, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeAmountDistributed, Attributes: map[string]string{
		"voucherId": hex.EncodeToString(id[:]),
		"payee":     hex.EncodeToString(payee[:]),
		"role":      role,
		"category":  category,
		"currency":  currency.Key(),
		"amount":    cloneBigInt(amount).String(),
	}}
}

// NewComplainPeriodUpdatedEvent records an operator change of the complain
// period parameter.
func NewComplainPeriodUpdatedEvent(previous, next int64) *types.Event {
	return periodUpdatedEvent(EventTypeComplainPeriodUpdated, previous, next)
}

// NewCancelPeriodUpdatedEvent records an operator change of the cancel period
// parameter.
func NewCancelPeriodUpdatedEvent(previous, next int64) *types.Event {
	return periodUpdatedEvent(EventTypeCancelPeriodUpdated, previous, next)
}

func periodUpdatedEvent(eventType string, previous, next int64) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"previousSecs": strconv.FormatInt(previous, 10),
		"currentSecs":  strconv.FormatInt(next, 10),
	}}
}

func newVoucherEvent(eventType string, v *Voucher) *types.Event {
	attrs := make(map[string]string)
	if v == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["voucherId"] = hex.EncodeToString(v.ID[:])
	attrs["supplyId"] = hex.EncodeToString(v.SupplyID[:])
	attrs["holder"] = hex.EncodeToString(v.Holder[:])
	attrs["status"] = v.Status.String()
	if v.ComplainWindowStart > 0 {
		attrs["complainWindowStart"] = strconv.FormatInt(v.ComplainWindowStart, 10)
	}
	if v.CancelWindowStart > 0 {
		attrs["cancelWindowStart"] = strconv.FormatInt(v.CancelWindowStart, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
