package voucher

import "errors"

var (
	// ErrInvalidTransition signals that a lifecycle precondition (flags,
	// timing or authorization) was not met. No state is changed.
	ErrInvalidTransition = errors.New("voucher: invalid transition")
	// ErrInsufficientEscrow signals a ledger debit exceeding the tracked
	// balance. The surrounding operation is aborted wholesale.
	ErrInsufficientEscrow = errors.New("voucher: insufficient escrow balance")
	// ErrOverflow signals ledger arithmetic leaving the unsigned 256-bit
	// range. Balances are never silently saturated.
	ErrOverflow = errors.New("voucher: escrow arithmetic overflow")
	// ErrAlreadyReleased guards withdrawals: each fund category is paid out
	// at most once per voucher.
	ErrAlreadyReleased = errors.New("voucher: funds already released")

	ErrUnknownVoucher = errors.New("voucher: unknown voucher")
	ErrUnknownPromise = errors.New("voucher: unknown promise")
	ErrUnknownSupply  = errors.New("voucher: unknown supply")

	// ErrOrderLimit is returned when the aggregate order value exceeds the
	// configured per-currency maximum at creation time.
	ErrOrderLimit = errors.New("voucher: order value exceeds currency limit")
)
