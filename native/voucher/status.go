package voucher

import "strings"

// Status is an 8-bit fact accumulator for the voucher lifecycle. Bits are set
// monotonically as facts become true and are never cleared, so several facts
// (e.g. REFUNDED, COMPLAINED and CANCELLED) can coexist on one voucher.
type Status uint8

const (
	StatusCommitted Status = 1 << iota
	StatusRedeemed
	StatusRefunded
	StatusExpired
	StatusComplained
	StatusCancelled
	StatusFinalized
	statusReserved //nolint:unused // eighth bit kept free for future facts
)

// Has reports whether every bit in flag is set.
func (s Status) Has(flag Status) bool { return s&flag == flag }

// With returns the status with the supplied bits set.
func (s Status) With(flag Status) Status { return s | flag }

// Resolved reports whether the voucher has recorded its single resolution
// fact: redemption, refund or expiry.
func (s Status) Resolved() bool {
	return s&(StatusRedeemed|StatusRefunded|StatusExpired) != 0
}

// Resolution identifies which of the mutually exclusive resolution facts is
// set. Exactly one can ever be recorded per voucher.
type Resolution uint8

const (
	ResolutionNone Resolution = iota
	ResolutionRedeemed
	ResolutionRefunded
	ResolutionExpired
)

// Resolution extracts the resolution fact from the flag vector.
func (s Status) Resolution() Resolution {
	switch {
	case s.Has(StatusRedeemed):
		return ResolutionRedeemed
	case s.Has(StatusRefunded):
		return ResolutionRefunded
	case s.Has(StatusExpired):
		return ResolutionExpired
	default:
		return ResolutionNone
	}
}

// String renders the set facts as a stable, plus-separated list.
func (s Status) String() string {
	if s == 0 {
		return "none"
	}
	names := []struct {
		flag Status
		name string
	}{
		{StatusCommitted, "committed"},
		{StatusRedeemed, "redeemed"},
		{StatusRefunded, "refunded"},
		{StatusExpired, "expired"},
		{StatusComplained, "complained"},
		{StatusCancelled, "cancelled"},
		{StatusFinalized, "finalized"},
	}
	parts := make([]string, 0, len(names))
	for _, entry := range names {
		if s.Has(entry.flag) {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "+")
}
