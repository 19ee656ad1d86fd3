// Package policy computes refund eligibility for a booking's cancellation
// policy. It is pure: no clock, no I/O, safe to call repeatedly.
package policy

import (
	"math"
	"stays/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Terms struct {
	RefundPercent int64
	CutoffDays    int
}

var terms = map[types.CancellationPolicyType]Terms{
	types.POLICY_FLEXIBLE:        {RefundPercent: 100, CutoffDays: 1},
	types.POLICY_MODERATE:        {RefundPercent: 100, CutoffDays: 5},
	types.POLICY_STRICT:          {RefundPercent: 50, CutoffDays: 7},
	types.POLICY_SUPER_STRICT_30: {RefundPercent: 50, CutoffDays: 30},
	types.POLICY_SUPER_STRICT_60: {RefundPercent: 50, CutoffDays: 60},
	types.POLICY_NON_REFUNDABLE:  {RefundPercent: 0, CutoffDays: 0},
}

var hundred = decimal.NewFromInt(100)

// TermsFor returns the default terms for a policy variant.
func TermsFor(p types.CancellationPolicyType) (Terms, bool) {
	t, ok := terms[p]
	return t, ok
}

// ComputeRefund returns the refundable amount in minor units and whether the
// booking is eligible at all. Eligibility needs both a refundable policy and
// enough days before check-in; either failing yields zero. Rounding is
// half-up to the currency's minor unit, which for minor-unit amounts is an
// integer round.
func ComputeRefund(p types.CancellationPolicyType, amountMinor int64, daysUntilCheckIn int) (int64, bool) {
	if amountMinor < 0 {
		return 0, false
	}
	t, ok := terms[p]
	if !ok || t.RefundPercent <= 0 {
		return 0, false
	}
	if daysUntilCheckIn < t.CutoffDays {
		return 0, false
	}
	refund := decimal.NewFromInt(amountMinor).
		Mul(decimal.NewFromInt(t.RefundPercent)).
		Div(hundred).
		Round(0).
		IntPart()
	return refund, true
}

// DaysUntilCheckIn floors to whole days; past check-ins yield a negative
// count, which ComputeRefund treats as ineligible.
func DaysUntilCheckIn(checkIn time.Time, now time.Time) int {
	return int(math.Floor(checkIn.Sub(now).Hours() / 24))
}
