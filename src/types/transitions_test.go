package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allowedBookingPairs = map[BookingStatus][]BookingStatus{
	BOOKING_PENDING:     {BOOKING_CONFIRMED, BOOKING_CANCELLED},
	BOOKING_CONFIRMED:   {BOOKING_CHECKED_IN, BOOKING_CANCELLED, BOOKING_NO_SHOW},
	BOOKING_CHECKED_IN:  {BOOKING_CHECKED_OUT, BOOKING_CANCELLED},
	BOOKING_CHECKED_OUT: {BOOKING_COMPLETED},
	BOOKING_COMPLETED:   {BOOKING_REFUNDED},
}

func isAllowedBookingPair(from, to BookingStatus) bool {
	for _, next := range allowedBookingPairs[from] {
		if next == to {
			return true
		}
	}
	return false
}

func TestTransitionBookingFullTable(t *testing.T) {
	for _, from := range BookingStatuses() {
		for _, to := range BookingStatuses() {
			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				next, err := TransitionBooking(from, to)
				if isAllowedBookingPair(from, to) {
					assert.NoError(t, err)
					assert.Equal(t, to, next)
					return
				}
				var illegal *IllegalTransitionError
				assert.ErrorAs(t, err, &illegal)
				assert.Equal(t, from, illegal.From)
				assert.Equal(t, to, illegal.To)
				assert.Equal(t, from, next)
			})
		}
	}
}

func TestTerminalBookingStatesRejectEverything(t *testing.T) {
	for _, from := range []BookingStatus{BOOKING_CANCELLED, BOOKING_NO_SHOW, BOOKING_REFUNDED} {
		assert.True(t, IsFinalBookingStatus(from))
		for _, to := range BookingStatuses() {
			_, err := TransitionBooking(from, to)
			assert.Error(t, err, "expected %s -> %s to fail", from, to)
		}
	}
	assert.False(t, IsFinalBookingStatus(BOOKING_PENDING))
	assert.False(t, IsFinalBookingStatus(BOOKING_COMPLETED))
}

func TestTransitionBookingUnknownStatus(t *testing.T) {
	_, err := TransitionBooking(BookingStatus("bogus"), BOOKING_CONFIRMED)
	var illegal *IllegalTransitionError
	assert.ErrorAs(t, err, &illegal)
}

func TestTransitionPayment(t *testing.T) {
	valid := [][2]PaymentStatus{
		{PAYMENT_PENDING, PAYMENT_PROCESSING},
		{PAYMENT_PENDING, PAYMENT_FAILED},
		{PAYMENT_PENDING, PAYMENT_CANCELLED},
		{PAYMENT_PENDING, PAYMENT_EXPIRED},
		{PAYMENT_PROCESSING, PAYMENT_SUCCEEDED},
		{PAYMENT_PROCESSING, PAYMENT_FAILED},
		{PAYMENT_PROCESSING, PAYMENT_CANCELLED},
		{PAYMENT_PROCESSING, PAYMENT_EXPIRED},
		{PAYMENT_SUCCEEDED, PAYMENT_REFUNDED},
		{PAYMENT_SUCCEEDED, PAYMENT_PARTIALLY_REFUNDED},
		{PAYMENT_SUCCEEDED, PAYMENT_DISPUTED},
		{PAYMENT_PARTIALLY_REFUNDED, PAYMENT_REFUNDED},
		{PAYMENT_PARTIALLY_REFUNDED, PAYMENT_PARTIALLY_REFUNDED},
		{PAYMENT_DISPUTED, PAYMENT_REFUNDED},
	}
	for _, pair := range valid {
		next, err := TransitionPayment(pair[0], pair[1])
		assert.NoError(t, err, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, pair[1], next)
	}

	invalid := [][2]PaymentStatus{
		{PAYMENT_PENDING, PAYMENT_SUCCEEDED},
		{PAYMENT_PENDING, PAYMENT_REFUNDED},
		{PAYMENT_SUCCEEDED, PAYMENT_PENDING},
		{PAYMENT_SUCCEEDED, PAYMENT_CANCELLED},
		{PAYMENT_FAILED, PAYMENT_PENDING},
		{PAYMENT_FAILED, PAYMENT_SUCCEEDED},
		{PAYMENT_REFUNDED, PAYMENT_PARTIALLY_REFUNDED},
		{PAYMENT_EXPIRED, PAYMENT_PROCESSING},
		{PAYMENT_CANCELLED, PAYMENT_SUCCEEDED},
	}
	for _, pair := range invalid {
		next, err := TransitionPayment(pair[0], pair[1])
		var invalidState *InvalidPaymentStateError
		assert.ErrorAs(t, err, &invalidState, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, pair[0], next)
	}
}

func TestPaymentStatusPredicates(t *testing.T) {
	assert.True(t, IsInFlightPaymentStatus(PAYMENT_PENDING))
	assert.True(t, IsInFlightPaymentStatus(PAYMENT_PROCESSING))
	assert.False(t, IsInFlightPaymentStatus(PAYMENT_SUCCEEDED))
	assert.False(t, IsInFlightPaymentStatus(PAYMENT_FAILED))

	for _, s := range []PaymentStatus{PAYMENT_FAILED, PAYMENT_CANCELLED, PAYMENT_REFUNDED, PAYMENT_EXPIRED} {
		assert.True(t, IsFinalPaymentStatus(s))
	}
	for _, s := range []PaymentStatus{PAYMENT_PENDING, PAYMENT_PROCESSING, PAYMENT_SUCCEEDED, PAYMENT_PARTIALLY_REFUNDED, PAYMENT_DISPUTED} {
		assert.False(t, IsFinalPaymentStatus(s))
	}
}

func TestEnvelopeCodes(t *testing.T) {
	status, res := Envelope(&ConflictError{BookingID: 7})
	assert.Equal(t, 409, status)
	assert.False(t, res.Success)
	assert.Equal(t, "payment_conflict", res.Error.Code)

	status, res = Envelope(&RetryableError{Cause: &GatewayError{Transient: true, Code: "timeout", Message: "gateway timed out"}})
	assert.Equal(t, 503, status)
	assert.Equal(t, "retryable", res.Error.Code)

	status, res = Envelope(&GatewayError{Transient: false, Code: "card_declined", Message: "card was declined"})
	assert.Equal(t, 402, status)
	assert.Equal(t, "gateway_error", res.Error.Code)

	status, res = Envelope(errors.New("boom"))
	assert.Equal(t, 500, status)
	assert.Equal(t, "internal_error", res.Error.Code)
	assert.NotContains(t, res.Error.Message, "boom")
}
