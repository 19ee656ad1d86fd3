package types

// Booking and payment status transitions are static lookup tables. The
// orchestrator owns persistence; these functions perform no I/O.

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BOOKING_PENDING:     {BOOKING_CONFIRMED, BOOKING_CANCELLED},
	BOOKING_CONFIRMED:   {BOOKING_CHECKED_IN, BOOKING_CANCELLED, BOOKING_NO_SHOW},
	BOOKING_CHECKED_IN:  {BOOKING_CHECKED_OUT, BOOKING_CANCELLED},
	BOOKING_CHECKED_OUT: {BOOKING_COMPLETED},
	BOOKING_COMPLETED:   {BOOKING_REFUNDED},
	BOOKING_CANCELLED:   {},
	BOOKING_NO_SHOW:     {},
	BOOKING_REFUNDED:    {},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PAYMENT_PENDING:    {PAYMENT_PROCESSING, PAYMENT_FAILED, PAYMENT_CANCELLED, PAYMENT_EXPIRED},
	PAYMENT_PROCESSING: {PAYMENT_SUCCEEDED, PAYMENT_FAILED, PAYMENT_CANCELLED, PAYMENT_EXPIRED},
	PAYMENT_SUCCEEDED:  {PAYMENT_REFUNDED, PAYMENT_PARTIALLY_REFUNDED, PAYMENT_DISPUTED},
	// Repeated partial refunds keep the status in place until the total
	// matches the original amount.
	PAYMENT_PARTIALLY_REFUNDED: {PAYMENT_REFUNDED, PAYMENT_PARTIALLY_REFUNDED, PAYMENT_DISPUTED},
	PAYMENT_DISPUTED:           {PAYMENT_REFUNDED},
	PAYMENT_FAILED:             {},
	PAYMENT_CANCELLED:          {},
	PAYMENT_REFUNDED:           {},
	PAYMENT_EXPIRED:            {},
}

// TransitionBooking validates a booking status change against the table.
func TransitionBooking(from, to BookingStatus) (BookingStatus, error) {
	allowed, ok := bookingTransitions[from]
	if !ok {
		return from, &IllegalTransitionError{From: from, To: to}
	}
	for _, next := range allowed {
		if next == to {
			return to, nil
		}
	}
	return from, &IllegalTransitionError{From: from, To: to}
}

// TransitionPayment validates a payment status change against the table.
func TransitionPayment(from, to PaymentStatus) (PaymentStatus, error) {
	allowed, ok := paymentTransitions[from]
	if !ok {
		return from, &InvalidPaymentStateError{From: from, To: to}
	}
	for _, next := range allowed {
		if next == to {
			return to, nil
		}
	}
	return from, &InvalidPaymentStateError{From: from, To: to}
}

func IsFinalBookingStatus(s BookingStatus) bool {
	return len(bookingTransitions[s]) == 0
}

func IsFinalPaymentStatus(s PaymentStatus) bool {
	return len(paymentTransitions[s]) == 0
}

// IsInFlightPaymentStatus reports whether a payment still occupies the
// at-most-one-in-flight slot for its booking.
func IsInFlightPaymentStatus(s PaymentStatus) bool {
	return s == PAYMENT_PENDING || s == PAYMENT_PROCESSING
}

func BookingStatuses() []BookingStatus {
	return []BookingStatus{
		BOOKING_PENDING,
		BOOKING_CONFIRMED,
		BOOKING_CHECKED_IN,
		BOOKING_CHECKED_OUT,
		BOOKING_COMPLETED,
		BOOKING_CANCELLED,
		BOOKING_NO_SHOW,
		BOOKING_REFUNDED,
	}
}

func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PAYMENT_PENDING,
		PAYMENT_PROCESSING,
		PAYMENT_SUCCEEDED,
		PAYMENT_FAILED,
		PAYMENT_CANCELLED,
		PAYMENT_REFUNDED,
		PAYMENT_PARTIALLY_REFUNDED,
		PAYMENT_DISPUTED,
		PAYMENT_EXPIRED,
	}
}
