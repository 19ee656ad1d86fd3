// Package payments coordinates the payment lifecycle: charging, refunding,
// cancelling, status reconciliation and webhook application. All state
// mutations happen inside store transactions holding the booking row lock;
// gateway calls always happen outside any lock.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"stays/src/gateway"
	"stays/src/models"
	"stays/src/policy"
	"stays/src/store"
	"stays/src/types"

	"github.com/google/uuid"
)

type Publisher func(topic string, payload map[string]any) error

type Orchestrator struct {
	store   store.Store
	reg     *gateway.Registry
	publish Publisher
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publish = p }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(s store.Store, reg *gateway.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: s, reg: reg, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessPayment charges a booking. The in-flight check and the pending
// payment insert share one transaction under the booking row lock, so two
// concurrent attempts cannot both pass; the losing one gets a ConflictError.
// The gateway call runs after that transaction commits, and the outcome is
// written back under a fresh lock.
func (o *Orchestrator) ProcessPayment(ctx context.Context, corrID string, bookingID uint, req *types.ProcessPaymentRequestBody, actingUser uint) (*models.Payment, error) {
	adapter, err := o.reg.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}

	booking, err := o.store.LoadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actingUser != 0 && booking.UserID != actingUser {
		return nil, &types.AccessDeniedError{}
	}
	if !adapter.SupportsCurrency(booking.Currency) {
		return nil, &types.GatewayError{Code: "currency_not_supported", Message: fmt.Sprintf("%s does not accept %s", adapter.Name(), booking.Currency)}
	}
	if booking.TotalAmount < adapter.MinimumAmount(booking.Currency) {
		return nil, &types.GatewayError{Code: "amount_below_minimum", Message: "amount is below the gateway minimum"}
	}

	payment := &models.Payment{
		ID:             uuid.New(),
		BookingID:      bookingID,
		Amount:         booking.TotalAmount,
		Currency:       booking.Currency,
		Gateway:        types.PaymentGateway(adapter.Name()),
		Method:         types.PaymentMethod(req.Method),
		Status:         types.PAYMENT_PENDING,
		IdempotencyKey: uuid.NewString(),
	}
	err = o.store.WithTransaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if locked.Status != types.BOOKING_PENDING {
			return &types.IllegalTransitionError{From: locked.Status, To: types.BOOKING_CONFIRMED}
		}
		inflight, err := tx.FindInFlightPayment(ctx, bookingID)
		if err != nil {
			return err
		}
		if inflight != nil {
			return &types.ConflictError{BookingID: bookingID}
		}
		return tx.CreatePayment(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	result, chargeErr := adapter.Charge(ctx, &gateway.ChargeRequest{
		PaymentID:       payment.ID.String(),
		BookingID:       bookingID,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		Method:          payment.Method,
		PaymentMethodID: req.PaymentMethodID,
		IdempotencyKey:  payment.IdempotencyKey,
		Description:     fmt.Sprintf("booking #%d", bookingID),
	})
	if chargeErr != nil {
		var gwErr *types.GatewayError
		if errors.As(chargeErr, &gwErr) && gwErr.Transient {
			// Stays pending; the caller may retry with the same booking.
			log.Printf("[%s] transient charge failure for payment %s: %s\n", corrID, payment.ID, chargeErr.Error())
			return payment, &types.RetryableError{Cause: chargeErr}
		}
		err = o.store.WithTransaction(ctx, func(tx store.Store) error {
			if _, err := tx.LockBooking(ctx, bookingID); err != nil {
				return err
			}
			next, err := types.TransitionPayment(payment.Status, types.PAYMENT_FAILED)
			if err != nil {
				return err
			}
			payment.Status = next
			reason := chargeErr.Error()
			payment.FailureReason = &reason
			return tx.SavePayment(ctx, payment)
		})
		if err != nil {
			log.Printf("[%s] could not record charge failure for payment %s: %s\n", corrID, payment.ID, err.Error())
		}
		o.emit(corrID, "payment.failed", payment)
		return payment, chargeErr
	}

	err = o.store.WithTransaction(ctx, func(tx store.Store) error {
		locked, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		next, err := types.TransitionPayment(payment.Status, types.PAYMENT_PROCESSING)
		if err != nil {
			return err
		}
		payment.Status = next
		if result.Status != types.PAYMENT_PROCESSING {
			next, err = types.TransitionPayment(payment.Status, result.Status)
			if err != nil {
				return err
			}
			payment.Status = next
		}
		payment.ExternalID = &result.ExternalID
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		if payment.Status == types.PAYMENT_SUCCEEDED {
			status, err := types.TransitionBooking(locked.Status, types.BOOKING_CONFIRMED)
			if err != nil {
				return err
			}
			locked.Status = status
			return tx.SaveBooking(ctx, locked)
		}
		return nil
	})
	if err != nil {
		return payment, err
	}
	o.emit(corrID, "payment."+string(payment.Status), payment)
	return payment, nil
}

// ProcessRefund issues a refund capped by the booking's cancellation policy
// minus refunds already granted. A requested amount of zero means "as much
// as the policy allows". With cancellation set, the booking is also moved to
// its cancelled (or refunded, when already completed) state; an ineligible
// policy then cancels the booking with no money movement.
func (o *Orchestrator) ProcessRefund(ctx context.Context, corrID string, paymentID uuid.UUID, requested int64, reason string, cancellation bool, actingUser uint) (*models.Payment, error) {
	payment, err := o.store.LoadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if actingUser != 0 && payment.Booking.UserID != actingUser {
		return nil, &types.AccessDeniedError{}
	}

	var amount int64
	err = o.store.WithTransaction(ctx, func(tx store.Store) error {
		booking, err := tx.LockBooking(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		fresh, err := tx.LoadPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		payment = fresh
		if payment.Status != types.PAYMENT_SUCCEEDED && payment.Status != types.PAYMENT_PARTIALLY_REFUNDED {
			return &types.InvalidPaymentStateError{From: payment.Status, To: types.PAYMENT_REFUNDED}
		}

		days := 0
		if booking.CheckIn != nil {
			days = policy.DaysUntilCheckIn(*booking.CheckIn, o.now())
		}
		allowed, eligible := policy.ComputeRefund(booking.Policy, payment.Amount, days)
		granted, err := tx.RefundTotal(ctx, paymentID)
		if err != nil {
			return err
		}
		remaining := allowed - granted
		if remaining < 0 {
			remaining = 0
		}

		if !eligible || remaining == 0 {
			if cancellation {
				// No money moves; the booking still cancels.
				amount = 0
				return nil
			}
			return &types.RefundExceedsPolicyError{Requested: requested, Cap: remaining}
		}
		amount = requested
		if amount <= 0 {
			amount = remaining
		}
		if amount > remaining {
			return &types.RefundExceedsPolicyError{Requested: amount, Cap: remaining}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var refundExternalID *string
	if amount > 0 {
		adapter, err := o.reg.Resolve(string(payment.Gateway))
		if err != nil {
			return nil, err
		}
		if payment.ExternalID == nil {
			return nil, &types.GatewayError{Code: "missing_external_id", Message: "payment has no gateway reference"}
		}
		result, err := adapter.Refund(ctx, *payment.ExternalID, amount, payment.Currency, reason)
		if err != nil {
			var gwErr *types.GatewayError
			if errors.As(err, &gwErr) && gwErr.Transient {
				return payment, &types.RetryableError{Cause: err}
			}
			return payment, err
		}
		refundExternalID = &result.ExternalID
	}

	err = o.store.WithTransaction(ctx, func(tx store.Store) error {
		booking, err := tx.LockBooking(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		if amount > 0 {
			if err := tx.CreateRefund(ctx, &models.Refund{
				ID:         uuid.New(),
				PaymentID:  paymentID,
				Amount:     amount,
				Reason:     reason,
				ExternalID: refundExternalID,
			}); err != nil {
				return err
			}
			total, err := tx.RefundTotal(ctx, paymentID)
			if err != nil {
				return err
			}
			target := types.PAYMENT_PARTIALLY_REFUNDED
			if total >= payment.Amount {
				target = types.PAYMENT_REFUNDED
			}
			next, err := types.TransitionPayment(payment.Status, target)
			if err != nil {
				return err
			}
			payment.Status = next
			if err := tx.SavePayment(ctx, payment); err != nil {
				return err
			}
		}
		if cancellation {
			target := types.BOOKING_CANCELLED
			if booking.Status == types.BOOKING_COMPLETED {
				target = types.BOOKING_REFUNDED
			}
			status, err := types.TransitionBooking(booking.Status, target)
			if err != nil {
				return err
			}
			booking.Status = status
			return tx.SaveBooking(ctx, booking)
		}
		return nil
	})
	if err != nil {
		return payment, err
	}
	o.emit(corrID, "payment."+string(payment.Status), payment)
	return payment, nil
}

// CancelPayment voids a payment that has not settled yet.
func (o *Orchestrator) CancelPayment(ctx context.Context, corrID string, paymentID uuid.UUID, actingUser uint) (*models.Payment, error) {
	payment, err := o.store.LoadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if actingUser != 0 && payment.Booking.UserID != actingUser {
		return nil, &types.AccessDeniedError{}
	}
	if !types.IsInFlightPaymentStatus(payment.Status) {
		return nil, &types.InvalidPaymentStateError{From: payment.Status, To: types.PAYMENT_CANCELLED}
	}

	if payment.ExternalID != nil {
		adapter, err := o.reg.Resolve(string(payment.Gateway))
		if err != nil {
			return nil, err
		}
		if _, err := adapter.Cancel(ctx, *payment.ExternalID); err != nil {
			var gwErr *types.GatewayError
			if errors.As(err, &gwErr) && gwErr.Transient {
				return payment, &types.RetryableError{Cause: err}
			}
			return payment, err
		}
	}

	err = o.store.WithTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.LockBooking(ctx, payment.BookingID); err != nil {
			return err
		}
		fresh, err := tx.LoadPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		next, err := types.TransitionPayment(fresh.Status, types.PAYMENT_CANCELLED)
		if err != nil {
			return err
		}
		fresh.Status = next
		payment = fresh
		return tx.SavePayment(ctx, fresh)
	})
	if err != nil {
		return payment, err
	}
	o.emit(corrID, "payment.cancelled", payment)
	return payment, nil
}

// VerifyPaymentStatus reconciles the local payment with the gateway's view.
// A transient lookup failure keeps the local state and reports it; when the
// gateway disagrees the local record follows the gateway.
func (o *Orchestrator) VerifyPaymentStatus(ctx context.Context, corrID string, paymentID uuid.UUID, actingUser uint) (*models.Payment, error) {
	payment, err := o.store.LoadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if actingUser != 0 && payment.Booking.UserID != actingUser {
		return nil, &types.AccessDeniedError{}
	}
	if payment.ExternalID == nil || types.IsFinalPaymentStatus(payment.Status) {
		return payment, nil
	}
	adapter, err := o.reg.Resolve(string(payment.Gateway))
	if err != nil {
		return nil, err
	}
	remote, err := adapter.VerifyStatus(ctx, *payment.ExternalID)
	if err != nil {
		var gwErr *types.GatewayError
		if errors.As(err, &gwErr) && gwErr.Transient {
			log.Printf("[%s] gateway unavailable while verifying payment %s, keeping local status %s\n", corrID, paymentID, payment.Status)
			return payment, nil
		}
		return payment, err
	}
	if remote == payment.Status {
		return payment, nil
	}

	err = o.store.WithTransaction(ctx, func(tx store.Store) error {
		booking, err := tx.LockBooking(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		fresh, err := tx.LoadPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := advancePayment(fresh, remote); err != nil {
			return err
		}
		if fresh.Status == types.PAYMENT_SUCCEEDED && booking.Status == types.BOOKING_PENDING {
			status, err := types.TransitionBooking(booking.Status, types.BOOKING_CONFIRMED)
			if err != nil {
				return err
			}
			booking.Status = status
			if err := tx.SaveBooking(ctx, booking); err != nil {
				return err
			}
		}
		payment = fresh
		return tx.SavePayment(ctx, fresh)
	})
	if err != nil {
		return payment, err
	}
	o.emit(corrID, "payment."+string(payment.Status), payment)
	return payment, nil
}

// advancePayment walks the payment to the target status, inserting the
// processing hop when a settlement outcome lands on a still-pending record.
func advancePayment(payment *models.Payment, target types.PaymentStatus) error {
	if payment.Status == target {
		return nil
	}
	if payment.Status == types.PAYMENT_PENDING && target == types.PAYMENT_SUCCEEDED {
		next, err := types.TransitionPayment(payment.Status, types.PAYMENT_PROCESSING)
		if err != nil {
			return err
		}
		payment.Status = next
	}
	next, err := types.TransitionPayment(payment.Status, target)
	if err != nil {
		return err
	}
	payment.Status = next
	return nil
}

func (o *Orchestrator) emit(corrID string, event string, payment *models.Payment) {
	if o.publish == nil {
		return
	}
	go func() {
		err := o.publish("payments", map[string]any{
			"event":          event,
			"payment_id":     payment.ID.String(),
			"booking_id":     payment.BookingID,
			"status":         payment.Status,
			"correlation_id": corrID,
		})
		if err != nil {
			log.Printf("[%s] failed to publish %s for payment %s: %s\n", corrID, event, payment.ID, err.Error())
		}
	}()
}
