package payments

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stays/src/gateway"
	"stays/src/models"
	"stays/src/store"
	"stays/src/types"

	"github.com/google/uuid"
)

// ApplyEvent applies a verified, normalized webhook event. The ledger check,
// the payment mutation and the ledger insert share one transaction: a
// replayed delivery either short-circuits on the ledger read or aborts on
// the ledger's unique index, and a crashed apply leaves no ledger entry so
// the redelivery starts clean. Returns whether the event was consumed (a
// duplicate returns false).
func (o *Orchestrator) ApplyEvent(ctx context.Context, corrID string, gatewayName string, evt *gateway.NormalizedEvent) (bool, error) {
	applied := false
	err := o.store.WithTransaction(ctx, func(tx store.Store) error {
		seen, err := tx.LedgerHasEvent(ctx, gatewayName, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}

		payment, err := tx.FindPaymentByExternalID(ctx, types.PaymentGateway(gatewayName), evt.ExternalPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			// Likely the charge write losing a race with the gateway's
			// delivery. Ledgering here would consume the event for good, so
			// fail instead and let the gateway redeliver once the charge
			// transaction has landed.
			log.Printf("[%s] webhook %s references unknown payment %s\n", corrID, evt.ID, evt.ExternalPaymentID)
			return &types.RetryableError{Cause: fmt.Errorf("no payment matches gateway reference [%s]", evt.ExternalPaymentID)}
		}

		booking, err := tx.LockBooking(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		if err := o.applyToPayment(ctx, tx, booking, payment, evt); err != nil {
			// An out-of-order delivery can imply an edge the table rejects;
			// the local record stays authoritative and the event is still
			// ledgered so the gateway stops redelivering it.
			var invalidState *types.InvalidPaymentStateError
			if !errors.As(err, &invalidState) {
				return err
			}
			log.Printf("[%s] webhook %s skipped: %s\n", corrID, evt.ID, err.Error())
		}
		applied = true
		return tx.LedgerRecordEvent(ctx, gatewayName, evt.ID, evt.Raw)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (o *Orchestrator) applyToPayment(ctx context.Context, tx store.Store, booking *models.Booking, payment *models.Payment, evt *gateway.NormalizedEvent) error {
	switch evt.Type {
	case gateway.EventPaymentSucceeded:
		if payment.Status == types.PAYMENT_SUCCEEDED {
			return nil
		}
		if err := advancePayment(payment, types.PAYMENT_SUCCEEDED); err != nil {
			return err
		}
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		if booking.Status == types.BOOKING_PENDING {
			status, err := types.TransitionBooking(booking.Status, types.BOOKING_CONFIRMED)
			if err != nil {
				return err
			}
			booking.Status = status
			return tx.SaveBooking(ctx, booking)
		}
		return nil

	case gateway.EventPaymentFailed:
		if payment.Status == types.PAYMENT_FAILED {
			return nil
		}
		next, err := types.TransitionPayment(payment.Status, types.PAYMENT_FAILED)
		if err != nil {
			return err
		}
		payment.Status = next
		if evt.Reason != "" {
			payment.FailureReason = &evt.Reason
		}
		return tx.SavePayment(ctx, payment)

	case gateway.EventPaymentCanceled:
		if payment.Status == types.PAYMENT_CANCELLED {
			return nil
		}
		next, err := types.TransitionPayment(payment.Status, types.PAYMENT_CANCELLED)
		if err != nil {
			return err
		}
		payment.Status = next
		return tx.SavePayment(ctx, payment)

	case gateway.EventRefundCompleted:
		if payment.Status == types.PAYMENT_REFUNDED {
			return nil
		}
		target := types.PAYMENT_PARTIALLY_REFUNDED
		if evt.Amount >= payment.Amount {
			target = types.PAYMENT_REFUNDED
		}
		next, err := types.TransitionPayment(payment.Status, target)
		if err != nil {
			return err
		}
		// Gateways report the cumulative refunded total; only the delta over
		// what the ledger already knows becomes a new refund row.
		granted, err := tx.RefundTotal(ctx, payment.ID)
		if err != nil {
			return err
		}
		delta := evt.Amount - granted
		if delta > 0 {
			if err := tx.CreateRefund(ctx, &models.Refund{
				ID:        uuid.New(),
				PaymentID: payment.ID,
				Amount:    delta,
				Reason:    evt.Reason,
			}); err != nil {
				return err
			}
		}
		payment.Status = next
		return tx.SavePayment(ctx, payment)

	case gateway.EventPaymentDisputed:
		if payment.Status == types.PAYMENT_DISPUTED {
			return nil
		}
		next, err := types.TransitionPayment(payment.Status, types.PAYMENT_DISPUTED)
		if err != nil {
			return err
		}
		payment.Status = next
		return tx.SavePayment(ctx, payment)
	}
	return nil
}
