package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stays/src/gateway"
	"stays/src/models"
	"stays/src/store"
	"stays/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeStore keeps everything in maps. Transactions serialize on a mutex the
// way the booking row lock serializes them in postgres; mutations commit
// eagerly, which is fine because the paths under test fail before mutating.
type fakeStore struct {
	mu       sync.Mutex
	txmu     sync.Mutex
	bookings map[uint]models.Booking
	payments map[uuid.UUID]models.Payment
	refunds  []models.Refund
	ledger   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings: make(map[uint]models.Booking),
		payments: make(map[uuid.UUID]models.Payment),
		ledger:   make(map[string]string),
	}
}

func (s *fakeStore) LoadBooking(ctx context.Context, id uint) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, errors.New("booking not found")
	}
	return &b, nil
}

func (s *fakeStore) LockBooking(ctx context.Context, id uint) (*models.Booking, error) {
	return s.LoadBooking(ctx, id)
}

func (s *fakeStore) SaveBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *fakeStore) LoadPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, errors.New("payment not found")
	}
	if b, ok := s.bookings[p.BookingID]; ok {
		p.Booking = b
	}
	return &p, nil
}

func (s *fakeStore) FindPaymentByExternalID(ctx context.Context, gw types.PaymentGateway, externalID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.Gateway == gw && p.ExternalID != nil && *p.ExternalID == externalID {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindInFlightPayment(ctx context.Context, bookingID uint) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.BookingID == bookingID && types.IsInFlightPaymentStatus(p.Status) {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[payment.ID] = *payment
	return nil
}

func (s *fakeStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	return s.CreatePayment(ctx, payment)
}

func (s *fakeStore) CreateRefund(ctx context.Context, refund *models.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds = append(s.refunds, *refund)
	return nil
}

func (s *fakeStore) RefundTotal(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, r := range s.refunds {
		if r.PaymentID == paymentID {
			total += r.Amount
		}
	}
	return total, nil
}

func (s *fakeStore) LedgerHasEvent(ctx context.Context, gw string, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ledger[gw+":"+eventID]
	return ok, nil
}

func (s *fakeStore) LedgerRecordEvent(ctx context.Context, gw string, eventID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger[gw+":"+eventID] = string(payload)
	return nil
}

func (s *fakeStore) WithTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.txmu.Lock()
	defer s.txmu.Unlock()
	return fn(s)
}

type fakeAdapter struct {
	mu           sync.Mutex
	name         string
	chargeResult *gateway.PaymentResult
	chargeErr    error
	refundErr    error
	cancelErr    error
	verifyStatus types.PaymentStatus
	verifyErr    error
	unsupported  bool
	minimum      int64
	chargeCalls  int
	refundCalls  int
	cancelCalls  int
	verifyCalls  int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.PaymentResult, error) {
	f.mu.Lock()
	f.chargeCalls++
	f.mu.Unlock()
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	if f.chargeResult != nil {
		return f.chargeResult, nil
	}
	return &gateway.PaymentResult{ExternalID: "ext_" + req.PaymentID, Status: types.PAYMENT_SUCCEEDED}, nil
}

func (f *fakeAdapter) Refund(ctx context.Context, externalID string, amount int64, currency string, reason string) (*gateway.RefundResult, error) {
	f.mu.Lock()
	f.refundCalls++
	f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &gateway.RefundResult{ExternalID: "re_" + externalID, Amount: amount}, nil
}

func (f *fakeAdapter) VerifyStatus(ctx context.Context, externalID string) (types.PaymentStatus, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return f.verifyStatus, nil
}

func (f *fakeAdapter) Cancel(ctx context.Context, externalID string) (*gateway.CancelResult, error) {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &gateway.CancelResult{ExternalID: externalID, Canceled: true}, nil
}

func (f *fakeAdapter) ParseWebhook(payload []byte, signature string) (*gateway.NormalizedEvent, error) {
	return nil, nil
}

func (f *fakeAdapter) SupportsCurrency(code string) bool { return !f.unsupported }
func (f *fakeAdapter) MinimumAmount(code string) int64   { return f.minimum }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture() (*fakeStore, *fakeAdapter, *Orchestrator) {
	fs := newFakeStore()
	fa := &fakeAdapter{name: "stripe"}
	reg := gateway.NewRegistry()
	reg.Register(fa)
	orc := New(fs, reg, WithClock(func() time.Time { return fixedNow }))
	return fs, fa, orc
}

func seedBooking(fs *fakeStore, id uint, status types.BookingStatus, p types.CancellationPolicyType, daysOut int) {
	checkIn := fixedNow.AddDate(0, 0, daysOut)
	fs.bookings[id] = models.Booking{
		ID:          id,
		UserID:      1,
		Status:      status,
		Policy:      p,
		TotalAmount: 20000,
		Currency:    "usd",
		CheckIn:     &checkIn,
	}
}

func seedPayment(fs *fakeStore, bookingID uint, status types.PaymentStatus) uuid.UUID {
	id := uuid.New()
	ext := "ext_" + id.String()
	fs.payments[id] = models.Payment{
		ID:         id,
		BookingID:  bookingID,
		Amount:     20000,
		Currency:   "usd",
		Gateway:    types.GATEWAY_STRIPE,
		Status:     status,
		ExternalID: &ext,
	}
	return id
}

func TestProcessPaymentSuccess(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)

	payment, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_SUCCEEDED, payment.Status)
	assert.NotNil(t, payment.ExternalID)
	assert.Equal(t, 1, fa.chargeCalls)
	assert.Equal(t, types.BOOKING_CONFIRMED, fs.bookings[1].Status)
}

func TestProcessPaymentConflict(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	seedPayment(fs, 1, types.PAYMENT_PENDING)

	_, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
	var conflict *types.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint(1), conflict.BookingID)
	assert.Equal(t, 0, fa.chargeCalls)
}

func TestProcessPaymentConcurrent(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err != nil {
			failures++
			var conflict *types.ConflictError
			var illegal *types.IllegalTransitionError
			assert.True(t, errors.As(err, &conflict) || errors.As(err, &illegal), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, types.BOOKING_CONFIRMED, fs.bookings[1].Status)
}

func TestProcessPaymentTransientFailure(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	fa.chargeErr = &types.GatewayError{Transient: true, Code: "timeout", Message: "upstream timeout"}

	payment, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
	var retryable *types.RetryableError
	assert.ErrorAs(t, err, &retryable)
	assert.Equal(t, types.PAYMENT_PENDING, fs.payments[payment.ID].Status)
}

func TestProcessPaymentPermanentFailure(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	fa.chargeErr = &types.GatewayError{Code: "card_declined", Message: "card was declined"}

	payment, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
	var gwErr *types.GatewayError
	assert.ErrorAs(t, err, &gwErr)
	assert.False(t, gwErr.Transient)

	stored := fs.payments[payment.ID]
	assert.Equal(t, types.PAYMENT_FAILED, stored.Status)
	assert.NotNil(t, stored.FailureReason)
	assert.Equal(t, types.BOOKING_PENDING, fs.bookings[1].Status)
}

func TestProcessPaymentUnauthorized(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)

	_, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 2)
	var denied *types.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, 0, fa.chargeCalls)
	assert.Empty(t, fs.payments)
}

func TestProcessPaymentUnsupportedCurrency(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	fa.unsupported = true

	_, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
	var gwErr *types.GatewayError
	assert.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "currency_not_supported", gwErr.Code)
	assert.Equal(t, 0, fa.chargeCalls)
}

func TestProcessPaymentUnknownGateway(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)

	_, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "square"}, 1)
	var unsupported *types.UnsupportedGatewayError
	assert.ErrorAs(t, err, &unsupported)
}

func TestProcessPaymentBookingNotPending(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CANCELLED, types.POLICY_FLEXIBLE, 10)

	_, err := orc.ProcessPayment(context.Background(), "t", 1, &types.ProcessPaymentRequestBody{Gateway: "stripe"}, 1)
	var illegal *types.IllegalTransitionError
	assert.ErrorAs(t, err, &illegal)
	assert.Equal(t, 0, fa.chargeCalls)
}

func TestProcessRefundFull(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)

	payment, err := orc.ProcessRefund(context.Background(), "t", paymentID, 0, "guest request", false, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_REFUNDED, payment.Status)
	assert.Equal(t, 1, fa.refundCalls)
	assert.Len(t, fs.refunds, 1)
	assert.Equal(t, int64(20000), fs.refunds[0].Amount)
}

func TestProcessRefundPartialThenCap(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_STRICT, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)

	// strict refunds at most 50% of 20000
	payment, err := orc.ProcessRefund(context.Background(), "t", paymentID, 5000, "partial", false, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PARTIALLY_REFUNDED, payment.Status)

	_, err = orc.ProcessRefund(context.Background(), "t", paymentID, 6000, "too much", false, 1)
	var exceeds *types.RefundExceedsPolicyError
	assert.ErrorAs(t, err, &exceeds)
	assert.Equal(t, int64(5000), exceeds.Cap)

	payment, err = orc.ProcessRefund(context.Background(), "t", paymentID, 5000, "rest", false, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PARTIALLY_REFUNDED, payment.Status)
	assert.Len(t, fs.refunds, 2)
}

func TestProcessRefundIneligiblePolicy(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_NON_REFUNDABLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)

	_, err := orc.ProcessRefund(context.Background(), "t", paymentID, 0, "", false, 1)
	var exceeds *types.RefundExceedsPolicyError
	assert.ErrorAs(t, err, &exceeds)
	assert.Equal(t, 0, fa.refundCalls)
}

func TestCancellationWithIneligiblePolicyStillCancels(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_NON_REFUNDABLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)

	payment, err := orc.ProcessRefund(context.Background(), "t", paymentID, 0, "guest cancelled", true, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_SUCCEEDED, payment.Status)
	assert.Equal(t, 0, fa.refundCalls)
	assert.Empty(t, fs.refunds)
	assert.Equal(t, types.BOOKING_CANCELLED, fs.bookings[1].Status)
}

func TestCancellationWithRefund(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)

	payment, err := orc.ProcessRefund(context.Background(), "t", paymentID, 0, "guest cancelled", true, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_REFUNDED, payment.Status)
	assert.Equal(t, types.BOOKING_CANCELLED, fs.bookings[1].Status)
}

func TestProcessRefundWrongState(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PENDING)

	_, err := orc.ProcessRefund(context.Background(), "t", paymentID, 0, "", false, 1)
	var invalidState *types.InvalidPaymentStateError
	assert.ErrorAs(t, err, &invalidState)
}

func TestProcessRefundTransient(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)
	fa.refundErr = &types.GatewayError{Transient: true, Code: "timeout", Message: "upstream timeout"}

	_, err := orc.ProcessRefund(context.Background(), "t", paymentID, 0, "", false, 1)
	var retryable *types.RetryableError
	assert.ErrorAs(t, err, &retryable)
	assert.Equal(t, types.PAYMENT_SUCCEEDED, fs.payments[paymentID].Status)
	assert.Empty(t, fs.refunds)
}

func TestCancelPayment(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PENDING)

	payment, err := orc.CancelPayment(context.Background(), "t", paymentID, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_CANCELLED, payment.Status)
	assert.Equal(t, 1, fa.cancelCalls)
}

func TestCancelSettledPayment(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)

	_, err := orc.CancelPayment(context.Background(), "t", paymentID, 1)
	var invalidState *types.InvalidPaymentStateError
	assert.ErrorAs(t, err, &invalidState)
}

func TestVerifyReconcilesStatus(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PROCESSING)
	fa.verifyStatus = types.PAYMENT_SUCCEEDED

	payment, err := orc.VerifyPaymentStatus(context.Background(), "t", paymentID, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_SUCCEEDED, payment.Status)
	assert.Equal(t, types.BOOKING_CONFIRMED, fs.bookings[1].Status)
}

func TestVerifyUnauthorized(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PROCESSING)
	fa.verifyStatus = types.PAYMENT_SUCCEEDED

	_, err := orc.VerifyPaymentStatus(context.Background(), "t", paymentID, 2)
	var denied *types.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, 0, fa.verifyCalls)
	assert.Equal(t, types.PAYMENT_PROCESSING, fs.payments[paymentID].Status)
	assert.Equal(t, types.BOOKING_PENDING, fs.bookings[1].Status)
}

func TestVerifyTransientKeepsLocalStatus(t *testing.T) {
	fs, fa, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PROCESSING)
	fa.verifyErr = &types.GatewayError{Transient: true, Code: "timeout", Message: "upstream timeout"}

	payment, err := orc.VerifyPaymentStatus(context.Background(), "t", paymentID, 1)
	assert.NoError(t, err)
	assert.Equal(t, types.PAYMENT_PROCESSING, payment.Status)
	assert.Equal(t, types.PAYMENT_PROCESSING, fs.payments[paymentID].Status)
}

func TestApplyEventIdempotentReplay(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PROCESSING)
	ext := *fs.payments[paymentID].ExternalID

	evt := &gateway.NormalizedEvent{
		ID:                "evt_1",
		Type:              gateway.EventPaymentSucceeded,
		ExternalPaymentID: ext,
		Amount:            20000,
		Currency:          "usd",
	}
	applied, err := orc.ApplyEvent(context.Background(), "t", "stripe", evt)
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, types.PAYMENT_SUCCEEDED, fs.payments[paymentID].Status)
	assert.Equal(t, types.BOOKING_CONFIRMED, fs.bookings[1].Status)

	applied, err = orc.ApplyEvent(context.Background(), "t", "stripe", evt)
	assert.NoError(t, err)
	assert.False(t, applied)
}

func TestApplyEventCumulativeRefunds(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)
	ext := *fs.payments[paymentID].ExternalID

	applied, err := orc.ApplyEvent(context.Background(), "t", "stripe", &gateway.NormalizedEvent{
		ID:                "evt_1",
		Type:              gateway.EventRefundCompleted,
		ExternalPaymentID: ext,
		Amount:            5000,
	})
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, types.PAYMENT_PARTIALLY_REFUNDED, fs.payments[paymentID].Status)

	applied, err = orc.ApplyEvent(context.Background(), "t", "stripe", &gateway.NormalizedEvent{
		ID:                "evt_2",
		Type:              gateway.EventRefundCompleted,
		ExternalPaymentID: ext,
		Amount:            20000,
	})
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, types.PAYMENT_REFUNDED, fs.payments[paymentID].Status)
	assert.Len(t, fs.refunds, 2)
	assert.Equal(t, int64(15000), fs.refunds[1].Amount)
}

func TestApplyEventUnknownPaymentRedelivers(t *testing.T) {
	fs, _, orc := newFixture()

	// the charge transaction may still be in flight; the event must stay
	// unconsumed so the gateway delivers it again
	applied, err := orc.ApplyEvent(context.Background(), "t", "stripe", &gateway.NormalizedEvent{
		ID:                "evt_x",
		Type:              gateway.EventPaymentSucceeded,
		ExternalPaymentID: "pi_unknown",
	})
	var retryable *types.RetryableError
	assert.ErrorAs(t, err, &retryable)
	assert.False(t, applied)
	assert.Empty(t, fs.ledger)
	assert.Empty(t, fs.payments)
}

func TestApplyEventDispute(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_CONFIRMED, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_SUCCEEDED)
	ext := *fs.payments[paymentID].ExternalID

	applied, err := orc.ApplyEvent(context.Background(), "t", "stripe", &gateway.NormalizedEvent{
		ID:                "evt_d",
		Type:              gateway.EventPaymentDisputed,
		ExternalPaymentID: ext,
		Reason:            "fraudulent",
	})
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, types.PAYMENT_DISPUTED, fs.payments[paymentID].Status)
}

func TestApplyEventOutOfOrderIsSkipped(t *testing.T) {
	fs, _, orc := newFixture()
	seedBooking(fs, 1, types.BOOKING_PENDING, types.POLICY_FLEXIBLE, 10)
	paymentID := seedPayment(fs, 1, types.PAYMENT_PROCESSING)
	ext := *fs.payments[paymentID].ExternalID

	// refund notification arriving before the success one implies an edge
	// the table rejects; the event is consumed without mutating anything
	applied, err := orc.ApplyEvent(context.Background(), "t", "stripe", &gateway.NormalizedEvent{
		ID:                "evt_early",
		Type:              gateway.EventRefundCompleted,
		ExternalPaymentID: ext,
		Amount:            20000,
	})
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, types.PAYMENT_PROCESSING, fs.payments[paymentID].Status)
	assert.Empty(t, fs.refunds)
}
