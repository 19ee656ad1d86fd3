// Package store wraps all persistence behind an interface the payment
// orchestrator can drive, so its concurrency rules can be tested without a
// database. GormStore is the real implementation; WithTransaction hands the
// callback a store bound to the transaction.
package store

import (
	"context"
	"errors"
	"time"

	"stays/src/models"
	"stays/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store interface {
	LoadBooking(ctx context.Context, id uint) (*models.Booking, error)
	// LockBooking takes a row lock on the booking; only meaningful inside
	// WithTransaction, where the lock is held until commit.
	LockBooking(ctx context.Context, id uint) (*models.Booking, error)
	SaveBooking(ctx context.Context, booking *models.Booking) error

	LoadPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindPaymentByExternalID(ctx context.Context, gateway types.PaymentGateway, externalID string) (*models.Payment, error)
	FindInFlightPayment(ctx context.Context, bookingID uint) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	SavePayment(ctx context.Context, payment *models.Payment) error

	CreateRefund(ctx context.Context, refund *models.Refund) error
	RefundTotal(ctx context.Context, paymentID uuid.UUID) (int64, error)

	LedgerHasEvent(ctx context.Context, gateway string, eventID string) (bool, error)
	LedgerRecordEvent(ctx context.Context, gateway string, eventID string, payload []byte) error

	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *GormStore) LockBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&booking, id).
		Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *GormStore) SaveBooking(ctx context.Context, booking *models.Booking) error {
	return s.db.WithContext(ctx).Save(booking).Error
}

func (s *GormStore) LoadPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Preload("Booking").
		Preload("Refunds").
		First(&payment, "id = ?", id).
		Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *GormStore) FindPaymentByExternalID(ctx context.Context, gateway types.PaymentGateway, externalID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("gateway = ? AND external_id = ?", gateway, externalID).
		First(&payment).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindInFlightPayment returns a pending or processing payment for the
// booking, or nil when there is none.
func (s *GormStore) FindInFlightPayment(ctx context.Context, bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("booking_id = ? AND status IN ?", bookingID, []types.PaymentStatus{types.PAYMENT_PENDING, types.PAYMENT_PROCESSING}).
		First(&payment).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *GormStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Create(payment).Error
}

func (s *GormStore) SavePayment(ctx context.Context, payment *models.Payment) error {
	return s.db.WithContext(ctx).Save(payment).Error
}

func (s *GormStore) CreateRefund(ctx context.Context, refund *models.Refund) error {
	return s.db.WithContext(ctx).Create(refund).Error
}

func (s *GormStore) RefundTotal(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("payment_id = ?", paymentID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).
		Error
	return total, err
}

func (s *GormStore) LedgerHasEvent(ctx context.Context, gateway string, eventID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		Count(&count).
		Error
	return count > 0, err
}

func (s *GormStore) LedgerRecordEvent(ctx context.Context, gateway string, eventID string, payload []byte) error {
	return s.db.WithContext(ctx).Create(&models.WebhookEvent{
		Gateway: gateway,
		EventID: eventID,
		Payload: string(payload),
	}).Error
}

func (s *GormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// ExpireStalePayments moves pending payments older than the cutoff to
// expired in bulk. Used by the scheduler, not part of the Store interface.
func (s *GormStore) ExpireStalePayments(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ? AND created_at < ?", types.PAYMENT_PENDING, olderThan).
		Update("status", types.PAYMENT_EXPIRED)
	return res.RowsAffected, res.Error
}
