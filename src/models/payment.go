package models

import (
	"stays/src/types"

	"github.com/google/uuid"
)

type Payment struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	BookingID      uint                 `json:"booking_id,omitempty"`
	Amount         int64                `json:"amount,omitempty"`
	Currency       string               `json:"currency,omitempty"`
	Gateway        types.PaymentGateway `json:"gateway,omitempty"`
	Method         types.PaymentMethod  `json:"method,omitempty"`
	Status         types.PaymentStatus  `gorm:"default:'pending'" json:"status,omitempty"`
	ExternalID     *string              `json:"external_id,omitempty"`
	FailureReason  *string              `json:"failure_reason,omitempty"`
	IdempotencyKey string               `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`
	Metadata       *types.Metadata      `gorm:"type:jsonb" json:"metadata,omitempty"`

	Booking Booking   `gorm:"foreignKey:booking_id" json:"-"`
	Refunds []*Refund `json:"refunds,omitempty"`

	types.Timestamps
}
