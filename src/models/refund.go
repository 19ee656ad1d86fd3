package models

import (
	"stays/src/types"

	"github.com/google/uuid"
)

type Refund struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	PaymentID  uuid.UUID `gorm:"type:uuid" json:"payment_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ExternalID *string   `json:"external_id,omitempty"`

	Payment Payment `gorm:"foreignKey:payment_id" json:"-"`

	types.Timestamps
}
