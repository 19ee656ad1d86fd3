package models

import (
	"stays/src/types"
	"time"
)

type Booking struct {
	ID          uint                         `gorm:"primarykey" json:"id"`
	PropertyID  uint                         `json:"property_id,omitempty"`
	UserID      uint                         `json:"user_id,omitempty"`
	CheckIn     *time.Time                   `json:"check_in,omitempty"`
	CheckOut    *time.Time                   `json:"check_out,omitempty"`
	Status      types.BookingStatus          `gorm:"default:'pending'" json:"status,omitempty"`
	Policy      types.CancellationPolicyType `gorm:"default:'moderate'" json:"policy,omitempty"`
	TotalAmount int64                        `json:"total_amount,omitempty"`
	Currency    string                       `json:"currency,omitempty"`
	Metadata    *types.Metadata              `gorm:"type:jsonb" json:"metadata,omitempty"`

	Property *Property  `gorm:"foreignKey:property_id" json:"property,omitempty"`
	User     *User      `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Payments []*Payment `json:"payments,omitempty"`

	types.Timestamps
}
