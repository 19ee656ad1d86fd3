package models

import "stays/src/types"

type Property struct {
	ID          uint                 `gorm:"primarykey" json:"id"`
	Title       string               `json:"title,omitempty"`
	Slug        string               `gorm:"uniqueIndex" json:"slug,omitempty"`
	Location    string               `json:"location,omitempty"`
	OwnerID     uint                 `json:"owner_id,omitempty"`
	NightlyRate int64                `json:"nightly_rate,omitempty"`
	Currency    string               `gorm:"default:'usd'" json:"currency,omitempty"`
	Status      types.PropertyStatus `gorm:"default:'listed'" json:"status,omitempty"`

	Owner *User `gorm:"foreignKey:owner_id" json:"owner,omitempty"`

	types.Timestamps
}
