package models

import "stays/src/types"

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Email string `gorm:"uniqueIndex" json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `gorm:"default:'tenant'" json:"role,omitempty"`

	types.Timestamps
}
