package models

import "stays/src/types"

// WebhookEvent is the idempotency ledger. The composite unique index makes
// a duplicate delivery fail the insert, aborting the transaction that
// carries the state mutation with it.
type WebhookEvent struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Gateway string `gorm:"uniqueIndex:idx_webhook_gateway_event" json:"gateway,omitempty"`
	EventID string `gorm:"uniqueIndex:idx_webhook_gateway_event" json:"event_id,omitempty"`
	Payload string `json:"payload,omitempty"`

	types.Timestamps
}
