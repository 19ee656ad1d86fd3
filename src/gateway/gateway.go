// Package gateway defines the capability contract every payment processor
// adapter satisfies, plus the registry the orchestrator resolves adapters
// from. Vendor SDK types never cross this boundary: every failure comes out
// as *types.GatewayError and every webhook as a NormalizedEvent.
package gateway

import (
	"context"
	"strings"
	"sync"

	"stays/src/types"
)

type ChargeRequest struct {
	PaymentID       string
	BookingID       uint
	Amount          int64
	Currency        string
	Method          types.PaymentMethod
	PaymentMethodID string
	IdempotencyKey  string
	Description     string
	Metadata        map[string]string
}

type PaymentResult struct {
	ExternalID string
	Status     types.PaymentStatus
}

type RefundResult struct {
	ExternalID string
	Amount     int64
}

type CancelResult struct {
	ExternalID string
	Canceled   bool
}

type EventType string

const (
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentCanceled  EventType = "payment.canceled"
	EventRefundCompleted  EventType = "refund.completed"
	EventPaymentDisputed  EventType = "payment.disputed"
)

// NormalizedEvent is a verified webhook notification in gateway-neutral
// form. ExternalPaymentID is the processor-side reference stored on the
// Payment at charge time.
type NormalizedEvent struct {
	ID                string
	Type              EventType
	ExternalPaymentID string
	Amount            int64
	Currency          string
	Reason            string
	Raw               []byte
}

type Adapter interface {
	Name() string
	Charge(ctx context.Context, req *ChargeRequest) (*PaymentResult, error)
	Refund(ctx context.Context, externalID string, amount int64, currency string, reason string) (*RefundResult, error)
	VerifyStatus(ctx context.Context, externalID string) (types.PaymentStatus, error)
	Cancel(ctx context.Context, externalID string) (*CancelResult, error)
	// ParseWebhook receives the raw request body and the raw signature
	// header value, both untransformed.
	ParseWebhook(payload []byte, signature string) (*NormalizedEvent, error)
	SupportsCurrency(code string) bool
	MinimumAmount(code string) int64
}

type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[strings.ToLower(a.Name())] = a
}

// Resolve looks up an adapter by gateway name, case-insensitive.
func (r *Registry) Resolve(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, &types.UnsupportedGatewayError{Name: name}
	}
	return a, nil
}
