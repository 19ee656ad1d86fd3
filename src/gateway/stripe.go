package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"stays/src/types"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeMinimums holds charge minimums in minor units for the currencies we
// accept cards in. Anything absent falls back to the usd floor.
var stripeMinimums = map[string]int64{
	"usd": 50,
	"eur": 50,
	"gbp": 30,
	"aud": 50,
	"cad": 50,
	"jpy": 50,
	"sgd": 50,
}

type StripeAdapter struct {
	sc            *stripe.Client
	webhookSecret string
}

func NewStripeAdapter(sc *stripe.Client, webhookSecret string) *StripeAdapter {
	return &StripeAdapter{sc: sc, webhookSecret: webhookSecret}
}

func (a *StripeAdapter) Name() string {
	return string(types.GATEWAY_STRIPE)
}

func (a *StripeAdapter) SupportsCurrency(code string) bool {
	_, ok := stripeMinimums[strings.ToLower(code)]
	return ok
}

func (a *StripeAdapter) MinimumAmount(code string) int64 {
	if min, ok := stripeMinimums[strings.ToLower(code)]; ok {
		return min
	}
	return stripeMinimums["usd"]
}

func (a *StripeAdapter) Charge(ctx context.Context, req *ChargeRequest) (*PaymentResult, error) {
	params := stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		Metadata: map[string]string{
			"payment_id":      req.PaymentID,
			"idempotency_key": req.IdempotencyKey,
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
		params.Confirm = stripe.Bool(true)
		params.AutomaticPaymentMethods = &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		}
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	pi, err := a.sc.V1PaymentIntents.Create(ctx, &params)
	if err != nil {
		return nil, normalizeStripeErr(err)
	}
	return &PaymentResult{ExternalID: pi.ID, Status: stripeIntentStatus(pi.Status)}, nil
}

func (a *StripeAdapter) Refund(ctx context.Context, externalID string, amount int64, currency string, reason string) (*RefundResult, error) {
	params := stripe.RefundCreateParams{
		PaymentIntent: stripe.String(externalID),
		Amount:        stripe.Int64(amount),
	}
	if reason != "" {
		params.Metadata = map[string]string{"reason": reason}
	}
	ref, err := a.sc.V1Refunds.Create(ctx, &params)
	if err != nil {
		return nil, normalizeStripeErr(err)
	}
	return &RefundResult{ExternalID: ref.ID, Amount: ref.Amount}, nil
}

func (a *StripeAdapter) VerifyStatus(ctx context.Context, externalID string) (types.PaymentStatus, error) {
	pi, err := a.sc.V1PaymentIntents.Retrieve(ctx, externalID, nil)
	if err != nil {
		return "", normalizeStripeErr(err)
	}
	return stripeIntentStatus(pi.Status), nil
}

func (a *StripeAdapter) Cancel(ctx context.Context, externalID string) (*CancelResult, error) {
	pi, err := a.sc.V1PaymentIntents.Cancel(ctx, externalID, nil)
	if err != nil {
		return nil, normalizeStripeErr(err)
	}
	return &CancelResult{ExternalID: pi.ID, Canceled: pi.Status == stripe.PaymentIntentStatusCanceled}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps the event onto
// a NormalizedEvent. Event types we do not track return (nil, nil) so the
// caller can acknowledge them without touching any payment.
func (a *StripeAdapter) ParseWebhook(payload []byte, signature string) (*NormalizedEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, a.webhookSecret)
	if err != nil {
		return nil, &types.SignatureError{Gateway: a.Name()}
	}
	out := &NormalizedEvent{ID: event.ID, Raw: event.Data.Raw}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, &types.GatewayError{Code: "malformed_event", Message: err.Error()}
		}
		out.ExternalPaymentID = pi.ID
		out.Amount = pi.Amount
		out.Currency = string(pi.Currency)
		switch event.Type {
		case "payment_intent.succeeded":
			out.Type = EventPaymentSucceeded
		case "payment_intent.payment_failed":
			out.Type = EventPaymentFailed
			if pi.LastPaymentError != nil {
				out.Reason = pi.LastPaymentError.Msg
			}
		default:
			out.Type = EventPaymentCanceled
		}
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, &types.GatewayError{Code: "malformed_event", Message: err.Error()}
		}
		if ch.PaymentIntent == nil {
			return nil, nil
		}
		out.Type = EventRefundCompleted
		out.ExternalPaymentID = ch.PaymentIntent.ID
		out.Amount = ch.AmountRefunded
		out.Currency = string(ch.Currency)
	case "charge.dispute.created":
		var dp stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dp); err != nil {
			return nil, &types.GatewayError{Code: "malformed_event", Message: err.Error()}
		}
		if dp.PaymentIntent == nil {
			return nil, nil
		}
		out.Type = EventPaymentDisputed
		out.ExternalPaymentID = dp.PaymentIntent.ID
		out.Amount = dp.Amount
		out.Currency = string(dp.Currency)
		out.Reason = string(dp.Reason)
	default:
		return nil, nil
	}
	return out, nil
}

func stripeIntentStatus(s stripe.PaymentIntentStatus) types.PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return types.PAYMENT_SUCCEEDED
	case stripe.PaymentIntentStatusCanceled:
		return types.PAYMENT_CANCELLED
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return types.PAYMENT_FAILED
	default:
		// processing, requires_action, requires_confirmation, requires_capture
		return types.PAYMENT_PROCESSING
	}
}

// normalizeStripeErr folds SDK errors into the gateway error taxonomy.
// 5xx and rate limits are transient; everything Stripe rejects outright
// (declines, bad params) is permanent. Transport failures where we never
// got a response are treated as transient.
func normalizeStripeErr(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		transient := serr.HTTPStatusCode >= 500 || serr.HTTPStatusCode == 429
		return &types.GatewayError{
			Transient: transient,
			Code:      string(serr.Code),
			Message:   serr.Msg,
		}
	}
	return &types.GatewayError{Transient: true, Code: "network_error", Message: err.Error()}
}
