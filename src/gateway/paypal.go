package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"stays/src/types"

	"github.com/plutov/paypal/v4"
	"github.com/tidwall/gjson"
)

var paypalCurrencies = map[string]int64{
	"usd": 100,
	"eur": 100,
	"gbp": 100,
	"aud": 100,
	"cad": 100,
	"jpy": 100,
}

type PayPalAdapter struct {
	pc            *paypal.Client
	webhookSecret string
}

func NewPayPalAdapter(pc *paypal.Client, webhookSecret string) *PayPalAdapter {
	return &PayPalAdapter{pc: pc, webhookSecret: webhookSecret}
}

func (a *PayPalAdapter) Name() string {
	return string(types.GATEWAY_PAYPAL)
}

func (a *PayPalAdapter) SupportsCurrency(code string) bool {
	_, ok := paypalCurrencies[strings.ToLower(code)]
	return ok
}

func (a *PayPalAdapter) MinimumAmount(code string) int64 {
	if min, ok := paypalCurrencies[strings.ToLower(code)]; ok {
		return min
	}
	return paypalCurrencies["usd"]
}

func (a *PayPalAdapter) Charge(ctx context.Context, req *ChargeRequest) (*PaymentResult, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: req.PaymentID,
			CustomID:    req.IdempotencyKey,
			Description: req.Description,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: strings.ToUpper(req.Currency),
				Value:    types.FormatAmount(req.Amount, req.Currency),
			},
		},
	}
	order, err := a.pc.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return nil, normalizePayPalErr(err)
	}
	return &PaymentResult{ExternalID: order.ID, Status: paypalOrderStatus(order.Status)}, nil
}

func (a *PayPalAdapter) Refund(ctx context.Context, externalID string, amount int64, currency string, reason string) (*RefundResult, error) {
	captureID, err := a.captureIDForOrder(ctx, externalID)
	if err != nil {
		return nil, err
	}
	res, err := a.pc.RefundCapture(ctx, captureID, paypal.RefundCaptureRequest{
		Amount: &paypal.Money{
			Currency: strings.ToUpper(currency),
			Value:    types.FormatAmount(amount, currency),
		},
		NoteToPayer: reason,
	})
	if err != nil {
		return nil, normalizePayPalErr(err)
	}
	return &RefundResult{ExternalID: res.ID, Amount: amount}, nil
}

func (a *PayPalAdapter) VerifyStatus(ctx context.Context, externalID string) (types.PaymentStatus, error) {
	order, err := a.pc.GetOrder(ctx, externalID)
	if err != nil {
		return "", normalizePayPalErr(err)
	}
	return paypalOrderStatus(order.Status), nil
}

func (a *PayPalAdapter) Cancel(ctx context.Context, externalID string) (*CancelResult, error) {
	order, err := a.pc.GetOrder(ctx, externalID)
	if err != nil {
		return nil, normalizePayPalErr(err)
	}
	if order.Status == "COMPLETED" {
		return nil, &types.GatewayError{Code: "order_completed", Message: "completed orders cannot be voided"}
	}
	// Orders that were never captured expire on PayPal's side; nothing to
	// unwind remotely.
	return &CancelResult{ExternalID: order.ID, Canceled: true}, nil
}

// ParseWebhook authenticates the payload with the shared webhook secret and
// maps capture events onto normalized types. Unrecognized event types return
// (nil, nil).
func (a *PayPalAdapter) ParseWebhook(payload []byte, signature string) (*NormalizedEvent, error) {
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return nil, &types.SignatureError{Gateway: a.Name()}
	}

	body := gjson.ParseBytes(payload)
	eventID := body.Get("id").String()
	eventType := body.Get("event_type").String()
	if eventID == "" || eventType == "" {
		return nil, &types.GatewayError{Code: "malformed_event", Message: "missing id or event_type"}
	}

	externalID := body.Get("resource.supplementary_data.related_ids.order_id").String()
	if externalID == "" {
		externalID = body.Get("resource.id").String()
	}

	out := &NormalizedEvent{ID: eventID, ExternalPaymentID: externalID, Raw: payload}
	if value := body.Get("resource.amount.value"); value.Exists() {
		currency := body.Get("resource.amount.currency_code").String()
		minor, err := types.ParseAmount(value.String(), currency)
		if err != nil {
			return nil, &types.GatewayError{Code: "malformed_event", Message: err.Error()}
		}
		out.Amount = minor
		out.Currency = strings.ToLower(currency)
	}

	switch eventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		out.Type = EventPaymentSucceeded
	case "PAYMENT.CAPTURE.DENIED":
		out.Type = EventPaymentFailed
		out.Reason = body.Get("resource.status_details.reason").String()
	case "PAYMENT.CAPTURE.REFUNDED":
		out.Type = EventRefundCompleted
	case "CUSTOMER.DISPUTE.CREATED":
		out.Type = EventPaymentDisputed
		out.Reason = body.Get("resource.reason").String()
	default:
		return nil, nil
	}
	return out, nil
}

func (a *PayPalAdapter) captureIDForOrder(ctx context.Context, orderID string) (string, error) {
	order, err := a.pc.GetOrder(ctx, orderID)
	if err != nil {
		return "", normalizePayPalErr(err)
	}
	for _, unit := range order.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			return capture.ID, nil
		}
	}
	return "", &types.GatewayError{Code: "no_capture", Message: "order has no captured payment to refund"}
}

func paypalOrderStatus(status string) types.PaymentStatus {
	switch status {
	case "COMPLETED":
		return types.PAYMENT_SUCCEEDED
	case "VOIDED":
		return types.PAYMENT_CANCELLED
	default:
		// CREATED, SAVED, APPROVED, PAYER_ACTION_REQUIRED
		return types.PAYMENT_PROCESSING
	}
}

func normalizePayPalErr(err error) error {
	var perr *paypal.ErrorResponse
	if errors.As(err, &perr) {
		transient := perr.Response != nil && (perr.Response.StatusCode >= 500 || perr.Response.StatusCode == 429)
		return &types.GatewayError{
			Transient: transient,
			Code:      perr.Name,
			Message:   perr.Message,
		}
	}
	return &types.GatewayError{Transient: true, Code: "network_error", Message: err.Error()}
}
