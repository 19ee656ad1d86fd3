package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ConflictError signals that a booking already has an in-flight payment.
type ConflictError struct {
	BookingID uint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking [%d] already has a payment in flight", e.BookingID)
}

type IllegalTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal booking transition from [%s] to [%s]", e.From, e.To)
}

type InvalidPaymentStateError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidPaymentStateError) Error() string {
	return fmt.Sprintf("invalid payment state change from [%s] to [%s]", e.From, e.To)
}

type RefundExceedsPolicyError struct {
	Requested int64
	Cap       int64
}

func (e *RefundExceedsPolicyError) Error() string {
	return fmt.Sprintf("requested refund [%d] exceeds the policy cap [%d]", e.Requested, e.Cap)
}

type AccessDeniedError struct{}

func (e *AccessDeniedError) Error() string {
	return "not enough permissions to perform this action"
}

type UnsupportedGatewayError struct {
	Name string
}

func (e *UnsupportedGatewayError) Error() string {
	return fmt.Sprintf("unsupported payment gateway [%s]", e.Name)
}

type SignatureError struct {
	Gateway string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed for [%s]", e.Gateway)
}

// GatewayError is the normalized form of every vendor failure. Transient
// failures are safe to retry from the caller's side; permanent ones are not.
type GatewayError struct {
	Transient bool
	Code      string
	Message   string
}

func (e *GatewayError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("gateway error (%s) [%s]: %s", kind, e.Code, e.Message)
}

// RetryableError tells the caller the operation may be retried; the core
// never retries gateway calls itself.
type RetryableError struct {
	Cause error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("operation can be retried: %s", e.Cause.Error())
}

func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// Envelope maps an error to its HTTP status hint and response body. Vendor
// details never leak past the normalized message.
func Envelope(err error) (int, APIResponse) {
	code := "internal_error"
	status := http.StatusInternalServerError
	message := "an unexpected error has occurred"

	var conflict *ConflictError
	var illegal *IllegalTransitionError
	var invalidState *InvalidPaymentStateError
	var exceeds *RefundExceedsPolicyError
	var denied *AccessDeniedError
	var unsupported *UnsupportedGatewayError
	var sig *SignatureError
	var retryable *RetryableError
	var gw *GatewayError

	switch {
	case errors.As(err, &conflict):
		code, status, message = "payment_conflict", http.StatusConflict, conflict.Error()
	case errors.As(err, &illegal):
		code, status, message = "illegal_transition", http.StatusConflict, illegal.Error()
	case errors.As(err, &invalidState):
		code, status, message = "invalid_payment_state", http.StatusConflict, invalidState.Error()
	case errors.As(err, &exceeds):
		code, status, message = "refund_exceeds_policy", http.StatusUnprocessableEntity, exceeds.Error()
	case errors.As(err, &denied):
		code, status, message = "access_denied", http.StatusForbidden, denied.Error()
	case errors.As(err, &unsupported):
		code, status, message = "unsupported_gateway", http.StatusBadRequest, unsupported.Error()
	case errors.As(err, &sig):
		code, status, message = "invalid_signature", http.StatusBadRequest, sig.Error()
	case errors.As(err, &retryable):
		code, status, message = "retryable", http.StatusServiceUnavailable, retryable.Error()
	case errors.As(err, &gw):
		code, message = "gateway_error", gw.Error()
		if gw.Transient {
			status = http.StatusBadGateway
		} else {
			status = http.StatusPaymentRequired
		}
	}

	return status, APIResponse{
		Success: false,
		Error:   &APIErrorBody{Code: code, Message: message, Status: status},
	}
}
