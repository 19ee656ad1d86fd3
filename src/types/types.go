package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata = JSONB

type BookingStatus string

const (
	BOOKING_PENDING     BookingStatus = "pending"
	BOOKING_CONFIRMED   BookingStatus = "confirmed"
	BOOKING_CHECKED_IN  BookingStatus = "checked_in"
	BOOKING_CHECKED_OUT BookingStatus = "checked_out"
	BOOKING_COMPLETED   BookingStatus = "completed"
	BOOKING_CANCELLED   BookingStatus = "cancelled"
	BOOKING_NO_SHOW     BookingStatus = "no_show"
	BOOKING_REFUNDED    BookingStatus = "refunded"
)

type PaymentStatus string

const (
	PAYMENT_PENDING            PaymentStatus = "pending"
	PAYMENT_PROCESSING         PaymentStatus = "processing"
	PAYMENT_SUCCEEDED          PaymentStatus = "succeeded"
	PAYMENT_FAILED             PaymentStatus = "failed"
	PAYMENT_CANCELLED          PaymentStatus = "cancelled"
	PAYMENT_REFUNDED           PaymentStatus = "refunded"
	PAYMENT_PARTIALLY_REFUNDED PaymentStatus = "partially_refunded"
	PAYMENT_DISPUTED           PaymentStatus = "disputed"
	PAYMENT_EXPIRED            PaymentStatus = "expired"
)

type CancellationPolicyType string

const (
	POLICY_FLEXIBLE        CancellationPolicyType = "flexible"
	POLICY_MODERATE        CancellationPolicyType = "moderate"
	POLICY_STRICT          CancellationPolicyType = "strict"
	POLICY_SUPER_STRICT_30 CancellationPolicyType = "super_strict_30"
	POLICY_SUPER_STRICT_60 CancellationPolicyType = "super_strict_60"
	POLICY_NON_REFUNDABLE  CancellationPolicyType = "non_refundable"
)

type PaymentGateway string

const (
	GATEWAY_STRIPE PaymentGateway = "stripe"
	GATEWAY_PAYPAL PaymentGateway = "paypal"
)

type PaymentMethod string

const (
	METHOD_CARD          PaymentMethod = "card"
	METHOD_PAYPAL        PaymentMethod = "paypal"
	METHOD_BANK_TRANSFER PaymentMethod = "bank_transfer"
)

type PropertyStatus string

const (
	PROPERTY_LISTED   PropertyStatus = "listed"
	PROPERTY_UNLISTED PropertyStatus = "unlisted"
	PROPERTY_ARCHIVED PropertyStatus = "archived"
)

type Env string

const (
	Local      Env = "local"
	Test       Env = "test"
	Production Env = "production"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type PaymentURIParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type CreatePropertyRequestBody struct {
	Title       string `json:"title" binding:"required"`
	Location    string `json:"location" binding:"required"`
	NightlyRate string `json:"nightly_rate" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
}

type CreateBookingRequestBody struct {
	PropertyID uint   `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required,bookabledate"`
	CheckOut   string `json:"check_out" binding:"required,bookabledate,gtdate=CheckIn"`
	Policy     string `json:"policy,omitempty"`
}

type ProcessPaymentRequestBody struct {
	Gateway         string `json:"gateway" binding:"required"`
	Method          string `json:"method,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

type RefundRequestBody struct {
	Amount       string `json:"amount,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Cancellation bool   `json:"cancellation,omitempty"`
}

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

type LoginRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// APIResponse is the uniform result envelope returned by every route.
type APIResponse struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *APIErrorBody `json:"error,omitempty"`
}

type APIErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"http_status"`
}

func OK(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}
