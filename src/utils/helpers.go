package utils

import (
	"context"
	"errors"
	"log"
	"time"

	"stays/src/config"
	"stays/src/db"
	"stays/src/models"
	"stays/src/store"
	"stays/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CorrelationID prefers the caller-supplied request id so log lines can be
// tied back to the client's trace.
func CorrelationID(ctx *gin.Context) string {
	if rid := ctx.GetHeader("X-Request-Id"); rid != "" {
		return rid
	}
	return uuid.NewString()
}

// CreateBooking prices the stay off the property's nightly rate and inserts
// the booking in its pending state.
func CreateBooking(userID uint, body *types.CreateBookingRequestBody) (*models.Booking, error) {
	checkIn, err := time.Parse(config.DATE_PARSE_FORMAT, body.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := time.Parse(config.DATE_PARSE_FORMAT, body.CheckOut)
	if err != nil {
		return nil, err
	}
	nights := int64(checkOut.Sub(checkIn).Hours() / 24)
	if nights < 1 {
		return nil, errors.New("stay must be at least one night")
	}

	booking := models.Booking{}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.
			Model(&models.Property{}).
			Where("id = ?", body.PropertyID).
			First(&property).
			Error; err != nil {
			log.Printf("Error retrieving property %d: %s\n", body.PropertyID, err.Error())
			return err
		}
		if property.Status != types.PROPERTY_LISTED {
			return errors.New("property is not accepting bookings")
		}
		policy := types.CancellationPolicyType(body.Policy)
		if policy == "" {
			policy = types.POLICY_MODERATE
		}
		booking = models.Booking{
			PropertyID:  property.ID,
			UserID:      userID,
			CheckIn:     &checkIn,
			CheckOut:    &checkOut,
			Status:      types.BOOKING_PENDING,
			Policy:      policy,
			TotalAmount: nights * property.NightlyRate,
			Currency:    property.Currency,
		}
		if err := tx.Create(&booking).Error; err != nil {
			log.Printf("Error creating booking: %s\n", err.Error())
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ExpireStalePayments is the scheduler task that sweeps pending payments
// that never reached a gateway outcome.
func ExpireStalePayments(maxAge time.Duration) {
	s := store.New(db.GetDb())
	cutoff := time.Now().Add(-maxAge)
	n, err := s.ExpireStalePayments(context.Background(), cutoff)
	if err != nil {
		log.Printf("Error expiring stale payments: %s\n", err.Error())
		return
	}
	if n > 0 {
		log.Printf("Expired %d stale payments\n", n)
	}
}
