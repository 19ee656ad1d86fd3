package main

import (
	"log"
	"net/http"

	"stays/src/db"
	"stays/src/models"
	"stays/src/types"
	"stays/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userID := ctx.GetUint("id")
			booking, err := utils.CreateBooking(userID, &body)
			if err != nil {
				log.Printf("Error creating booking: %s\n", err.Error())
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			respondCreated(ctx, booking)
		}).
		GET("/bookings", func(ctx *gin.Context) {
			userID := ctx.GetUint("id")
			db := db.GetDb()
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where("user_id = ?", userID).
				Preload("Property").
				Limit(100).
				Find(&bookings).
				Error; err != nil {
				respondError(ctx, err)
				return
			}
			respond(ctx, bookings)
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			booking, ok := loadOwnBooking(ctx)
			if !ok {
				return
			}
			respond(ctx, booking)
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			booking, ok := loadOwnBooking(ctx)
			if !ok {
				return
			}
			userID := actingUserID(ctx)
			corrID := utils.CorrelationID(ctx)
			orc := getOrchestrator()

			// A settled payment makes cancellation a refund flow; the
			// orchestrator moves the booking along with the refund.
			for _, payment := range booking.Payments {
				if payment.Status == types.PAYMENT_SUCCEEDED || payment.Status == types.PAYMENT_PARTIALLY_REFUNDED {
					reason := "booking cancelled by guest"
					if _, err := orc.ProcessRefund(ctx, corrID, payment.ID, 0, reason, true, userID); err != nil {
						respondError(ctx, err)
						return
					}
					updated, err := getStore().LoadBooking(ctx, booking.ID)
					if err != nil {
						respondError(ctx, err)
						return
					}
					respond(ctx, updated)
					return
				}
			}

			// No settled payment: void anything still in flight, then move
			// the booking directly.
			for _, payment := range booking.Payments {
				if types.IsInFlightPaymentStatus(payment.Status) {
					if _, err := orc.CancelPayment(ctx, corrID, payment.ID, userID); err != nil {
						respondError(ctx, err)
						return
					}
				}
			}
			transitionBooking(ctx, booking.ID, types.BOOKING_CANCELLED)
		}).
		PUT("/bookings/:id/checkin", func(ctx *gin.Context) {
			booking, ok := loadOwnBooking(ctx)
			if !ok {
				return
			}
			transitionBooking(ctx, booking.ID, types.BOOKING_CHECKED_IN)
		}).
		PUT("/bookings/:id/checkout", func(ctx *gin.Context) {
			booking, ok := loadOwnBooking(ctx)
			if !ok {
				return
			}
			transitionBooking(ctx, booking.ID, types.BOOKING_CHECKED_OUT)
		}).
		PUT("/bookings/:id/complete", func(ctx *gin.Context) {
			booking, ok := loadOwnBooking(ctx)
			if !ok {
				return
			}
			transitionBooking(ctx, booking.ID, types.BOOKING_COMPLETED)
		}).
		PUT("/bookings/:id/no-show", func(ctx *gin.Context) {
			booking, ok := loadOwnBooking(ctx)
			if !ok {
				return
			}
			transitionBooking(ctx, booking.ID, types.BOOKING_NO_SHOW)
		})
	return g
}

func loadOwnBooking(ctx *gin.Context) (*models.Booking, bool) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.Status(http.StatusBadRequest)
		return nil, false
	}
	db := db.GetDb()
	var booking models.Booking
	if err := db.
		Model(&models.Booking{}).
		Preload("Property").
		Preload("Payments").
		First(&booking, params.ID).
		Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	userID := ctx.GetUint("id")
	role := ctx.GetString("role")
	if booking.UserID != userID && role != "admin" {
		respondError(ctx, &types.AccessDeniedError{})
		return nil, false
	}
	return &booking, true
}

// transitionBooking applies one lifecycle edge under the booking row lock so
// concurrent updates serialize instead of clobbering each other.
func transitionBooking(ctx *gin.Context, bookingID uint, target types.BookingStatus) {
	db := db.GetDb()
	var booking models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, bookingID).
			Error; err != nil {
			return err
		}
		next, err := types.TransitionBooking(booking.Status, target)
		if err != nil {
			return err
		}
		booking.Status = next
		return tx.Save(&booking).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	respond(ctx, booking)
}
