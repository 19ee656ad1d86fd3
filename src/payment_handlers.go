package main

import (
	"net/http"

	"stays/src/types"
	"stays/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/bookings/:id/payments", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.ProcessPaymentRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userID := actingUserID(ctx)
			corrID := utils.CorrelationID(ctx)
			payment, err := getOrchestrator().ProcessPayment(ctx, corrID, params.ID, &body, userID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respondCreated(ctx, payment)
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			paymentID, ok := paymentIDParam(ctx)
			if !ok {
				return
			}
			payment, err := getStore().LoadPayment(ctx, paymentID)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			userID := ctx.GetUint("id")
			if payment.Booking.UserID != userID && ctx.GetString("role") != "admin" {
				respondError(ctx, &types.AccessDeniedError{})
				return
			}
			respond(ctx, payment)
		}).
		POST("/payments/:id/refunds", func(ctx *gin.Context) {
			paymentID, ok := paymentIDParam(ctx)
			if !ok {
				return
			}
			var body types.RefundRequestBody
			if err := ctx.ShouldBindBodyWithJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var requested int64
			if body.Amount != "" {
				payment, err := getStore().LoadPayment(ctx, paymentID)
				if err != nil {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				requested, err = types.ParseAmount(body.Amount, payment.Currency)
				if err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
			userID := actingUserID(ctx)
			corrID := utils.CorrelationID(ctx)
			payment, err := getOrchestrator().ProcessRefund(ctx, corrID, paymentID, requested, body.Reason, body.Cancellation, userID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respond(ctx, payment)
		}).
		PUT("/payments/:id/cancel", func(ctx *gin.Context) {
			paymentID, ok := paymentIDParam(ctx)
			if !ok {
				return
			}
			userID := actingUserID(ctx)
			corrID := utils.CorrelationID(ctx)
			payment, err := getOrchestrator().CancelPayment(ctx, corrID, paymentID, userID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			respond(ctx, payment)
		}).
		GET("/payments/:id/verify", func(ctx *gin.Context) {
			paymentID, ok := paymentIDParam(ctx)
			if !ok {
				return
			}
			corrID := utils.CorrelationID(ctx)
			payment, err := getOrchestrator().VerifyPaymentStatus(ctx, corrID, paymentID, actingUserID(ctx))
			if err != nil {
				respondError(ctx, err)
				return
			}
			respond(ctx, payment)
		})
	return g
}

// actingUserID is the identity handed to the orchestrator for its ownership
// checks; admins act without one, matching loadOwnBooking.
func actingUserID(ctx *gin.Context) uint {
	if ctx.GetString("role") == "admin" {
		return 0
	}
	return ctx.GetUint("id")
}

func paymentIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	var params types.PaymentURIParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.Status(http.StatusBadRequest)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(params.ID)
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
