package main

import (
	"io"
	"log"
	"net/http"

	"stays/src/utils"

	"github.com/gin-gonic/gin"
)

// signatureHeaders maps each gateway to the header carrying its webhook
// signature; the raw value is handed to the adapter untouched.
var signatureHeaders = map[string]string{
	"stripe": "Stripe-Signature",
	"paypal": "Paypal-Transmission-Sig",
}

func webhookHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.POST("/webhook/:gateway", func(ctx *gin.Context) {
		gatewayName := ctx.Params.ByName("gateway")
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		header, ok := signatureHeaders[gatewayName]
		if !ok {
			ctx.Status(http.StatusBadRequest)
			return
		}
		corrID := utils.CorrelationID(ctx)
		applied, err := getIngestor().Ingest(ctx, corrID, gatewayName, payload, ctx.GetHeader(header))
		if err != nil {
			log.Printf("[%s] webhook processing failed: %s\n", corrID, err.Error())
			respondError(ctx, err)
			return
		}
		if !applied {
			log.Printf("[%s] webhook acknowledged without changes\n", corrID)
		}
		ctx.Status(http.StatusNoContent)
	})
	return g
}
