package lib

import (
	"context"
	"log"
	"os"

	"github.com/plutov/paypal/v4"
)

var paypalClient *paypal.Client

func GetPayPalClient() *paypal.Client {
	if paypalClient != nil {
		return paypalClient
	}
	base := paypal.APIBaseSandBox
	if os.Getenv("PAYPAL_LIVE") == "true" {
		base = paypal.APIBaseLive
	}
	pc, err := paypal.NewClient(os.Getenv("PAYPAL_CLIENT_ID"), os.Getenv("PAYPAL_CLIENT_SECRET"), base)
	if err != nil {
		log.Printf("[paypal] Error initializing client: %s\n", err.Error())
		return nil
	}
	if _, err := pc.GetAccessToken(context.Background()); err != nil {
		log.Printf("[paypal] Error retrieving access token: %s\n", err.Error())
	}
	paypalClient = pc
	return pc
}

func NewPayPalClient(c *paypal.Client) {
	paypalClient = c
}
