package payments

import (
	"context"
	"math"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/example/ride-pooling/internal/models"
)

// StripeClient wraps stripe-go PaymentIntent hold/capture/cancel flows. A
// hold is placed per passenger when a proposed ride is accepted; capture and
// release happen in later billing flows outside this service.
type StripeClient struct {
	Currency string
}

// NewStripeClient initializes the stripe client with the given API key.
func NewStripeClient(apiKey, currency string) *StripeClient {
	stripe.Key = apiKey
	if currency == "" {
		currency = "usd"
	}
	return &StripeClient{Currency: currency}
}

// HoldFare creates a manual-capture PaymentIntent for one passenger's share
// of the ride and returns the PaymentIntent ID.
func (s *StripeClient) HoldFare(ctx context.Context, ride *models.Ride, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(ride.PricePerPassenger)),
		Currency: stripe.String(s.Currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

// Release cancels the hold on a PaymentIntent.
func (s *StripeClient) Release(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
