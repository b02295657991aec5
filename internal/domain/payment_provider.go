package domain

import "github.com/stripe/stripe-go/v82"

// PaymentProvider starts a checkout session for a pending reservation. The
// provider reports the outcome asynchronously through the webhook endpoint;
// nothing here runs inside a ledger transaction.
type PaymentProvider interface {
	CreateCheckoutSession(reservation *Reservation, show *ShowInstance) (*stripe.CheckoutSession, error)
}
