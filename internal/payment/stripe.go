package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/cinetick/cinetick/internal/domain"
)

type StripePaymentProvider struct {
	failureUrl string
	successUrl string
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
	}
}

// CreateCheckoutSession opens a Stripe checkout session for a pending
// reservation, one line item per held seat. The session expires together
// with the hold; the reservation id travels in the metadata so the webhook
// can route the outcome back to the reservation engine.
func (s *StripePaymentProvider) CreateCheckoutSession(
	reservation *domain.Reservation,
	show *domain.ShowInstance) (*stripe.CheckoutSession, error) {

	priceCents := show.Price.Mul(decimal.NewFromInt(100)).IntPart()

	var lineItems []*stripe.CheckoutSessionLineItemParams

	for _, label := range reservation.SeatLabels {
		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 Seat %s", label)),
					Description: stripe.String(fmt.Sprintf(
						"Showtime: %s",
						show.StartTime.Format("Jan 2, 2006 15:04"),
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		ExpiresAt:  stripe.Int64(reservation.ExpiresAt.Unix()),
		Metadata: map[string]string{
			"reservation_id": reservation.ID.String(),
			"user_id":        reservation.UserID,
		},
		ClientReferenceID: stripe.String(reservation.ID.String()),
	}

	return session.New(params)
}

var _ domain.PaymentProvider = (*StripePaymentProvider)(nil)
