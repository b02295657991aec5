package payment

import (
	"github.com/stripe/stripe-go/v82"

	"github.com/cinetick/cinetick/internal/domain"
)

type MockPaymentProvider struct {
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	reservation *domain.Reservation,
	show *domain.ShowInstance) (*stripe.CheckoutSession, error) {

	return &stripe.CheckoutSession{
		ID:  "cs_test_" + reservation.ID.String(),
		URL: "https://checkout.example.com/" + reservation.ID.String(),
	}, nil
}
