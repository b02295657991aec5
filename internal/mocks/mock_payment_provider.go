package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"

	"github.com/cinetick/cinetick/internal/domain"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	reservation *domain.Reservation,
	show *domain.ShowInstance) (*stripe.CheckoutSession, error) {

	args := m.Called(reservation, show)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}
