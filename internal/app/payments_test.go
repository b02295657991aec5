package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/cinetick/cinetick/internal/clock"
	"github.com/cinetick/cinetick/internal/domain"
	"github.com/cinetick/cinetick/internal/mailer"
	"github.com/cinetick/cinetick/internal/mocks"
	"github.com/cinetick/cinetick/internal/reservation"
)

const webhookSecret = "whsec_test_secret"

type WebhookTestSuite struct {
	suite.Suite
	app             *Application
	showRepo        *mocks.MockShowRepo
	reservationRepo *mocks.MockReservationRepo
	bookingRepo     *mocks.MockBookingRepo
	paymentRepo     *mocks.MockPaymentRepo
	ledger          *mocks.MockSeatLedger
	publisher       *mocks.MockPublisher
	mailer          *mailer.MockMailer
	clock           *clock.Fixed
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}

func (s *WebhookTestSuite) SetupTest() {
	s.showRepo = new(mocks.MockShowRepo)
	s.reservationRepo = new(mocks.MockReservationRepo)
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.paymentRepo = new(mocks.MockPaymentRepo)
	s.ledger = &mocks.MockSeatLedger{}
	s.publisher = new(mocks.MockPublisher)
	s.mailer = mailer.NewMockMailer()
	s.clock = clock.NewFixed(time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC))

	engine := reservation.NewEngine(
		txRunnerStub{},
		s.showRepo,
		s.reservationRepo,
		s.bookingRepo,
		s.ledger,
		s.clock,
	)

	s.app = newTestApplication(func(a *Application) {
		a.config.Stripe.WebhookSecret = webhookSecret
		a.showRepo = s.showRepo
		a.reservationRepo = s.reservationRepo
		a.bookingRepo = s.bookingRepo
		a.paymentRepo = s.paymentRepo
		a.ledger = s.ledger
		a.publisher = s.publisher
		a.mailer = s.mailer
		a.clock = s.clock
		a.engine = engine
	})
}

func (s *WebhookTestSuite) signedRequest(eventType string, sessionPayload map[string]any) (*httptest.ResponseRecorder, *http.Request) {
	object, err := json.Marshal(sessionPayload)
	s.Require().NoError(err)

	payload, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": json.RawMessage(object)},
	})
	s.Require().NoError(err)

	now := time.Now()
	signature := webhook.ComputeSignature(now, payload, webhookSecret)

	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	r.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%x", now.Unix(), signature))

	return httptest.NewRecorder(), r
}

func (s *WebhookTestSuite) sessionPayload(reservationId uuid.UUID) map[string]any {
	return map[string]any{
		"id":               "cs_test_123",
		"metadata":         map[string]string{"reservation_id": reservationId.String()},
		"customer_details": map[string]any{"email": "alice@example.com"},
	}
}

func (s *WebhookTestSuite) pendingReservation() *domain.Reservation {
	return &domain.Reservation{
		ID:             uuid.New(),
		ShowInstanceID: uuid.New(),
		UserID:         "user-1",
		SeatLabels:     []string{"A1", "A2"},
		Status:         domain.ReservationPending,
		Amount:         decimal.NewFromFloat(25.00),
		ExpiresAt:      s.clock.Now().Add(5 * time.Minute),
	}
}

func (s *WebhookTestSuite) show(id uuid.UUID) *domain.ShowInstance {
	return &domain.ShowInstance{
		ID:         id,
		MovieID:    "603692",
		StartTime:  s.clock.Now().Add(2 * time.Hour),
		Price:      decimal.NewFromFloat(12.50),
		SeatLayout: []string{"A1", "A2", "A3"},
	}
}

func (s *WebhookTestSuite) TestRejectsInvalidSignature() {
	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{}`)))
	r.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")
	w := httptest.NewRecorder()

	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *WebhookTestSuite) TestAcknowledgesUnknownEventTypes() {
	w, r := s.signedRequest("payment_intent.created", map[string]any{"id": "pi_test_1"})

	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
}

func (s *WebhookTestSuite) TestCheckoutCompletedConfirmsReservation() {
	reservation := s.pendingReservation()

	s.reservationRepo.On("GetByIdForUpdate", mock.Anything, reservation.ID).Return(reservation, nil).Once()
	s.reservationRepo.On("TransitionStatus", mock.Anything, reservation.ID, domain.ReservationConfirmed).
		Return(nil).Once()
	s.ledger.ConfirmFunc = func(ctx context.Context, reservationID uuid.UUID) error {
		return nil
	}
	s.bookingRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	s.paymentRepo.On("UpdateStatus", mock.Anything, "cs_test_123", domain.PaymentStatusCompleted, "").
		Return(nil).Once()
	s.showRepo.On("GetById", mock.Anything, reservation.ShowInstanceID).
		Return(s.show(reservation.ShowInstanceID), nil).Once()

	w, r := s.signedRequest("checkout.session.completed", s.sessionPayload(reservation.ID))
	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
	s.paymentRepo.AssertExpectations(s.T())

	// Event publishing and the confirmation email run off the request path.
	s.Eventually(func() bool {
		return len(s.publisher.Events()) == 1 && len(s.mailer.GetSentEmails()) == 1
	}, time.Second, 10*time.Millisecond)

	event := s.publisher.Events()[0]
	s.Equal(reservation.ID.String(), event.ReservationID)
	s.Equal([]string{"A1", "A2"}, event.SeatLabels)

	email := s.mailer.GetSentEmails()[0]
	s.Equal("alice@example.com", email.Recipient)
	s.Equal("booking_confirmation.tmpl", email.TemplateFile)
}

func (s *WebhookTestSuite) TestCheckoutCompletedAfterHoldExpired() {
	reservation := s.pendingReservation()
	reservation.ExpiresAt = s.clock.Now().Add(-time.Minute)

	s.reservationRepo.On("GetByIdForUpdate", mock.Anything, reservation.ID).Return(reservation, nil).Once()
	s.reservationRepo.On("TransitionStatus", mock.Anything, reservation.ID, domain.ReservationExpired).
		Return(nil).Once()

	released := false
	s.ledger.ReleaseFunc = func(ctx context.Context, reservationID uuid.UUID) error {
		released = true
		return nil
	}

	s.paymentRepo.On("UpdateStatus", mock.Anything, "cs_test_123", domain.PaymentStatusCanceled,
		"hold expired before payment completed").Return(nil).Once()

	w, r := s.signedRequest("checkout.session.completed", s.sessionPayload(reservation.ID))
	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusGone, w.Code)
	s.True(released)
	s.paymentRepo.AssertExpectations(s.T())
	s.Empty(s.publisher.Events())
}

func (s *WebhookTestSuite) TestCheckoutCompletedAfterSweeperExpired() {
	reservation := s.pendingReservation()
	reservation.Status = domain.ReservationExpired

	s.reservationRepo.On("GetByIdForUpdate", mock.Anything, reservation.ID).Return(reservation, nil).Once()

	s.paymentRepo.On("UpdateStatus", mock.Anything, "cs_test_123", domain.PaymentStatusCanceled,
		"hold expired before payment completed").Return(nil).Once()

	w, r := s.signedRequest("checkout.session.completed", s.sessionPayload(reservation.ID))
	s.app.Routes().ServeHTTP(w, r)

	// The sweeper already expired the hold, but the customer still paid:
	// same refund-owed outcome as a lazy expiry.
	s.Equal(http.StatusGone, w.Code)
	s.paymentRepo.AssertExpectations(s.T())
	s.Empty(s.publisher.Events())
}

func (s *WebhookTestSuite) TestCheckoutCompletedIsIdempotent() {
	reservation := s.pendingReservation()
	reservation.Status = domain.ReservationConfirmed

	existing := &domain.Booking{
		ID:             uuid.New(),
		ReservationID:  reservation.ID,
		UserID:         reservation.UserID,
		ShowInstanceID: reservation.ShowInstanceID,
		SeatLabels:     reservation.SeatLabels,
		Amount:         reservation.Amount,
		IsPaid:         true,
	}

	s.reservationRepo.On("GetByIdForUpdate", mock.Anything, reservation.ID).Return(reservation, nil).Once()
	s.bookingRepo.On("GetByReservationId", mock.Anything, reservation.ID).Return(existing, nil).Once()
	s.paymentRepo.On("UpdateStatus", mock.Anything, "cs_test_123", domain.PaymentStatusCompleted, "").
		Return(nil).Once()
	s.showRepo.On("GetById", mock.Anything, reservation.ShowInstanceID).
		Return(s.show(reservation.ShowInstanceID), nil).Once()

	w, r := s.signedRequest("checkout.session.completed", s.sessionPayload(reservation.ID))
	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
}

func (s *WebhookTestSuite) TestCheckoutExpiredReleasesHold() {
	reservation := s.pendingReservation()

	s.reservationRepo.On("GetByIdForUpdate", mock.Anything, reservation.ID).Return(reservation, nil).Once()
	s.reservationRepo.On("TransitionStatus", mock.Anything, reservation.ID, domain.ReservationCancelled).
		Return(nil).Once()

	released := false
	s.ledger.ReleaseFunc = func(ctx context.Context, reservationID uuid.UUID) error {
		released = true
		return nil
	}

	s.paymentRepo.On("UpdateStatus", mock.Anything, "cs_test_123", domain.PaymentStatusCanceled,
		"checkout session expired").Return(nil).Once()

	w, r := s.signedRequest("checkout.session.expired", s.sessionPayload(reservation.ID))
	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
	s.True(released)
	s.paymentRepo.AssertExpectations(s.T())
}

func (s *WebhookTestSuite) TestCheckoutExpiredAfterConfirmationIsNoOp() {
	reservation := s.pendingReservation()
	reservation.Status = domain.ReservationConfirmed

	s.reservationRepo.On("GetByIdForUpdate", mock.Anything, reservation.ID).Return(reservation, nil).Once()

	w, r := s.signedRequest("checkout.session.expired", s.sessionPayload(reservation.ID))
	s.app.Routes().ServeHTTP(w, r)

	s.Equal(http.StatusOK, w.Code)
}
