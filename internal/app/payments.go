package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/cinetick/cinetick/internal/domain"
	"github.com/cinetick/cinetick/internal/queue"
)

const stripeWebhookMaxBodyBytes = int64(65536)

type bookingConfirmationEmail struct {
	BookingID string
	Seats     []string
	StartTime time.Time
	Amount    string
}

// StripeWebhookHandler receives payment outcomes from Stripe. Completed
// checkouts confirm the reservation; expired ones release its seats. Stripe
// retries on non-2xx responses, so every path that cannot make progress by
// retrying answers with a 2xx-4xx status instead of a 500.
func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, stripeWebhookMaxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("unable to read request body"))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.Stripe.WebhookSecret)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid webhook signature"))
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		app.handleCheckoutCompleted(w, r, event)
	case "checkout.session.expired":
		app.handleCheckoutExpired(w, r, event)
	default:
		// Unknown event types are acknowledged so Stripe stops retrying them.
		w.WriteHeader(http.StatusOK)
	}
}

func (app *Application) handleCheckoutCompleted(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	session, reservationId, err := app.parseCheckoutSession(event)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	booking, err := app.engine.ConfirmPayment(r.Context(), reservationId, session.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHoldExpired):
			// The customer paid for seats that lapsed. The seats are free
			// again; the payment has to be refunded out of band.
			app.contextGetLogger(r).Warn("payment completed after hold expired, refund required",
				"reservation_id", reservationId, "checkout_session_id", session.ID)

			app.updatePaymentStatus(r, session.ID, domain.PaymentStatusCanceled, "hold expired before payment completed")
			app.goneResponse(w, r, "The seat hold expired before the payment completed")
		case errors.Is(err, domain.ErrReservationFinalized):
			app.updatePaymentStatus(r, session.ID, domain.PaymentStatusCanceled, "reservation already finalized")
			app.editConflictResponse(w, r, "The reservation has already been finalized")
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.updatePaymentStatus(r, session.ID, domain.PaymentStatusCompleted, "")

	app.notifyBookingConfirmed(r, booking, session)

	w.WriteHeader(http.StatusOK)
}

func (app *Application) handleCheckoutExpired(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	session, reservationId, err := app.parseCheckoutSession(event)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.engine.Cancel(r.Context(), reservationId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReservationFinalized):
			// A completed callback won the race. Nothing to undo.
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.updatePaymentStatus(r, session.ID, domain.PaymentStatusCanceled, "checkout session expired")

	w.WriteHeader(http.StatusOK)
}

func (app *Application) parseCheckoutSession(event stripe.Event) (*stripe.CheckoutSession, uuid.UUID, error) {
	var session stripe.CheckoutSession

	err := json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		return nil, uuid.Nil, errors.New("malformed checkout session payload")
	}

	reservationId, err := uuid.Parse(session.Metadata["reservation_id"])
	if err != nil {
		return nil, uuid.Nil, errors.New("checkout session carries no valid reservation id")
	}

	return &session, reservationId, nil
}

// updatePaymentStatus records the payment outcome. Failures are logged and
// swallowed: the reservation transition already committed and is what the
// seat ledger trusts.
func (app *Application) updatePaymentStatus(r *http.Request, checkoutSessionId string, status domain.PaymentStatus, errMsg string) {
	err := app.paymentRepo.UpdateStatus(r.Context(), checkoutSessionId, status, errMsg)
	if err != nil {
		app.contextGetLogger(r).Error("failed to update payment status",
			"checkout_session_id", checkoutSessionId, "status", status, "error", err)
	}
}

// notifyBookingConfirmed publishes the booking event and emails the customer.
// Both are best-effort and run off the request path.
func (app *Application) notifyBookingConfirmed(r *http.Request, booking *domain.Booking, session *stripe.CheckoutSession) {
	logger := app.contextGetLogger(r)

	show, err := app.showRepo.GetById(r.Context(), booking.ShowInstanceID)
	if err != nil {
		logger.Error("failed to load show for booking notifications", "booking_id", booking.ID, "error", err)
		return
	}

	if app.publisher != nil {
		event := queue.BookingConfirmedEvent{
			BookingID:      booking.ID.String(),
			ReservationID:  booking.ReservationID.String(),
			UserID:         booking.UserID,
			ShowInstanceID: booking.ShowInstanceID.String(),
			MovieID:        show.MovieID,
			StartTime:      show.StartTime.Format(time.RFC3339),
			SeatLabels:     booking.SeatLabels,
			Amount:         booking.Amount.StringFixed(2),
			ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.publisher.PublishBookingConfirmed(ctx, event); err != nil {
				logger.Error("failed to publish booking confirmed event", "booking_id", booking.ID, "error", err)
			}
		}()
	}

	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		recipient := session.CustomerDetails.Email

		data := bookingConfirmationEmail{
			BookingID: booking.ID.String(),
			Seats:     booking.SeatLabels,
			StartTime: show.StartTime,
			Amount:    booking.Amount.StringFixed(2),
		}

		go func() {
			if err := app.mailer.Send(recipient, "booking_confirmation.tmpl", data); err != nil {
				logger.Error("failed to send booking confirmation email", "booking_id", booking.ID, "error", err)
			}
		}()
	}
}
