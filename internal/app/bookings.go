package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinetick/cinetick/internal/domain"
)

type CreateBookingRequest struct {
	Seats []string `json:"seats" validate:"required,min=1,max=10,unique,dive,seat_label"`
}

type CreateBookingResponse struct {
	ReservationId uuid.UUID       `json:"reservationId"`
	Amount        decimal.Decimal `json:"amount"`
	CheckoutUrl   string          `json:"checkoutUrl"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

type BookingResponse struct {
	Id        uuid.UUID       `json:"id"`
	MovieId   string          `json:"movieId"`
	StartTime time.Time       `json:"startTime"`
	Seats     []string        `json:"seats"`
	Amount    decimal.Decimal `json:"amount"`
	IsPaid    bool            `json:"isPaid"`
	CreatedAt time.Time       `json:"createdAt"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Metadata MetadataResponse  `json:"metadata"`
}

// CreateBookingHandler places a hold on the requested seats and opens a
// checkout session for it. The hold survives only until its TTL runs out;
// the webhook endpoint finalizes or releases it based on the payment
// outcome.
func (app *Application) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	showId, err := app.readUUIDParam(r, "showId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var req CreateBookingRequest

	err = app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	userId := app.contextGetUserId(r)

	reservation, err := app.engine.RequestHold(r.Context(), showId, userId, req.Seats)
	if err != nil {
		var seatConflict *domain.SeatConflictError

		switch {
		case errors.As(err, &seatConflict):
			app.seatConflictResponse(w, r, seatConflict.Seats)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrInvalidSeatSelection):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, domain.ErrShowCanceled):
			app.editConflictResponse(w, r, "The show has been canceled")
		case errors.Is(err, domain.ErrShowAlreadyStarted):
			app.editConflictResponse(w, r, "The show has already started")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	show, err := app.showRepo.GetById(r.Context(), showId)
	if err != nil {
		app.releaseHold(r, reservation.ID)
		app.serverErrorResponse(w, r, err)
		return
	}

	session, err := app.paymentProvider.CreateCheckoutSession(reservation, show)
	if err != nil {
		// The seats must not stay held behind a checkout that never opened.
		app.releaseHold(r, reservation.ID)
		app.serverErrorResponse(w, r, err)
		return
	}

	payment := &domain.Payment{
		ReservationID:     reservation.ID,
		UserID:            userId,
		CheckoutSessionId: &session.ID,
		Amount:            reservation.Amount,
		Currency:          "usd",
		Status:            domain.PaymentStatusPending,
	}

	err = app.paymentRepo.Create(r.Context(), payment)
	if err != nil {
		app.releaseHold(r, reservation.ID)
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := CreateBookingResponse{
		ReservationId: reservation.ID,
		Amount:        reservation.Amount,
		CheckoutUrl:   session.URL,
		ExpiresAt:     reservation.ExpiresAt,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) releaseHold(r *http.Request, reservationId uuid.UUID) {
	err := app.engine.Cancel(r.Context(), reservationId)
	if err != nil {
		app.contextGetLogger(r).Error("failed to release hold", "reservation_id", reservationId, "error", err)
	}
}

// CancelReservationHandler lets the holder abandon a pending reservation
// before paying. Expired reservations cancel as a no-op.
func (app *Application) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationId, err := app.readUUIDParam(r, "reservationId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	reservation, err := app.reservationRepo.GetById(r.Context(), reservationId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if reservation.UserID != app.contextGetUserId(r) {
		app.notFoundResponse(w, r)
		return
	}

	err = app.engine.Cancel(r.Context(), reservationId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReservationFinalized):
			app.editConflictResponse(w, r, "The reservation has already been paid for")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	pagination := app.readPagination(r)

	summaries, metadata, err := app.bookingRepo.GetSummariesByUserId(r.Context(), app.contextGetUserId(r), pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := BookingListResponse{
		Bookings: make([]BookingResponse, len(summaries)),
		Metadata: toMetadataResponse(metadata),
	}
	for i, summary := range summaries {
		resp.Bookings[i] = BookingResponse{
			Id:        summary.BookingID,
			MovieId:   summary.MovieID,
			StartTime: summary.StartTime,
			Seats:     summary.SeatLabels,
			Amount:    summary.Amount,
			IsPaid:    summary.IsPaid,
			CreatedAt: summary.CreatedAt,
		}
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
