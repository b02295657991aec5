package app

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinetick/cinetick/internal/domain"
)

type CreateShowsRequest struct {
	MovieId    string          `json:"movieId" validate:"required"`
	StartTimes []time.Time     `json:"startTimes" validate:"required,min=1,max=20,unique"`
	Price      decimal.Decimal `json:"price" validate:"positive_amount"`
	SeatLayout []string        `json:"seatLayout" validate:"required,min=1,max=500,unique,dive,seat_label"`
}

type ShowResponse struct {
	Id         uuid.UUID       `json:"id"`
	MovieId    string          `json:"movieId"`
	StartTime  time.Time       `json:"startTime"`
	Price      decimal.Decimal `json:"price"`
	SeatCount  int             `json:"seatCount"`
	CanceledAt *time.Time      `json:"canceledAt,omitempty"`
}

type ShowListResponse struct {
	Shows    []ShowResponse   `json:"shows"`
	Metadata MetadataResponse `json:"metadata"`
}

type SeatResponse struct {
	Label  string `json:"label"`
	Status string `json:"status"`
}

type SeatMapResponse struct {
	ShowInstanceId uuid.UUID      `json:"showInstanceId"`
	Seats          []SeatResponse `json:"seats"`
}

// CreateShowsHandler schedules one show instance per requested start time.
// All instances share the movie, price and seat layout, matching how
// operators enter a day's screenings in one go.
func (app *Application) CreateShowsHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateShowsRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	now := app.clock.Now()
	for _, startTime := range req.StartTimes {
		if startTime.Before(now) {
			app.badRequestResponse(w, r, errors.New("startTimes must all lie in the future"))
			return
		}
	}

	shows := make([]ShowResponse, len(req.StartTimes))

	// All instances commit together: a failure on any insert leaves none of
	// the requested screenings behind.
	err = app.tx.WithTx(r.Context(), func(ctx context.Context) error {
		for i, startTime := range req.StartTimes {
			show := &domain.ShowInstance{
				ID:         uuid.New(),
				MovieID:    req.MovieId,
				StartTime:  startTime,
				Price:      req.Price,
				SeatLayout: req.SeatLayout,
			}

			if err := app.showRepo.Create(ctx, show); err != nil {
				return err
			}

			shows[i] = toShowResponse(show)
		}

		return nil
	})
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, ShowListResponse{Shows: shows}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListShowsHandler(w http.ResponseWriter, r *http.Request) {
	pagination := app.readPagination(r)

	shows, metadata, err := app.showRepo.GetUpcoming(r.Context(), app.clock.Now(), pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := ShowListResponse{
		Shows:    make([]ShowResponse, len(shows)),
		Metadata: toMetadataResponse(metadata),
	}
	for i, show := range shows {
		resp.Shows[i] = toShowResponse(show)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetShowHandler(w http.ResponseWriter, r *http.Request) {
	showId, err := app.readUUIDParam(r, "showId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	show, err := app.showRepo.GetById(r.Context(), showId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, toShowResponse(show), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CancelShowHandler soft-cancels a show. Existing reservations and bookings
// are untouched; new holds are rejected once the show is canceled.
func (app *Application) CancelShowHandler(w http.ResponseWriter, r *http.Request) {
	showId, err := app.readUUIDParam(r, "showId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.showRepo.Cancel(r.Context(), showId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrShowCanceled):
			app.editConflictResponse(w, r, "The show is already canceled")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) GetSeatMapHandler(w http.ResponseWriter, r *http.Request) {
	showId, err := app.readUUIDParam(r, "showId")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	seats, err := app.ledger.Query(r.Context(), showId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := SeatMapResponse{
		ShowInstanceId: showId,
		Seats:          make([]SeatResponse, 0, len(seats)),
	}
	for label, state := range seats {
		resp.Seats = append(resp.Seats, SeatResponse{Label: label, Status: string(state)})
	}

	sort.Slice(resp.Seats, func(i, j int) bool {
		return resp.Seats[i].Label < resp.Seats[j].Label
	})

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toShowResponse(show *domain.ShowInstance) ShowResponse {
	return ShowResponse{
		Id:         show.ID,
		MovieId:    show.MovieID,
		StartTime:  show.StartTime,
		Price:      show.Price,
		SeatCount:  len(show.SeatLayout),
		CanceledAt: show.CanceledAt,
	}
}
