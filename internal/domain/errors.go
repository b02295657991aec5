package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrEditConflict         = errors.New("edit conflict")
	ErrHoldExpired          = errors.New("hold has expired")
	ErrReservationFinalized = errors.New("reservation already reached a terminal state")
	ErrStaleHold            = errors.New("seats are no longer held by this reservation")
	ErrShowCanceled         = errors.New("show instance has been canceled")
	ErrShowAlreadyStarted   = errors.New("show instance has already started")
	ErrInvalidSeatSelection = errors.New("invalid seat selection")
)

// SeatConflictError reports which of the requested seats could not be held.
// It is a client error, not an internal fault.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Seats, ", "))
}
