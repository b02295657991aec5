// Package queue defines the message payloads and publisher for booking
// events emitted after a reservation is confirmed.
package queue

// BookingConfirmedEvent carries enough information for downstream consumers
// (notifications, analytics) without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID      string   `json:"booking_id"`
	ReservationID  string   `json:"reservation_id"`
	UserID         string   `json:"user_id"`
	ShowInstanceID string   `json:"show_instance_id"`
	MovieID        string   `json:"movie_id"`
	StartTime      string   `json:"start_time"`
	SeatLabels     []string `json:"seats"`
	Amount         string   `json:"amount"`
	ConfirmedAt    string   `json:"confirmed_at"`
}
