package models

import "time"

// Rating is post-service feedback for one (booking, service) pair.
// Uniqueness over (customer, booking, service) is enforced by the store.
type Rating struct {
	ID            int64     `json:"id"`
	CustomerName  string    `json:"user_name"`
	CustomerEmail string    `json:"user_email"`
	BookingID     string    `json:"booking_id"`
	Service       string    `json:"service_name"`
	Stars         int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	ImagePaths    []string  `json:"image_paths,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ServiceAverage is the aggregated rating for one service.
type ServiceAverage struct {
	Service string  `json:"service_name"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
