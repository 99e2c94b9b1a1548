package models

import "time"

type BookingState string

const (
	BookingPending   BookingState = "pending"
	BookingConfirmed BookingState = "confirmed"
	BookingRejected  BookingState = "rejected"
	BookingCancelled BookingState = "cancelled"
	BookingCompleted BookingState = "completed"
)

// Booking is a prebooked service slot. State is owned by the booking
// service; everyone else only reads snapshots.
type Booking struct {
	ID             string       `json:"booking_id"`
	CustomerName   string       `json:"name"`
	Email          string       `json:"email"`
	Contact        string       `json:"contact"`
	Area           string       `json:"area"`
	District       string       `json:"district"`
	Taluk          string       `json:"taluk"`
	Services       []string     `json:"services"`
	VehicleType    string       `json:"vehicle_type"`
	VehicleDetails string       `json:"vehicle_details"`
	PreferredDate  string       `json:"preferred_date"` // YYYY-MM-DD
	PreferredTime  string       `json:"preferred_time"` // HH:MM
	State          BookingState `json:"state"`
	DecisionReason string       `json:"decision_reason,omitempty"`
	DecidedBy      int64        `json:"decided_by,omitempty"`
	ServiceAmount  float64      `json:"service_amount"`
	TotalAmount    float64      `json:"total_amount"`
	CreatedAt      time.Time    `json:"created_at"`
	DecidedAt      *time.Time   `json:"decided_at,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (s BookingState) Terminal() bool {
	return s == BookingRejected || s == BookingCancelled || s == BookingCompleted
}
