package models

import "time"

// BookingFee is the flat fee collected over UPI when a slot is reserved.
const BookingFee = 20.0

type Payment struct {
	ID        int64     `json:"id"`
	PaymentID string    `json:"payment_id"`
	BookingID string    `json:"booking_id"`
	Amount    float64   `json:"amount"`
	UPINumber string    `json:"upi_number"`
	UPIRef    string    `json:"upi_ref"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
