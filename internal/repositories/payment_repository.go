package repositories

import (
	"database/sql"
	"fmt"

	"tyreworks/internal/models"
)

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) Create(p *models.Payment) (int64, error) {
	const q = `
		INSERT INTO payments (payment_id, booking_id, amount, upi_number, upi_ref, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`
	var id int64
	if err := r.DB.QueryRow(q, p.PaymentID, p.BookingID, p.Amount, p.UPINumber, p.UPIRef, p.Status, p.CreatedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("payment create: %w", err)
	}
	return id, nil
}

func (r *PaymentRepository) GetByBookingID(bookingID string) (*models.Payment, error) {
	const q = `
		SELECT id, payment_id, booking_id, amount, upi_number, upi_ref, status, created_at
		FROM payments WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	row := r.DB.QueryRow(q, bookingID)
	var p models.Payment
	if err := row.Scan(&p.ID, &p.PaymentID, &p.BookingID, &p.Amount, &p.UPINumber, &p.UPIRef, &p.Status, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("payment by booking: %w", err)
	}
	return &p, nil
}
