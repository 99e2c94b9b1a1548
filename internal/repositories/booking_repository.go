package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tyreworks/internal/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{DB: db}
}

const bookingColumns = `
	booking_id, name, email, contact, area, district, taluk, services,
	vehicle_type, vehicle_details, preferred_date, preferred_time,
	state, decision_reason, decided_by, service_amount, total_amount,
	created_at, decided_at, updated_at
`

func (r *BookingRepository) Create(b *models.Booking) error {
	const q = `
		INSERT INTO bookings
			(booking_id, name, email, contact, area, district, taluk, services,
			 vehicle_type, vehicle_details, preferred_date, preferred_time,
			 state, service_amount, total_amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
	`
	_, err := r.DB.Exec(q,
		b.ID, b.CustomerName, b.Email, b.Contact, b.Area, b.District, b.Taluk,
		pq.Array(b.Services), b.VehicleType, b.VehicleDetails,
		b.PreferredDate, b.PreferredTime, b.State,
		b.ServiceAmount, b.TotalAmount, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking create: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(id string) (*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = $1`
	return r.scanOne(r.DB.QueryRow(q, id))
}

func (r *BookingRepository) List(limit, offset int) ([]*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("booking list: %w", err)
	}
	defer rows.Close()

	var out []*models.Booking
	for rows.Next() {
		b, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CompareAndSetState applies `from -> to` only when the stored state still
// equals `from`. Returns false on a lost race or an already-moved booking.
func (r *BookingRepository) CompareAndSetState(id string, from, to models.BookingState, reason string, decidedBy int64, at time.Time) (bool, error) {
	const q = `
		UPDATE bookings
		SET state = $3, decision_reason = $4, decided_by = $5, decided_at = $6, updated_at = $6
		WHERE booking_id = $1 AND state = $2
	`
	res, err := r.DB.Exec(q, id, from, to, reason, decidedBy, at)
	if err != nil {
		return false, fmt.Errorf("booking cas: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("booking cas rows: %w", err)
	}
	return n == 1, nil
}

func (r *BookingRepository) Delete(id string) (int64, error) {
	res, err := r.DB.Exec(`DELETE FROM bookings WHERE booking_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("booking delete: %w", err)
	}
	return res.RowsAffected()
}

func (r *BookingRepository) CountAll() (int, error) {
	return r.countWhere(`SELECT COUNT(*) FROM bookings`)
}

func (r *BookingRepository) CountByState(state models.BookingState) (int, error) {
	var c int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM bookings WHERE state = $1`, state).Scan(&c); err != nil {
		return 0, fmt.Errorf("booking count by state: %w", err)
	}
	return c, nil
}

func (r *BookingRepository) CountCreatedSince(since time.Time) (int, error) {
	var c int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM bookings WHERE created_at >= $1`, since).Scan(&c); err != nil {
		return 0, fmt.Errorf("booking count since: %w", err)
	}
	return c, nil
}

// SumCompletedAmounts totals revenue over completed bookings; a booking
// without a recorded service amount still contributes the flat fee.
func (r *BookingRepository) SumCompletedAmounts() (float64, error) {
	const q = `
		SELECT COALESCE(SUM(CASE WHEN total_amount > 0 THEN total_amount ELSE $2 END), 0)
		FROM bookings WHERE state = $1
	`
	var total float64
	if err := r.DB.QueryRow(q, models.BookingCompleted, models.BookingFee).Scan(&total); err != nil {
		return 0, fmt.Errorf("booking sum completed: %w", err)
	}
	return total, nil
}

func (r *BookingRepository) countWhere(q string, args ...any) (int, error) {
	var c int
	if err := r.DB.QueryRow(q, args...).Scan(&c); err != nil {
		return 0, fmt.Errorf("booking count: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *BookingRepository) scanOne(row *sql.Row) (*models.Booking, error) {
	b, err := r.scanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *BookingRepository) scanRow(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var reason sql.NullString
	var decidedBy sql.NullInt64
	var decidedAt sql.NullTime
	if err := row.Scan(
		&b.ID, &b.CustomerName, &b.Email, &b.Contact, &b.Area, &b.District, &b.Taluk,
		pq.Array(&b.Services), &b.VehicleType, &b.VehicleDetails,
		&b.PreferredDate, &b.PreferredTime, &b.State, &reason, &decidedBy,
		&b.ServiceAmount, &b.TotalAmount, &b.CreatedAt, &decidedAt, &b.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("booking scan: %w", err)
	}
	b.DecisionReason = reason.String
	b.DecidedBy = decidedBy.Int64
	if decidedAt.Valid {
		t := decidedAt.Time
		b.DecidedAt = &t
	}
	return &b, nil
}
