package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tyreworks/internal/models"
)

// ErrDuplicate is returned when an insert trips a unique constraint.
var ErrDuplicate = errors.New("duplicate row")

type RatingRepository struct {
	DB *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{DB: db}
}

// Insert persists the rating. The unique index on
// (lower(user_email), booking_id, lower(service_name)) is the actual
// duplicate guard — two racing inserts cannot both pass it.
func (r *RatingRepository) Insert(rt *models.Rating) error {
	const q = `
		INSERT INTO ratings
			(user_name, user_email, booking_id, service_name, rating, comment, image_paths, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`
	err := r.DB.QueryRow(q,
		rt.CustomerName, rt.CustomerEmail, rt.BookingID, rt.Service,
		rt.Stars, rt.Comment, pq.Array(rt.ImagePaths), rt.CreatedAt,
	).Scan(&rt.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("rating insert: %w", err)
	}
	return nil
}

// Exists reports whether the customer already rated this booking+service.
// Textual identifiers compare case-insensitively, matching the index.
func (r *RatingRepository) Exists(customerEmail, bookingID, service string) (bool, error) {
	const q = `
		SELECT COUNT(*)
		FROM ratings
		WHERE lower(user_email) = lower($1) AND booking_id = $2 AND lower(service_name) = lower($3)
	`
	var c int
	if err := r.DB.QueryRow(q, customerEmail, bookingID, service).Scan(&c); err != nil {
		return false, fmt.Errorf("rating exists: %w", err)
	}
	return c > 0, nil
}

func (r *RatingRepository) List() ([]*models.Rating, error) {
	const q = `
		SELECT id, user_name, user_email, booking_id, service_name, rating, comment, image_paths, created_at
		FROM ratings ORDER BY created_at DESC
	`
	rows, err := r.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("rating list: %w", err)
	}
	defer rows.Close()

	var out []*models.Rating
	for rows.Next() {
		var rt models.Rating
		var comment sql.NullString
		if err := rows.Scan(&rt.ID, &rt.CustomerName, &rt.CustomerEmail, &rt.BookingID, &rt.Service,
			&rt.Stars, &comment, pq.Array(&rt.ImagePaths), &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("rating scan: %w", err)
		}
		rt.Comment = comment.String
		out = append(out, &rt)
	}
	return out, rows.Err()
}

func (r *RatingRepository) DeleteByID(id int64) (int64, error) {
	res, err := r.DB.Exec(`DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("rating delete: %w", err)
	}
	return res.RowsAffected()
}

// Averages aggregates stars per service for the public rating summary.
func (r *RatingRepository) Averages() ([]models.ServiceAverage, error) {
	const q = `
		SELECT service_name, ROUND(AVG(rating)::numeric, 1), COUNT(*)
		FROM ratings
		GROUP BY service_name
		ORDER BY service_name
	`
	rows, err := r.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("rating averages: %w", err)
	}
	defer rows.Close()

	var out []models.ServiceAverage
	for rows.Next() {
		var a models.ServiceAverage
		if err := rows.Scan(&a.Service, &a.Average, &a.Count); err != nil {
			return nil, fmt.Errorf("rating averages scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *RatingRepository) Count() (int, error) {
	var c int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM ratings`).Scan(&c); err != nil {
		return 0, fmt.Errorf("rating count: %w", err)
	}
	return c, nil
}
