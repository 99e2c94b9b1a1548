package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tyreworks/internal/models"
)

type StaffRepository struct {
	DB *sql.DB
}

func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{DB: db}
}

func (r *StaffRepository) Create(s *models.Staff) (int64, error) {
	const q = `
		INSERT INTO staff (name, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`
	var id int64
	if err := r.DB.QueryRow(q, s.Name, s.Email, s.PasswordHash, s.Role, time.Now()).Scan(&id); err != nil {
		return 0, fmt.Errorf("staff create: %w", err)
	}
	return id, nil
}

func (r *StaffRepository) GetByEmail(email string) (*models.Staff, error) {
	const q = `
		SELECT id, name, email, password_hash, role, COALESCE(refresh_token, ''), created_at
		FROM staff WHERE lower(email) = lower($1)
	`
	return r.scan(r.DB.QueryRow(q, email))
}

func (r *StaffRepository) GetByRefreshToken(token string) (*models.Staff, error) {
	const q = `
		SELECT id, name, email, password_hash, role, COALESCE(refresh_token, ''), created_at
		FROM staff WHERE refresh_token = $1
	`
	return r.scan(r.DB.QueryRow(q, token))
}

func (r *StaffRepository) SaveRefreshToken(id int64, token string) error {
	if _, err := r.DB.Exec(`UPDATE staff SET refresh_token = $2 WHERE id = $1`, id, token); err != nil {
		return fmt.Errorf("staff save refresh: %w", err)
	}
	return nil
}

func (r *StaffRepository) Count() (int, error) {
	var c int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM staff`).Scan(&c); err != nil {
		return 0, fmt.Errorf("staff count: %w", err)
	}
	return c, nil
}

func (r *StaffRepository) scan(row *sql.Row) (*models.Staff, error) {
	var s models.Staff
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Role, &s.RefreshToken, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("staff scan: %w", err)
	}
	return &s, nil
}
