package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

type VisitRepository struct {
	DB *sql.DB
}

func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{DB: db}
}

// IncrementToday bumps the per-day counter, creating the row on first hit.
func (r *VisitRepository) IncrementToday() error {
	const q = `
		INSERT INTO visits (day, count) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET count = visits.count + 1
	`
	if _, err := r.DB.Exec(q, time.Now().Format("2006-01-02")); err != nil {
		return fmt.Errorf("visit increment: %w", err)
	}
	return nil
}

func (r *VisitRepository) Total() (int64, error) {
	var total int64
	if err := r.DB.QueryRow(`SELECT COALESCE(SUM(count), 0) FROM visits`).Scan(&total); err != nil {
		return 0, fmt.Errorf("visit total: %w", err)
	}
	return total, nil
}
