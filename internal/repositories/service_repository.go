package repositories

import (
	"database/sql"
	"fmt"

	"tyreworks/internal/models"
)

type ServiceRepository struct {
	DB *sql.DB
}

func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{DB: db}
}

func (r *ServiceRepository) List() ([]*models.Service, error) {
	const q = `SELECT id, name, COALESCE(description, ''), COALESCE(base_price, 0) FROM services ORDER BY name`
	rows, err := r.DB.Query(q)
	if err != nil {
		return nil, fmt.Errorf("service list: %w", err)
	}
	defer rows.Close()

	var out []*models.Service
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.BasePrice); err != nil {
			return nil, fmt.Errorf("service scan: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
