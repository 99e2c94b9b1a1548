package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tyreworks/internal/models"
)

type NotificationJobRepository struct {
	DB *sql.DB
}

func NewNotificationJobRepository(db *sql.DB) *NotificationJobRepository {
	return &NotificationJobRepository{DB: db}
}

// Enqueue inserts a job unless one with the same dedupe key already went
// out; still-queued older jobs for the key are superseded instead. Returns
// (0, false, nil) for the no-op case.
func (r *NotificationJobRepository) Enqueue(job *models.NotificationJob) (int64, bool, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("job enqueue begin: %w", err)
	}
	defer tx.Rollback()

	var sent int
	const checkQ = `
		SELECT COUNT(*) FROM notification_jobs
		WHERE dedupe_key = $1 AND status IN ($2, $3)
	`
	if err := tx.QueryRow(checkQ, job.DedupeKey, models.JobSent, models.JobSentWithoutAttach).Scan(&sent); err != nil {
		return 0, false, fmt.Errorf("job enqueue check: %w", err)
	}
	if sent > 0 {
		return 0, false, nil
	}

	const supersedeQ = `
		UPDATE notification_jobs
		SET superseded = TRUE, updated_at = $2
		WHERE dedupe_key = $1 AND status IN ($3, $4) AND NOT superseded
	`
	if _, err := tx.Exec(supersedeQ, job.DedupeKey, time.Now(), models.JobQueued, models.JobSending); err != nil {
		return 0, false, fmt.Errorf("job supersede: %w", err)
	}

	const insertQ = `
		INSERT INTO notification_jobs
			(dedupe_key, booking_id, template, recipient, subject, body, status, attempts, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$8)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRow(insertQ, job.DedupeKey, job.BookingID, job.Template,
		job.Recipient, job.Subject, job.Body, models.JobQueued, time.Now()).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("job insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("job enqueue commit: %w", err)
	}
	return id, true, nil
}

// ClaimNext grabs the oldest queued job and flips it to sending. SKIP LOCKED
// keeps multiple workers from claiming the same row.
func (r *NotificationJobRepository) ClaimNext() (*models.NotificationJob, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("job claim begin: %w", err)
	}
	defer tx.Rollback()

	const selectQ = `
		SELECT id, dedupe_key, booking_id, template, recipient, subject, body, status, attempts, COALESCE(last_error, ''), superseded, created_at, updated_at
		FROM notification_jobs
		WHERE status = $1 AND NOT superseded
		ORDER BY id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	var job models.NotificationJob
	err = tx.QueryRow(selectQ, models.JobQueued).Scan(
		&job.ID, &job.DedupeKey, &job.BookingID, &job.Template, &job.Recipient,
		&job.Subject, &job.Body, &job.Status, &job.Attempts, &job.LastError,
		&job.Superseded, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("job claim select: %w", err)
	}

	if _, err := tx.Exec(`UPDATE notification_jobs SET status = $2, updated_at = $3 WHERE id = $1`,
		job.ID, models.JobSending, time.Now()); err != nil {
		return nil, fmt.Errorf("job claim update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("job claim commit: %w", err)
	}
	job.Status = models.JobSending
	return &job, nil
}

// Finish records the terminal outcome of a dispatch attempt sequence.
func (r *NotificationJobRepository) Finish(id int64, status models.JobStatus, attempts int, lastError string) error {
	const q = `
		UPDATE notification_jobs
		SET status = $2, attempts = $3, last_error = NULLIF($4, ''), updated_at = $5
		WHERE id = $1
	`
	if _, err := r.DB.Exec(q, id, status, attempts, lastError, time.Now()); err != nil {
		return fmt.Errorf("job finish: %w", err)
	}
	return nil
}

// IsSuperseded is polled between retries so an obsolete job stops early.
func (r *NotificationJobRepository) IsSuperseded(id int64) (bool, error) {
	var s bool
	if err := r.DB.QueryRow(`SELECT superseded FROM notification_jobs WHERE id = $1`, id).Scan(&s); err != nil {
		if err == sql.ErrNoRows {
			return true, nil
		}
		return false, fmt.Errorf("job superseded: %w", err)
	}
	return s, nil
}

// ListByBooking returns the audit trail of a booking's outbound mail.
func (r *NotificationJobRepository) ListByBooking(bookingID string) ([]*models.NotificationJob, error) {
	const q = `
		SELECT id, dedupe_key, booking_id, template, recipient, subject, body, status, attempts, COALESCE(last_error, ''), superseded, created_at, updated_at
		FROM notification_jobs
		WHERE booking_id = $1
		ORDER BY id
	`
	rows, err := r.DB.Query(q, bookingID)
	if err != nil {
		return nil, fmt.Errorf("job list: %w", err)
	}
	defer rows.Close()

	var out []*models.NotificationJob
	for rows.Next() {
		var job models.NotificationJob
		if err := rows.Scan(&job.ID, &job.DedupeKey, &job.BookingID, &job.Template, &job.Recipient,
			&job.Subject, &job.Body, &job.Status, &job.Attempts, &job.LastError,
			&job.Superseded, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("job list scan: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}
