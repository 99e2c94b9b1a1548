package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tyreworks/internal/models"
)

type OTPChallengeRepository struct {
	DB *sql.DB
}

func NewOTPChallengeRepository(db *sql.DB) *OTPChallengeRepository {
	return &OTPChallengeRepository{DB: db}
}

func (r *OTPChallengeRepository) Create(ch *models.OTPChallenge) (int64, error) {
	const q = `
		INSERT INTO otp_challenges
			(identity, purpose, code_hash, issued_at, expires_at, attempts_remaining, consumed, invalidated, redeemed)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, FALSE, FALSE)
		RETURNING id
	`
	var id int64
	if err := r.DB.QueryRow(q, ch.Identity, ch.Purpose, ch.CodeHash, ch.IssuedAt, ch.ExpiresAt, ch.AttemptsRemaining).Scan(&id); err != nil {
		return 0, fmt.Errorf("otp_challenge create: %w", err)
	}
	return id, nil
}

// GetActive returns the newest unconsumed, uninvalidated challenge for the
// pair, expired or not — the service decides how an expired one fails.
func (r *OTPChallengeRepository) GetActive(identity string, purpose models.OTPPurpose) (*models.OTPChallenge, error) {
	const q = `
		SELECT id, identity, purpose, code_hash, issued_at, expires_at, attempts_remaining, consumed, consumed_at, invalidated, redeemed
		FROM otp_challenges
		WHERE identity = $1 AND purpose = $2 AND NOT consumed AND NOT invalidated
		ORDER BY issued_at DESC
		LIMIT 1
	`
	row := r.DB.QueryRow(q, identity, purpose)
	var ch models.OTPChallenge
	if err := row.Scan(&ch.ID, &ch.Identity, &ch.Purpose, &ch.CodeHash, &ch.IssuedAt, &ch.ExpiresAt,
		&ch.AttemptsRemaining, &ch.Consumed, &ch.ConsumedAt, &ch.Invalidated, &ch.Redeemed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("otp_challenge active: %w", err)
	}
	return &ch, nil
}

// InvalidateActive marks every unconsumed challenge of the pair as dead.
// Called right before issuing a replacement code.
func (r *OTPChallengeRepository) InvalidateActive(identity string, purpose models.OTPPurpose) error {
	const q = `
		UPDATE otp_challenges
		SET invalidated = TRUE
		WHERE identity = $1 AND purpose = $2 AND NOT consumed AND NOT invalidated
	`
	if _, err := r.DB.Exec(q, identity, purpose); err != nil {
		return fmt.Errorf("otp_challenge invalidate: %w", err)
	}
	return nil
}

// DecrementAttempts burns one verify attempt and returns what is left.
func (r *OTPChallengeRepository) DecrementAttempts(id int64) (int, error) {
	const q = `
		UPDATE otp_challenges
		SET attempts_remaining = attempts_remaining - 1
		WHERE id = $1 AND attempts_remaining > 0
		RETURNING attempts_remaining
	`
	var remaining int
	if err := r.DB.QueryRow(q, id).Scan(&remaining); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("otp_challenge decrement: %w", err)
	}
	return remaining, nil
}

// MarkConsumed flips the challenge to consumed exactly once. The guarded
// UPDATE is what makes double verification impossible under races.
func (r *OTPChallengeRepository) MarkConsumed(id int64, at time.Time) (bool, error) {
	const q = `
		UPDATE otp_challenges
		SET consumed = TRUE, consumed_at = $2
		WHERE id = $1 AND NOT consumed
	`
	res, err := r.DB.Exec(q, id, at)
	if err != nil {
		return false, fmt.Errorf("otp_challenge consume: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("otp_challenge consume rows: %w", err)
	}
	return n == 1, nil
}

// CountRecentIssues counts codes issued for the pair since the given time
// (issue throttling).
func (r *OTPChallengeRepository) CountRecentIssues(identity string, purpose models.OTPPurpose, since time.Time) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM otp_challenges
		WHERE identity = $1 AND purpose = $2 AND issued_at >= $3
	`
	var c int
	if err := r.DB.QueryRow(q, identity, purpose, since).Scan(&c); err != nil {
		return 0, fmt.Errorf("otp_challenge count recent: %w", err)
	}
	return c, nil
}

// RedeemVerification claims a consumed challenge verified after `since` for
// one booking creation. Returns false when there is nothing to redeem or it
// was already redeemed.
func (r *OTPChallengeRepository) RedeemVerification(identity string, purpose models.OTPPurpose, since time.Time) (bool, error) {
	const q = `
		UPDATE otp_challenges
		SET redeemed = TRUE
		WHERE id = (
			SELECT id FROM otp_challenges
			WHERE identity = $1 AND purpose = $2 AND consumed AND NOT redeemed AND consumed_at >= $3
			ORDER BY consumed_at DESC
			LIMIT 1
		) AND NOT redeemed
	`
	res, err := r.DB.Exec(q, identity, purpose, since)
	if err != nil {
		return false, fmt.Errorf("otp_challenge redeem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("otp_challenge redeem rows: %w", err)
	}
	return n == 1, nil
}

// DeleteExpired prunes dead rows; run periodically.
func (r *OTPChallengeRepository) DeleteExpired(now time.Time) (int64, error) {
	res, err := r.DB.Exec(`DELETE FROM otp_challenges WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("otp_challenge cleanup: %w", err)
	}
	return res.RowsAffected()
}
