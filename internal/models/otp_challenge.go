package models

import "time"

type OTPPurpose string

const (
	PurposeLogin          OTPPurpose = "login"
	PurposePasswordReset  OTPPurpose = "password-reset"
	PurposeBookingConfirm OTPPurpose = "booking-confirm"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposePasswordReset, PurposeBookingConfirm:
		return true
	}
	return false
}

// OTPChallenge is one issued code for an (identity, purpose) pair.
// Only the bcrypt hash of the code is stored. At most one row per pair is
// active (unconsumed, uninvalidated, unexpired); issuing a new code
// invalidates the previous one.
type OTPChallenge struct {
	ID                int64      `json:"id"`
	Identity          string     `json:"identity"` // contact address the code was sent to
	Purpose           OTPPurpose `json:"purpose"`
	CodeHash          string     `json:"-"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	Consumed          bool       `json:"consumed"`
	ConsumedAt        *time.Time `json:"consumed_at,omitempty"`
	Invalidated       bool       `json:"-"`
	Redeemed          bool       `json:"-"` // a consumed booking-confirm challenge admits one booking
}
