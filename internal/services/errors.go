package services

import "errors"

// Caller-visible failure taxonomy. Handlers map these to HTTP statuses with
// errors.Is; none of them is retried automatically.
var (
	ErrUnauthenticated   = errors.New("otp verification required")
	ErrInvalidTransition = errors.New("invalid booking state transition")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicateRating   = errors.New("rating already exists for this booking and service")
	ErrTooManyImages     = errors.New("too many images")
	ErrInvalidRating     = errors.New("rating must be an integer between 1 and 5")
	ErrInvalidService    = errors.New("service is not part of the booking")
	ErrNotEligible       = errors.New("booking is not eligible for rating")
	ErrNoImagesSurvived  = errors.New("no image survived compression")

	ErrExpired         = errors.New("code expired")
	ErrExhausted       = errors.New("too many attempts")
	ErrMismatch        = errors.New("code invalid")
	ErrTooManyRequests = errors.New("too many code requests")
)
