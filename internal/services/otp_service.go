package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tyreworks/internal/config"
	"tyreworks/internal/models"
)

// OTPChallengeStore is the persistence contract for challenges. All writes
// that decide a race (consume, redeem) report whether this caller won.
type OTPChallengeStore interface {
	Create(ch *models.OTPChallenge) (int64, error)
	GetActive(identity string, purpose models.OTPPurpose) (*models.OTPChallenge, error)
	InvalidateActive(identity string, purpose models.OTPPurpose) error
	DecrementAttempts(id int64) (int, error)
	MarkConsumed(id int64, at time.Time) (bool, error)
	CountRecentIssues(identity string, purpose models.OTPPurpose, since time.Time) (int, error)
	RedeemVerification(identity string, purpose models.OTPPurpose, since time.Time) (bool, error)
}

// CodeSender delivers an issued code to the contact address. Implemented by
// the notification dispatcher.
type CodeSender interface {
	SendCode(identity string, purpose models.OTPPurpose, code string) error
}

type OTPService struct {
	Store  OTPChallengeStore
	Sender CodeSender
	Cfg    config.OTPConfig

	now func() time.Time // overridable in tests
}

func NewOTPService(store OTPChallengeStore, sender CodeSender, cfg config.OTPConfig) *OTPService {
	return &OTPService{
		Store:  store,
		Sender: sender,
		Cfg:    cfg,
		now:    time.Now,
	}
}

// Issue generates a fresh 6-digit code for the pair, invalidating any code
// still in flight, and hands it to the dispatcher for delivery. Issuance is
// throttled per pair over a sliding window.
func (s *OTPService) Issue(identity string, purpose models.OTPPurpose) error {
	identity = strings.TrimSpace(strings.ToLower(identity))
	if identity == "" || !purpose.Valid() {
		return fmt.Errorf("otp issue: bad identity or purpose")
	}

	now := s.now()
	cnt, err := s.Store.CountRecentIssues(identity, purpose, now.Add(-s.Cfg.IssueWindow()))
	if err != nil {
		return err
	}
	if cnt >= s.Cfg.IssueLimit {
		log.Printf("[otp][issue] throttled identity=%s purpose=%s count=%d", identity, purpose, cnt)
		return ErrTooManyRequests
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("otp issue: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("otp issue: bcrypt: %w", err)
	}

	// One active code per pair: kill the old one before storing the new.
	if err := s.Store.InvalidateActive(identity, purpose); err != nil {
		return err
	}
	ch := &models.OTPChallenge{
		Identity:          identity,
		Purpose:           purpose,
		CodeHash:          string(hash),
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.Cfg.TTL()),
		AttemptsRemaining: s.Cfg.MaxAttempts,
	}
	if _, err := s.Store.Create(ch); err != nil {
		return err
	}

	if err := s.Sender.SendCode(identity, purpose, code); err != nil {
		// The challenge stays valid; the customer can ask for a resend.
		log.Printf("[otp][issue] delivery enqueue failed identity=%s purpose=%s err=%v", identity, purpose, err)
		return err
	}

	log.Printf("[otp][issue] ok identity=%s purpose=%s", identity, purpose)
	return nil
}

// Verify checks a supplied code against the active challenge. A challenge
// succeeds at most once; wrong codes burn attempts.
func (s *OTPService) Verify(identity string, purpose models.OTPPurpose, supplied string) error {
	identity = strings.TrimSpace(strings.ToLower(identity))
	ch, err := s.Store.GetActive(identity, purpose)
	if err != nil {
		return err
	}
	if ch == nil {
		return ErrNotFound
	}
	if s.now().After(ch.ExpiresAt) {
		return ErrExpired
	}
	if ch.AttemptsRemaining <= 0 {
		return ErrExhausted
	}

	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(supplied)) != nil {
		remaining, decErr := s.Store.DecrementAttempts(ch.ID)
		if decErr != nil {
			return decErr
		}
		if remaining <= 0 {
			log.Printf("[otp][verify] exhausted identity=%s purpose=%s", identity, purpose)
			return ErrExhausted
		}
		return ErrMismatch
	}

	ok, err := s.Store.MarkConsumed(ch.ID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		// Lost the consume race; someone already verified this code.
		return ErrNotFound
	}
	log.Printf("[otp][verify] ok identity=%s purpose=%s", identity, purpose)
	return nil
}

// Redeem claims a recent successful verification for one booking creation.
// Each verification admits exactly one booking.
func (s *OTPService) Redeem(identity string, purpose models.OTPPurpose) error {
	identity = strings.TrimSpace(strings.ToLower(identity))
	ok, err := s.Store.RedeemVerification(identity, purpose, s.now().Add(-s.Cfg.RedeemWindow()))
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthenticated
	}
	return nil
}

// generateCode returns a crypto-random 6-digit numeric string.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
