package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tyreworks/internal/config"
	"tyreworks/internal/models"
)

type fakeOTPStore struct {
	mu         sync.Mutex
	nextID     int64
	challenges []*models.OTPChallenge
}

func (f *fakeOTPStore) Create(ch *models.OTPChallenge) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *ch
	cp.ID = f.nextID
	f.challenges = append(f.challenges, &cp)
	return cp.ID, nil
}

func (f *fakeOTPStore) GetActive(identity string, purpose models.OTPPurpose) (*models.OTPChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *models.OTPChallenge
	for _, ch := range f.challenges {
		if ch.Identity != identity || ch.Purpose != purpose || ch.Consumed || ch.Invalidated {
			continue
		}
		if newest == nil || ch.IssuedAt.After(newest.IssuedAt) {
			newest = ch
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (f *fakeOTPStore) InvalidateActive(identity string, purpose models.OTPPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.challenges {
		if ch.Identity == identity && ch.Purpose == purpose && !ch.Consumed {
			ch.Invalidated = true
		}
	}
	return nil
}

func (f *fakeOTPStore) DecrementAttempts(id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.challenges {
		if ch.ID == id && ch.AttemptsRemaining > 0 {
			ch.AttemptsRemaining--
			return ch.AttemptsRemaining, nil
		}
	}
	return 0, nil
}

func (f *fakeOTPStore) MarkConsumed(id int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.challenges {
		if ch.ID == id {
			if ch.Consumed {
				return false, nil
			}
			ch.Consumed = true
			ch.ConsumedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeOTPStore) CountRecentIssues(identity string, purpose models.OTPPurpose, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ch := range f.challenges {
		if ch.Identity == identity && ch.Purpose == purpose && !ch.IssuedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeOTPStore) RedeemVerification(identity string, purpose models.OTPPurpose, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.challenges {
		if ch.Identity == identity && ch.Purpose == purpose &&
			ch.Consumed && !ch.Redeemed && ch.ConsumedAt != nil && !ch.ConsumedAt.Before(since) {
			ch.Redeemed = true
			return true, nil
		}
	}
	return false, nil
}

type fakeCodeSender struct {
	mu    sync.Mutex
	codes []string
	fail  error
}

func (f *fakeCodeSender) SendCode(identity string, purpose models.OTPPurpose, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeCodeSender) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) == 0 {
		return ""
	}
	return f.codes[len(f.codes)-1]
}

func otpTestConfig() config.OTPConfig {
	return config.OTPConfig{
		TTLMinutes:          5,
		MaxAttempts:         5,
		IssueLimit:          3,
		IssueWindowMinutes:  10,
		RedeemWindowMinutes: 10,
	}
}

func newTestOTPService() (*OTPService, *fakeOTPStore, *fakeCodeSender) {
	store := &fakeOTPStore{}
	sender := &fakeCodeSender{}
	return NewOTPService(store, sender, otpTestConfig()), store, sender
}

func TestOTPIssueAndVerify(t *testing.T) {
	svc, _, sender := newTestOTPService()

	if err := svc.Issue("user@example.com", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := sender.lastCode()
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	// Two wrong guesses burn attempts but leave the challenge alive.
	for i := 0; i < 2; i++ {
		if err := svc.Verify("user@example.com", models.PurposeBookingConfirm, "000000"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("wrong code attempt %d: want ErrMismatch, got %v", i+1, err)
		}
	}

	if err := svc.Verify("user@example.com", models.PurposeBookingConfirm, code); err != nil {
		t.Fatalf("verify correct code: %v", err)
	}

	// The same code cannot succeed twice.
	if err := svc.Verify("user@example.com", models.PurposeBookingConfirm, code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second verify: want ErrNotFound, got %v", err)
	}
}

func TestOTPVerifyIdentityIsCaseInsensitive(t *testing.T) {
	svc, _, sender := newTestOTPService()

	if err := svc.Issue("User@Example.COM", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Verify("user@example.com", models.PurposeBookingConfirm, sender.lastCode()); err != nil {
		t.Fatalf("verify with lowercased identity: %v", err)
	}
}

func TestOTPReissueInvalidatesPrevious(t *testing.T) {
	svc, _, sender := newTestOTPService()

	if err := svc.Issue("user@example.com", models.PurposeLogin); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	first := sender.lastCode()
	if err := svc.Issue("user@example.com", models.PurposeLogin); err != nil {
		t.Fatalf("second issue: %v", err)
	}
	second := sender.lastCode()

	// The old code is dead even if it happens to differ from the new one.
	if first != second {
		if err := svc.Verify("user@example.com", models.PurposeLogin, first); err == nil {
			t.Fatal("expected old code to be rejected after reissue")
		}
	}
	if err := svc.Verify("user@example.com", models.PurposeLogin, second); err != nil {
		t.Fatalf("verify new code: %v", err)
	}
}

func TestOTPIssueThrottled(t *testing.T) {
	svc, _, _ := newTestOTPService()

	for i := 0; i < 3; i++ {
		if err := svc.Issue("user@example.com", models.PurposeLogin); err != nil {
			t.Fatalf("issue %d: %v", i+1, err)
		}
	}
	if err := svc.Issue("user@example.com", models.PurposeLogin); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("want ErrTooManyRequests, got %v", err)
	}

	// A different purpose has its own budget.
	if err := svc.Issue("user@example.com", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("issue other purpose: %v", err)
	}
}

func TestOTPVerifyExpired(t *testing.T) {
	svc, _, sender := newTestOTPService()

	base := time.Now()
	svc.now = func() time.Time { return base }
	if err := svc.Issue("user@example.com", models.PurposeLogin); err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.now = func() time.Time { return base.Add(6 * time.Minute) }
	if err := svc.Verify("user@example.com", models.PurposeLogin, sender.lastCode()); !errors.Is(err, ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
}

func TestOTPVerifyExhaustsAttempts(t *testing.T) {
	svc, _, sender := newTestOTPService()

	if err := svc.Issue("user@example.com", models.PurposeLogin); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 4; i++ {
		if err := svc.Verify("user@example.com", models.PurposeLogin, "999999"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("attempt %d: want ErrMismatch, got %v", i+1, err)
		}
	}
	// Fifth wrong guess reports exhaustion.
	if err := svc.Verify("user@example.com", models.PurposeLogin, "999999"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
	// Even the right code is dead now.
	if err := svc.Verify("user@example.com", models.PurposeLogin, sender.lastCode()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("right code after exhaustion: want ErrExhausted, got %v", err)
	}
}

func TestOTPVerifyNoChallenge(t *testing.T) {
	svc, _, _ := newTestOTPService()
	if err := svc.Verify("nobody@example.com", models.PurposeLogin, "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestOTPConcurrentVerifySingleWinner(t *testing.T) {
	svc, _, sender := newTestOTPService()

	if err := svc.Issue("user@example.com", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := sender.lastCode()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Verify("user@example.com", models.PurposeBookingConfirm, code)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 successful verify, got %d", wins)
	}
}

func TestOTPRedeemSpendsVerification(t *testing.T) {
	svc, _, sender := newTestOTPService()

	if err := svc.Issue("user@example.com", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Verify("user@example.com", models.PurposeBookingConfirm, sender.lastCode()); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.Redeem("user@example.com", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	// A verification admits exactly one booking.
	if err := svc.Redeem("user@example.com", models.PurposeBookingConfirm); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("second redeem: want ErrUnauthenticated, got %v", err)
	}
}

func TestOTPRedeemWithoutVerification(t *testing.T) {
	svc, _, _ := newTestOTPService()
	if err := svc.Redeem("user@example.com", models.PurposeBookingConfirm); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestOTPRedeemWindowExpired(t *testing.T) {
	svc, _, sender := newTestOTPService()

	base := time.Now()
	svc.now = func() time.Time { return base }
	if err := svc.Issue("user@example.com", models.PurposeBookingConfirm); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Verify("user@example.com", models.PurposeBookingConfirm, sender.lastCode()); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The verification is stale after the redeem window.
	svc.now = func() time.Time { return base.Add(11 * time.Minute) }
	if err := svc.Redeem("user@example.com", models.PurposeBookingConfirm); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}
