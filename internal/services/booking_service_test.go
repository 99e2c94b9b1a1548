package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tyreworks/internal/models"
)

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: map[string]*models.Booking{}}
}

func (f *fakeBookingStore) Create(b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookingStore) GetByID(id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingStore) CompareAndSetState(id string, from, to models.BookingState, reason string, decidedBy int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.State != from {
		return false, nil
	}
	b.State = to
	b.DecisionReason = reason
	b.DecidedBy = decidedBy
	b.DecidedAt = &at
	return true, nil
}

func (f *fakeBookingStore) seed(id string, state models.BookingState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id] = &models.Booking{
		ID:           id,
		CustomerName: "Asha Kumar",
		Email:        "asha@example.com",
		Services:     []string{"Wheel Alignment"},
		State:        state,
	}
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func (f *fakePaymentStore) Create(p *models.Payment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, p)
	return int64(len(f.payments)), nil
}

func (f *fakePaymentStore) GetByBookingID(bookingID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			return p, nil
		}
	}
	return nil, nil
}

type fakeGate struct {
	mu    sync.Mutex
	allow int // redemptions remaining
}

func (f *fakeGate) Redeem(identity string, purpose models.OTPPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allow <= 0 {
		return ErrUnauthenticated
	}
	f.allow--
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	enqueued []models.JobTemplate
}

func (f *fakeNotifier) EnqueueBookingEmail(b *models.Booking, template models.JobTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, template)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func newTestBookingService(gate *fakeGate) (*BookingService, *fakeBookingStore, *fakeNotifier) {
	store := newFakeBookingStore()
	notifier := &fakeNotifier{}
	svc := NewBookingService(store, &fakePaymentStore{}, gate, notifier, nil)
	return svc, store, notifier
}

func validCreateRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		Name:           "Asha Kumar",
		Email:          "asha@example.com",
		Contact:        "9876543210",
		Area:           "Melapalayam",
		District:       "Tirunelveli",
		Taluk:          "Palayamkottai",
		PreferredDate:  time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		PreferredTime:  "10:30",
		Services:       []string{"Wheel Alignment", "Tyre Rotation"},
		VehicleType:    "car",
		VehicleDetails: "Maruti Swift TN72",
		UPINumber:      "asha@upi",
		UPIRef:         "UPIREF123456",
		Amount:         models.BookingFee,
	}
}

func TestCreateBookingRequiresVerification(t *testing.T) {
	svc, _, _ := newTestBookingService(&fakeGate{allow: 0})
	if _, err := svc.Create(validCreateRequest()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("want ErrUnauthenticated, got %v", err)
	}
}

func TestCreateBookingHappyPath(t *testing.T) {
	svc, store, _ := newTestBookingService(&fakeGate{allow: 1})
	b, err := svc.Create(validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.State != models.BookingPending {
		t.Fatalf("new booking state = %s, want pending", b.State)
	}
	if len(b.ID) != 8 {
		t.Fatalf("public id %q should be 8 chars", b.ID)
	}
	stored, _ := store.GetByID(b.ID)
	if stored == nil {
		t.Fatal("booking not persisted")
	}
	if stored.Email != "asha@example.com" {
		t.Fatalf("email not normalized: %q", stored.Email)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateBookingRequest)
	}{
		{"missing email", func(r *CreateBookingRequest) { r.Email = "" }},
		{"bad email", func(r *CreateBookingRequest) { r.Email = "not-an-email" }},
		{"short contact", func(r *CreateBookingRequest) { r.Contact = "12345" }},
		{"no services", func(r *CreateBookingRequest) { r.Services = nil }},
		{"bad date format", func(r *CreateBookingRequest) { r.PreferredDate = "03-01-2026" }},
		{"past date", func(r *CreateBookingRequest) { r.PreferredDate = "2020-01-01" }},
		{"bad upi id", func(r *CreateBookingRequest) { r.UPINumber = "no-at-sign" }},
		{"wrong fee", func(r *CreateBookingRequest) { r.Amount = 19 }},
		{"short upi ref", func(r *CreateBookingRequest) { r.UPIRef = "short" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestBookingService(&fakeGate{allow: 1})
			req := validCreateRequest()
			tt.mutate(req)
			if _, err := svc.Create(req); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBookingTransitionTable(t *testing.T) {
	tests := []struct {
		from    models.BookingState
		action  func(*BookingService) error
		wantErr error
	}{
		{models.BookingPending, func(s *BookingService) error { return s.Confirm("B1", 1) }, nil},
		{models.BookingPending, func(s *BookingService) error { return s.Reject("B1", 1, "no slots") }, nil},
		{models.BookingPending, func(s *BookingService) error { return s.Cancel("B1", 1) }, nil},
		{models.BookingPending, func(s *BookingService) error { return s.MarkCompleted("B1", 1) }, ErrInvalidTransition},
		{models.BookingConfirmed, func(s *BookingService) error { return s.MarkCompleted("B1", 1) }, nil},
		{models.BookingConfirmed, func(s *BookingService) error { return s.Cancel("B1", 1) }, nil},
		{models.BookingConfirmed, func(s *BookingService) error { return s.Confirm("B1", 1) }, ErrInvalidTransition},
		{models.BookingConfirmed, func(s *BookingService) error { return s.Reject("B1", 1, "late") }, ErrInvalidTransition},
		{models.BookingCompleted, func(s *BookingService) error { return s.Cancel("B1", 1) }, ErrInvalidTransition},
		{models.BookingCompleted, func(s *BookingService) error { return s.Confirm("B1", 1) }, ErrInvalidTransition},
		{models.BookingRejected, func(s *BookingService) error { return s.Confirm("B1", 1) }, ErrInvalidTransition},
		{models.BookingCancelled, func(s *BookingService) error { return s.MarkCompleted("B1", 1) }, ErrInvalidTransition},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("case_%d_from_%s", i, tt.from), func(t *testing.T) {
			svc, store, _ := newTestBookingService(&fakeGate{})
			store.seed("B1", tt.from)
			err := tt.action(svc)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc, store, _ := newTestBookingService(&fakeGate{})
	store.seed("B1", models.BookingPending)
	if err := svc.Reject("B1", 1, "  "); err == nil {
		t.Fatal("expected error for empty reason")
	}
}

func TestDecideUnknownBooking(t *testing.T) {
	svc, _, _ := newTestBookingService(&fakeGate{})
	if err := svc.Confirm("NOPE", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	svc, store, notifier := newTestBookingService(&fakeGate{})
	store.seed("B1", models.BookingPending)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- svc.Confirm("B1", 1)
	}()
	go func() {
		defer wg.Done()
		results <- svc.Reject("B1", 2, "slot unavailable")
	}()
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, ErrInvalidTransition) {
			losses++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("want exactly one winner, got wins=%d losses=%d", wins, losses)
	}

	b, _ := store.GetByID("B1")
	if b.State != models.BookingConfirmed && b.State != models.BookingRejected {
		t.Fatalf("booking left in state %s", b.State)
	}
	// Only the winning decision queued a mail.
	if notifier.count() != 1 {
		t.Fatalf("want 1 enqueued mail, got %d", notifier.count())
	}
}

func TestDecisionEnqueuesMail(t *testing.T) {
	svc, store, notifier := newTestBookingService(&fakeGate{})
	store.seed("B1", models.BookingPending)
	if err := svc.Confirm("B1", 7); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	store.seed("B2", models.BookingConfirmed)
	if err := svc.MarkCompleted("B2", 7); err != nil {
		t.Fatalf("complete: %v", err)
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.enqueued) != 2 ||
		notifier.enqueued[0] != models.TemplateConfirmation ||
		notifier.enqueued[1] != models.TemplateCompletion {
		t.Fatalf("unexpected templates: %v", notifier.enqueued)
	}
}

func TestCancelDoesNotEnqueueMail(t *testing.T) {
	svc, store, notifier := newTestBookingService(&fakeGate{})
	store.seed("B1", models.BookingConfirmed)
	if err := svc.Cancel("B1", 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("cancel should not mail the customer, got %d jobs", notifier.count())
	}
}
