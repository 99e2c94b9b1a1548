package services

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tyreworks/internal/models"
)

// Store contention is retried this many times before the caller sees
// ErrInvalidTransition; losing a CAS usually means a legitimate conflicting
// decision, not a glitch.
const casAttempts = 3

type BookingStore interface {
	Create(b *models.Booking) error
	GetByID(id string) (*models.Booking, error)
	CompareAndSetState(id string, from, to models.BookingState, reason string, decidedBy int64, at time.Time) (bool, error)
}

type PaymentStore interface {
	Create(p *models.Payment) (int64, error)
}

// VerificationGate admits a booking creation backed by a recent OTP
// verification. Implemented by OTPService.
type VerificationGate interface {
	Redeem(identity string, purpose models.OTPPurpose) error
}

// DecisionNotifier enqueues the customer-facing mail for a lifecycle event.
// Implemented by the notification dispatcher; delivery is best-effort
// relative to the transition.
type DecisionNotifier interface {
	EnqueueBookingEmail(b *models.Booking, template models.JobTemplate) error
}

// StaffPinger is the optional side channel that tells staff about new
// pending bookings.
type StaffPinger interface {
	SendMessage(text string) error
}

type CreateBookingRequest struct {
	Name           string   `json:"name" validate:"required"`
	Email          string   `json:"email" validate:"required,email"`
	Contact        string   `json:"contact" validate:"required,numeric,min=10,max=15"`
	Area           string   `json:"area" validate:"required"`
	District       string   `json:"district" validate:"required"`
	Taluk          string   `json:"taluk" validate:"required"`
	PreferredDate  string   `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTime  string   `json:"time" validate:"required,datetime=15:04"`
	Services       []string `json:"services" validate:"required,min=1,dive,required"`
	VehicleType    string   `json:"vehicle_type" validate:"required"`
	VehicleDetails string   `json:"vehicle_details" validate:"required"`
	UPINumber      string   `json:"upi_number" validate:"required"`
	UPIRef         string   `json:"upi_ref" validate:"required,min=8,max=30"`
	Amount         float64  `json:"amount"`
}

var upiPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+$`)

type BookingService struct {
	Store    BookingStore
	Payments PaymentStore
	Gate     VerificationGate
	Notifier DecisionNotifier
	Staff    StaffPinger // may be nil

	validate *validator.Validate
	now      func() time.Time
}

func NewBookingService(store BookingStore, payments PaymentStore, gate VerificationGate, notifier DecisionNotifier, staff StaffPinger) *BookingService {
	return &BookingService{
		Store:    store,
		Payments: payments,
		Gate:     gate,
		Notifier: notifier,
		Staff:    staff,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create reserves a pending slot. The caller must have completed an OTP
// challenge for purpose booking-confirm on the same email within the redeem
// window; the verification is spent here.
func (s *BookingService) Create(req *CreateBookingRequest) (*models.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("booking create: %w", err)
	}
	if !upiPattern.MatchString(strings.TrimSpace(req.UPINumber)) {
		return nil, fmt.Errorf("booking create: invalid UPI id")
	}
	if req.Amount != models.BookingFee {
		return nil, fmt.Errorf("booking create: Rs %.0f booking fee is required", models.BookingFee)
	}
	day, err := time.Parse("2006-01-02", req.PreferredDate)
	if err != nil || day.Before(s.now().Truncate(24*time.Hour)) {
		return nil, fmt.Errorf("booking create: preferred date cannot be in the past")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.Gate.Redeem(email, models.PurposeBookingConfirm); err != nil {
		return nil, err
	}

	now := s.now()
	b := &models.Booking{
		ID:             newPublicID(),
		CustomerName:   strings.TrimSpace(req.Name),
		Email:          email,
		Contact:        strings.TrimSpace(req.Contact),
		Area:           strings.TrimSpace(req.Area),
		District:       strings.TrimSpace(req.District),
		Taluk:          strings.TrimSpace(req.Taluk),
		Services:       req.Services,
		VehicleType:    req.VehicleType,
		VehicleDetails: req.VehicleDetails,
		PreferredDate:  req.PreferredDate,
		PreferredTime:  req.PreferredTime,
		State:          models.BookingPending,
		TotalAmount:    models.BookingFee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Store.Create(b); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		PaymentID: newPublicID(),
		BookingID: b.ID,
		Amount:    req.Amount,
		UPINumber: strings.TrimSpace(req.UPINumber),
		UPIRef:    strings.TrimSpace(req.UPIRef),
		Status:    "completed",
		CreatedAt: now,
	}
	if _, err := s.Payments.Create(payment); err != nil {
		// The slot is held either way; payment reconciliation is manual.
		log.Printf("[booking][create] payment record failed booking_id=%s err=%v", b.ID, err)
	}

	if s.Staff != nil {
		text := fmt.Sprintf("New prebooking %s: %s, %s on %s %s",
			b.ID, b.CustomerName, strings.Join(b.Services, ", "), b.PreferredDate, b.PreferredTime)
		if err := s.Staff.SendMessage(text); err != nil {
			log.Printf("[booking][create] staff ping failed booking_id=%s err=%v", b.ID, err)
		}
	}

	log.Printf("[booking][create] ok booking_id=%s email=%s services=%v", b.ID, b.Email, b.Services)
	return b, nil
}

// Confirm accepts a pending booking and queues the confirmation receipt.
func (s *BookingService) Confirm(bookingID string, staffID int64) error {
	return s.decide(bookingID, models.BookingPending, models.BookingConfirmed, "", staffID, models.TemplateConfirmation)
}

// Reject declines a pending booking; the rejection mail carries a generated
// notice with the reason.
func (s *BookingService) Reject(bookingID string, staffID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("booking reject: reason is required")
	}
	return s.decide(bookingID, models.BookingPending, models.BookingRejected, reason, staffID, models.TemplateRejection)
}

// Cancel is legal from pending or confirmed. No customer mail is sent.
func (s *BookingService) Cancel(bookingID string, actorID int64) error {
	b, err := s.Store.GetByID(bookingID)
	if err != nil {
		return err
	}
	if b == nil {
		return ErrNotFound
	}
	for i := 0; i < casAttempts; i++ {
		if !canTransition(b.State, models.BookingCancelled) {
			return ErrInvalidTransition
		}
		ok, err := s.Store.CompareAndSetState(bookingID, b.State, models.BookingCancelled, "", actorID, s.now())
		if err != nil {
			return err
		}
		if ok {
			log.Printf("[booking][cancel] ok booking_id=%s actor=%d", bookingID, actorID)
			return nil
		}
		if b, err = s.Store.GetByID(bookingID); err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}
	}
	return ErrInvalidTransition
}

// MarkCompleted finishes a confirmed booking after the slot has elapsed and
// queues the completion receipt.
func (s *BookingService) MarkCompleted(bookingID string, staffID int64) error {
	return s.decide(bookingID, models.BookingConfirmed, models.BookingCompleted, "", staffID, models.TemplateCompletion)
}

// decide applies one checked transition. The CAS is the serialization
// point: under concurrent decisions exactly one caller wins, the rest see
// ErrInvalidTransition after the retry budget.
func (s *BookingService) decide(bookingID string, from, to models.BookingState, reason string, staffID int64, template models.JobTemplate) error {
	var b *models.Booking
	var err error
	for i := 0; i < casAttempts; i++ {
		b, err = s.Store.GetByID(bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNotFound
		}
		if b.State != from || !canTransition(b.State, to) {
			return ErrInvalidTransition
		}
		ok, err := s.Store.CompareAndSetState(bookingID, from, to, reason, staffID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		b.State = to
		b.DecisionReason = reason
		if err := s.Notifier.EnqueueBookingEmail(b, template); err != nil {
			// Notification is best-effort relative to the transition.
			log.Printf("[booking][decide] enqueue failed booking_id=%s template=%s err=%v", bookingID, template, err)
		}
		log.Printf("[booking][decide] ok booking_id=%s %s->%s staff=%d", bookingID, from, to, staffID)
		return nil
	}
	return ErrInvalidTransition
}

// newPublicID is the short customer-facing id format (8 upper hex-ish chars).
func newPublicID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
