package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"tyreworks/internal/config"
	"tyreworks/internal/models"
	"tyreworks/internal/pdf"
)

// JobStore is the durable queue plus audit trail for outbound mail.
type JobStore interface {
	Enqueue(job *models.NotificationJob) (int64, bool, error)
	ClaimNext() (*models.NotificationJob, error)
	Finish(id int64, status models.JobStatus, attempts int, lastError string) error
	IsSuperseded(id int64) (bool, error)
}

type BookingReader interface {
	GetByID(id string) (*models.Booking, error)
}

type PaymentReader interface {
	GetByBookingID(bookingID string) (*models.Payment, error)
}

// Dispatcher turns lifecycle events into queued emails and works the queue
// in the background. Callers never block on SMTP; they observe outcomes
// through the persisted job status.
type Dispatcher struct {
	Jobs     JobStore
	Bookings BookingReader
	Payments PaymentReader
	Channel  Channel
	Docs     pdf.Generator
	Cfg      config.DispatcherConfig

	stop  chan struct{}
	sleep func(time.Duration) // overridable in tests
}

func NewDispatcher(jobs JobStore, bookings BookingReader, payments PaymentReader, channel Channel, docs pdf.Generator, cfg config.DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		Jobs:     jobs,
		Bookings: bookings,
		Payments: payments,
		Channel:  channel,
		Docs:     docs,
		Cfg:      cfg,
		stop:     make(chan struct{}),
		sleep:    time.Sleep,
	}
}

// EnqueueBookingEmail queues the decision mail for a booking. Re-enqueueing
// the same (booking, template) after a send is a no-op.
func (d *Dispatcher) EnqueueBookingEmail(b *models.Booking, template models.JobTemplate) error {
	subject, body := decisionMail(b, template)
	job := &models.NotificationJob{
		DedupeKey: fmt.Sprintf("%s:%s", b.ID, template),
		BookingID: b.ID,
		Template:  template,
		Recipient: b.Email,
		Subject:   subject,
		Body:      body,
	}
	id, enqueued, err := d.Jobs.Enqueue(job)
	if err != nil {
		return err
	}
	if !enqueued {
		log.Printf("[dispatch][enqueue] duplicate suppressed booking_id=%s template=%s", b.ID, template)
		return nil
	}
	log.Printf("[dispatch][enqueue] job=%d booking_id=%s template=%s", id, b.ID, template)
	return nil
}

// SendCode queues an OTP delivery. A newer code supersedes a queued older
// one for the same identity+purpose.
func (d *Dispatcher) SendCode(identity string, purpose models.OTPPurpose, code string) error {
	job := &models.NotificationJob{
		DedupeKey: fmt.Sprintf("%s:%s", identity, purpose),
		Template:  models.TemplateOTP,
		Recipient: identity,
		Subject:   "Your verification code",
		Body: fmt.Sprintf("Your OTP is: %s. It will expire in 5 minutes.\n\n"+
			"Do not share this code with anyone. If you did not request it, ignore this mail.", code),
	}
	_, _, err := d.Jobs.Enqueue(job)
	return err
}

// Start runs the queue worker until Stop is called.
func (d *Dispatcher) Start() {
	go func() {
		ticker := time.NewTicker(time.Duration(d.Cfg.PollIntervalSeconds) * time.Second)
		defer ticker.Stop()
		log.Printf("[dispatch][worker] started poll=%ds", d.Cfg.PollIntervalSeconds)
		for {
			select {
			case <-d.stop:
				log.Printf("[dispatch][worker] stopped")
				return
			case <-ticker.C:
				d.Drain()
			}
		}
	}()
}

func (d *Dispatcher) Stop() {
	close(d.stop)
}

// Drain works the queue until it is empty.
func (d *Dispatcher) Drain() {
	for {
		job, err := d.Jobs.ClaimNext()
		if err != nil {
			log.Printf("[dispatch][worker] claim failed: %v", err)
			return
		}
		if job == nil {
			return
		}
		d.Dispatch(job)
	}
}

// Dispatch runs the full retry/fallback sequence for one claimed job.
func (d *Dispatcher) Dispatch(job *models.NotificationJob) {
	var lastErr error
	attempts := 0
	for attempts < d.Cfg.MaxRetries {
		if superseded, err := d.Jobs.IsSuperseded(job.ID); err == nil && superseded {
			d.finish(job, models.JobFailed, attempts, "superseded by newer job")
			return
		}
		attempts++

		status, err := d.deliverOnce(job)
		if err == nil {
			d.finish(job, status, attempts, "")
			return
		}
		lastErr = err
		if IsPermanentDelivery(err) {
			// Retrying an invalid address will never succeed.
			d.finish(job, models.JobFailed, attempts, err.Error())
			return
		}
		if attempts < d.Cfg.MaxRetries {
			d.sleep(d.backoff(attempts))
		}
	}
	d.finish(job, models.JobFailed, attempts, lastErr.Error())
}

// deliverOnce makes one delivery attempt: attachment-inclusive send first,
// then a plain send of the same template. A broken document pipeline must
// not keep the decision mail from the customer.
func (d *Dispatcher) deliverOnce(job *models.NotificationJob) (models.JobStatus, error) {
	attachment, wantAttachment := d.buildAttachment(job)

	if attachment != nil {
		if err := d.Channel.Send(job.Recipient, job.Subject, job.Body, attachment); err == nil {
			return models.JobSent, nil
		} else if IsPermanentDelivery(err) {
			return models.JobFailed, err
		} else {
			log.Printf("[dispatch][send] attachment send failed job=%d, falling back to plain: %v", job.ID, err)
		}
	}

	if err := d.Channel.Send(job.Recipient, job.Subject, job.Body, nil); err != nil {
		return models.JobFailed, err
	}
	if wantAttachment {
		return models.JobSentWithoutAttach, nil
	}
	return models.JobSent, nil
}

// buildAttachment renders the PDF for templates that carry one. A render
// failure degrades to a plain send rather than failing the job.
func (d *Dispatcher) buildAttachment(job *models.NotificationJob) (*Attachment, bool) {
	var kind string
	switch job.Template {
	case models.TemplateConfirmation:
		kind = "Booking Confirmed"
	case models.TemplateCompletion:
		kind = "Service Completed"
	case models.TemplateRejection:
		kind = ""
	default:
		return nil, false
	}

	booking, err := d.Bookings.GetByID(job.BookingID)
	if err != nil || booking == nil {
		log.Printf("[dispatch][attach] booking lookup failed job=%d booking_id=%s err=%v", job.ID, job.BookingID, err)
		return nil, true
	}

	var content []byte
	var name string
	if job.Template == models.TemplateRejection {
		content, err = d.Docs.RenderRejectionNotice(pdf.RejectionData{
			BookingID:    booking.ID,
			CustomerName: booking.CustomerName,
			Reason:       booking.DecisionReason,
		})
		name = fmt.Sprintf("rejection_notice_%s.pdf", booking.ID)
	} else {
		payment, _ := d.Payments.GetByBookingID(booking.ID)
		content, err = d.Docs.RenderReceipt(pdf.ReceiptData{Booking: booking, Payment: payment, Title: kind})
		name = fmt.Sprintf("booking_receipt_%s.pdf", booking.ID)
	}
	if err != nil {
		log.Printf("[dispatch][attach] render failed job=%d template=%s err=%v", job.ID, job.Template, err)
		return nil, true
	}
	return &Attachment{Filename: name, Content: content}, true
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	base := time.Duration(d.Cfg.BackoffBaseSeconds) * time.Second
	ceiling := time.Duration(d.Cfg.BackoffCapSeconds) * time.Second
	delay := base << (attempt - 1)
	if delay > ceiling {
		return ceiling
	}
	return delay
}

func (d *Dispatcher) finish(job *models.NotificationJob, status models.JobStatus, attempts int, lastError string) {
	if err := d.Jobs.Finish(job.ID, status, attempts, lastError); err != nil {
		log.Printf("[dispatch][finish] persist failed job=%d status=%s err=%v", job.ID, status, err)
		return
	}
	log.Printf("[dispatch][finish] job=%d template=%s status=%s attempts=%d", job.ID, job.Template, status, attempts)
}

func decisionMail(b *models.Booking, template models.JobTemplate) (subject, body string) {
	services := strings.Join(b.Services, ", ")
	switch template {
	case models.TemplateConfirmation:
		subject = fmt.Sprintf("Booking Confirmation - %s", b.ID)
		body = fmt.Sprintf("Dear %s,\n\nYour booking has been confirmed!\n\n"+
			"Booking Details:\n- Booking ID: %s\n- Services: %s\n- Date: %s\n- Time: %s\n\n"+
			"Your service will be completed soon and you'll receive a final receipt via email.\n\n"+
			"Thank you for choosing us!",
			b.CustomerName, b.ID, services, b.PreferredDate, b.PreferredTime)
	case models.TemplateRejection:
		subject = fmt.Sprintf("Booking Update - %s", b.ID)
		body = fmt.Sprintf("Dear %s,\n\nWe are sorry, your booking %s could not be accepted.\n\n"+
			"Reason: %s\n\nThe booking fee will be refunded. You are welcome to book another slot.",
			b.CustomerName, b.ID, b.DecisionReason)
	case models.TemplateCompletion:
		subject = fmt.Sprintf("Service Completion Receipt - %s", b.ID)
		body = fmt.Sprintf("Dear %s,\n\nYour service has been completed successfully!\n\n"+
			"Service Details:\n- Booking ID: %s\n- Services: %s\n- Date: %s\n- Status: Completed\n\n"+
			"You can now rate our services on our website.\n\nThank you for choosing us!",
			b.CustomerName, b.ID, services, b.PreferredDate)
	}
	return subject, body
}
