package models

import "time"

type JobStatus string

const (
	JobQueued            JobStatus = "queued"
	JobSending           JobStatus = "sending"
	JobSent              JobStatus = "sent"
	JobSentWithoutAttach JobStatus = "sent_without_attachment"
	JobFailed            JobStatus = "failed"
)

type JobTemplate string

const (
	TemplateOTP          JobTemplate = "otp"
	TemplateConfirmation JobTemplate = "confirmation"
	TemplateRejection    JobTemplate = "rejection"
	TemplateCompletion   JobTemplate = "completion"
)

// NotificationJob is one durable outbound email. DedupeKey makes redelivery
// of the same lifecycle event a no-op: bookingID+template for decision
// mails, identity+purpose for OTP codes.
type NotificationJob struct {
	ID         int64       `json:"id"`
	DedupeKey  string      `json:"dedupe_key"`
	BookingID  string      `json:"booking_id,omitempty"`
	Template   JobTemplate `json:"template"`
	Recipient  string      `json:"recipient"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
	Status     JobStatus   `json:"status"`
	Attempts   int         `json:"attempts"`
	LastError  string      `json:"last_error,omitempty"`
	Superseded bool        `json:"superseded"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
