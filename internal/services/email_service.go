package services

import (
	"errors"
	"fmt"
	"io"
	"net/mail"

	"gopkg.in/gomail.v2"
)

// Attachment is an in-memory document riding on an outbound mail.
type Attachment struct {
	Filename string
	Content  []byte
}

// Channel is the abstract mail transport the dispatcher sends through.
type Channel interface {
	Send(to, subject, body string, attachment *Attachment) error
}

// DeliveryError tags a send failure as retryable or not. Address problems
// are permanent; transport problems (timeouts, refused connections, SMTP
// 4xx/5xx) are treated as transient and left to the retry policy.
type DeliveryError struct {
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s delivery error: %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func IsPermanentDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Permanent
}

type emailChannel struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailChannel(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) Channel {
	return &emailChannel{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
	}
}

func (s *emailChannel) Send(to, subject, body string, attachment *Attachment) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return &DeliveryError{Permanent: true, Err: fmt.Errorf("invalid recipient %q: %w", to, err)}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if attachment != nil {
		content := attachment.Content
		m.Attach(attachment.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return &DeliveryError{Err: fmt.Errorf("smtp send: %w", err)}
	}
	return nil
}
