// Package notify implements the emergency-contact notification fan-out and
// the transport contracts it delivers through. Transports are fire-and-forget
// collaborators: the fan-out attempts every enabled channel of every contact
// exactly once, in contact-list order, and a failure on one channel never
// blocks delivery to the next channel or contact.
package notify

import (
	"context"
	"time"

	"github.com/caremesh/caremesh/logging"
)

// Contact is an emergency contact registered on a smart device. Channel
// preferences gate which transports the fan-out uses for this contact.
type Contact struct {
	ContactID    string `json:"contact_id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	NotifySMS    bool   `json:"notify_sms"`
	NotifyEmail  bool   `json:"notify_email"`
	Primary      bool   `json:"primary"`
}

// SMSSender delivers a text message. No delivery confirmation is consumed.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// EmailSender delivers an email. No delivery confirmation is consumed.
type EmailSender interface {
	SendEmail(ctx context.Context, address, subject, message string) error
}

// Options configure a Fanout.
type Options struct {
	SMS    SMSSender
	Email  EmailSender
	Logger logging.Logger
}

// Fanout delivers one message to every contact through every channel the
// contact has enabled. Safe for concurrent use; it holds no mutable state.
type Fanout struct {
	sms    SMSSender
	email  EmailSender
	logger logging.Logger
}

// New constructs a Fanout with log-only transports unless overridden.
func New(optFns ...func(o *Options)) *Fanout {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SMS == nil {
		opts.SMS = LogSMSSender{Logger: opts.Logger}
	}
	if opts.Email == nil {
		opts.Email = LogEmailSender{Logger: opts.Logger}
	}
	return &Fanout{sms: opts.SMS, email: opts.Email, logger: opts.Logger}
}

// Notify sends the message to every contact in list order. kind labels the
// notification (emergency_alert, device_access, emergency_override) and forms
// the email subject line. Returns the number of delivery attempts that
// succeeded; per-channel failures are logged and swallowed.
func (f *Fanout) Notify(ctx context.Context, contacts []Contact, message, kind string) int {
	start := time.Now()
	delivered := 0

	for _, contact := range contacts {
		if contact.NotifySMS && contact.Phone != "" {
			if err := f.sms.SendSMS(ctx, contact.Phone, message); err != nil {
				f.logger.Error("sms delivery failed contact=%s kind=%s: %v", contact.Name, kind, err)
			} else {
				delivered++
			}
		}
		if contact.NotifyEmail && contact.Email != "" {
			subject := "Smart Health Device Alert - " + kind
			if err := f.email.SendEmail(ctx, contact.Email, subject, message); err != nil {
				f.logger.Error("email delivery failed contact=%s kind=%s: %v", contact.Name, kind, err)
			} else {
				delivered++
			}
		}
		f.logger.Info("notified contact %s about %s", contact.Name, kind)
	}

	f.logger.Debug("fan-out finished kind=%s contacts=%d delivered=%d duration=%s", kind, len(contacts), delivered, time.Since(start))

	return delivered
}

// LogSMSSender is a stand-in SMS transport that only logs the send. Real
// deployments plug a gateway client (Twilio or similar) behind SMSSender.
type LogSMSSender struct {
	Logger logging.Logger
}

// SendSMS logs the outgoing message.
func (s LogSMSSender) SendSMS(_ context.Context, phone, message string) error {
	if s.Logger != nil {
		s.Logger.Info("sms sent to %s: %.50s", phone, message)
	}
	return nil
}

// LogEmailSender is a stand-in email transport that only logs the send.
type LogEmailSender struct {
	Logger logging.Logger
}

// SendEmail logs the outgoing email.
func (s LogEmailSender) SendEmail(_ context.Context, address, subject, _ string) error {
	if s.Logger != nil {
		s.Logger.Info("email sent to %s: %s", address, subject)
	}
	return nil
}
