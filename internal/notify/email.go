package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
)

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends emails through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *zap.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *zap.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Telehealth Clinic"
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", zap.Int("status", response.StatusCode), zap.String("to", msg.To))
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// StubSender logs instead of sending. Used when no mail provider is configured.
type StubSender struct {
	logger *zap.Logger
}

func NewStubSender(logger *zap.Logger) *StubSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubSender{logger: logger}
}

func (s *StubSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func bookingConfirmation(e scheduling.Event) EmailMessage {
	a := e.Appointment
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", e.Patient.DisplayName)
	fmt.Fprintf(&b, "Your appointment with Dr. %s has been booked.\n\n", e.Doctor.DisplayName)
	fmt.Fprintf(&b, "Date: %s\n", a.Date.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Time: %s\n", a.FormattedTime())
	fmt.Fprintf(&b, "Reason: %s\n\n", a.Reason)
	b.WriteString("Please join the consultation a few minutes early. ")
	b.WriteString("If you can no longer attend, cancel the appointment from your dashboard.\n")

	return EmailMessage{
		To:      e.Patient.Email,
		ToName:  e.Patient.DisplayName,
		Subject: "Appointment Confirmation",
		Body:    b.String(),
	}
}

func cancellationNotice(e scheduling.Event) EmailMessage {
	a := e.Appointment
	to := e.Recipient()

	canceller := "your patient " + e.Patient.DisplayName
	if e.CancelledBy == models.RoleDoctor {
		canceller = "Dr. " + e.Doctor.DisplayName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", to.DisplayName)
	fmt.Fprintf(&b, "The appointment on %s at %s was cancelled by %s.\n",
		a.Date.Format("Monday, January 2, 2006"), a.FormattedTime(), canceller)
	if a.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", a.Notes)
	}

	return EmailMessage{
		To:      to.Email,
		ToName:  to.DisplayName,
		Subject: "Appointment Cancelled",
		Body:    b.String(),
	}
}
