// Package email renders and delivers the transactional mails of the viewing workflow.
package email

import (
	"context"

	"estate_portal_backend/platform/config"
)

// Sender delivers viewing notifications.
type Sender interface {
	SendRequestReceivedEmail(ctx context.Context, toEmail, customerName, propertyTitle string, priorityNumber int) error
	SendAgentAssignedEmail(ctx context.Context, toEmail, agentName, customerName, propertyTitle, appointmentURL string) error
	SendViewingScheduledEmail(ctx context.Context, toEmail, customerName, propertyTitle, scheduledDate, scheduledTime string) error
	SendViewingReminderEmail(ctx context.Context, toEmail, customerName, propertyTitle, scheduledDate, scheduledTime string) error
	SendViewingCancelledEmail(ctx context.Context, toEmail, customerName, propertyTitle, reason string) error
}

// NoopSender discards every mail. It is used when email is disabled.
type NoopSender struct{}

func (NoopSender) SendRequestReceivedEmail(context.Context, string, string, string, int) error {
	return nil
}

func (NoopSender) SendAgentAssignedEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendViewingScheduledEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendViewingReminderEmail(context.Context, string, string, string, string, string) error {
	return nil
}

func (NoopSender) SendViewingCancelledEmail(context.Context, string, string, string, string) error {
	return nil
}

// NewSender returns an SMTP sender, or NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
