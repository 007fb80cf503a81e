package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) buildMessage(toEmail, subject, htmlContent string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg, err := s.buildMessage(toEmail, subject, htmlContent)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendRequestReceivedEmail(ctx context.Context, toEmail, customerName, propertyTitle string, priorityNumber int) error {
	content, err := renderEmailTemplate("request_received.html", requestReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Viewing request received",
			Heading: "We received your viewing request",
		},
		CustomerName:   customerName,
		PropertyTitle:  propertyTitle,
		PriorityNumber: priorityNumber,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectRequestReceivedFmt, propertyTitle), content)
}

func (s *SMTPSender) SendAgentAssignedEmail(ctx context.Context, toEmail, agentName, customerName, propertyTitle, appointmentURL string) error {
	content, err := renderEmailTemplate("agent_assigned.html", agentAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New viewing assigned",
			Heading:  "A viewing was assigned to you",
			CTALabel: "Open appointment",
			CTAURL:   appointmentURL,
		},
		AgentName:     agentName,
		CustomerName:  customerName,
		PropertyTitle: propertyTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectAgentAssignedFmt, propertyTitle), content)
}

func (s *SMTPSender) SendViewingScheduledEmail(ctx context.Context, toEmail, customerName, propertyTitle, scheduledDate, scheduledTime string) error {
	content, err := renderEmailTemplate("viewing_scheduled.html", viewingSlotEmailData{
		baseEmailData: baseEmailData{
			Title:   "Viewing scheduled",
			Heading: "Your viewing is scheduled",
		},
		CustomerName:  customerName,
		PropertyTitle: propertyTitle,
		ScheduledDate: scheduledDate,
		ScheduledTime: scheduledTime,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectScheduledFmt, propertyTitle), content)
}

func (s *SMTPSender) SendViewingReminderEmail(ctx context.Context, toEmail, customerName, propertyTitle, scheduledDate, scheduledTime string) error {
	content, err := renderEmailTemplate("viewing_reminder.html", viewingSlotEmailData{
		baseEmailData: baseEmailData{
			Title:   "Viewing reminder",
			Heading: "See you soon",
		},
		CustomerName:  customerName,
		PropertyTitle: propertyTitle,
		ScheduledDate: scheduledDate,
		ScheduledTime: scheduledTime,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectReminderFmt, propertyTitle, scheduledDate), content)
}

func (s *SMTPSender) SendViewingCancelledEmail(ctx context.Context, toEmail, customerName, propertyTitle, reason string) error {
	content, err := renderEmailTemplate("viewing_cancelled.html", cancelledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Viewing cancelled",
			Heading: "Your viewing was cancelled",
		},
		CustomerName:  customerName,
		PropertyTitle: propertyTitle,
		Reason:        reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectCancelledFmt, propertyTitle), content)
}

var _ Sender = (*SMTPSender)(nil)
