package email

import (
	"fmt"
	"net/smtp"
)

// SMTPServerConfig holds the connection settings for the outgoing mail server.
type SMTPServerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string // the "From" address
}

// EmailService sends transactional mail for the platform.
type EmailService struct {
	config SMTPServerConfig
	auth   smtp.Auth
}

func NewEmailService(config SMTPServerConfig) *EmailService {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.Host)
	return &EmailService{
		config: config,
		auth:   auth,
	}
}

func (s *EmailService) send(recipient, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	message := []byte(
		"To: " + recipient + "\r\n" +
			"From: " + s.config.Sender + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	if err := smtp.SendMail(addr, s.auth, s.config.Sender, []string{recipient}, message); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	return nil
}

// SendWelcomeEmail greets a newly registered user.
func (s *EmailService) SendWelcomeEmail(recipientEmail, username, frontendURL string) error {
	subject := "Welcome to EventBridge!"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour EventBridge account is ready. Find a group, sign up for an event, or volunteer at one near you:\n%s\n\nSee you out there!\nThe EventBridge Team",
		username,
		frontendURL,
	)
	return s.send(recipientEmail, subject, body)
}

// SendGroupDecisionEmail tells a group creator whether their group was
// approved or rejected.
func (s *EmailService) SendGroupDecisionEmail(recipientEmail, groupName string, approved bool, reason, frontendURL string) error {
	if approved {
		subject := fmt.Sprintf("Your group '%s' has been approved", groupName)
		body := fmt.Sprintf(
			"Good news!\n\nYour group '%s' is now live on EventBridge. Head over and schedule your first event:\n%s\n\nThe EventBridge Team",
			groupName,
			frontendURL,
		)
		return s.send(recipientEmail, subject, body)
	}

	subject := fmt.Sprintf("Your group '%s' was not approved", groupName)
	body := fmt.Sprintf(
		"Hi,\n\nYour group '%s' was reviewed and not approved.\n\nReason: %s\n\nYou can update the details and resubmit, or open a helpdesk ticket if you think this was a mistake:\n%s\n\nThe EventBridge Team",
		groupName,
		reason,
		frontendURL,
	)
	return s.send(recipientEmail, subject, body)
}
