package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"cyber_case_app_go/config"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Printf("[EMAIL] Sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in test mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\n[EMAIL] Test mode - not sent\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// IntegrityAlert describes a failed evidence verification
type IntegrityAlert struct {
	EvidenceID   string
	CaseID       string
	FIRNumber    string
	Filename     string
	ExpectedHash string
	ActualHash   string
	RequestedBy  string
	OccurredAt   time.Time
}

// AlertNotifier is told about integrity failures
type AlertNotifier interface {
	NotifyIntegrityFailure(ctx context.Context, alert IntegrityAlert) error
}

// EmailAlertNotifier mails integrity alerts to ALERT_RECIPIENTS
type EmailAlertNotifier struct {
	cfg *config.Config
}

// NewEmailAlertNotifier creates a notifier backed by Resend
func NewEmailAlertNotifier(cfg *config.Config) *EmailAlertNotifier {
	return &EmailAlertNotifier{cfg: cfg}
}

// NotifyIntegrityFailure sends the alert. Without recipients the alert is only logged.
func (n *EmailAlertNotifier) NotifyIntegrityFailure(ctx context.Context, alert IntegrityAlert) error {
	if len(n.cfg.AlertRecipients) == 0 {
		log.Printf("[INTEGRITY] No ALERT_RECIPIENTS configured; alert for evidence %s not mailed", alert.EvidenceID)
		return nil
	}
	return SendEmail(n.cfg, BuildIntegrityAlertEmail(n.cfg.AlertRecipients, alert))
}

// BuildIntegrityAlertEmail renders the alert for the cyber cell supervisors
func BuildIntegrityAlertEmail(recipients []string, alert IntegrityAlert) *Email {
	subject := fmt.Sprintf("[EVIDENCE INTEGRITY] Hash mismatch on FIR %s", alert.FIRNumber)

	text := fmt.Sprintf(`An evidence file failed its integrity check and was withheld.

FIR:            %s
Case ID:        %s
Evidence ID:    %s
File:           %s
Recorded hash:  %s
Computed hash:  %s
Requested by:   %s
Time (UTC):     %s

Preserve the stored object and audit trail for examination.`,
		alert.FIRNumber, alert.CaseID, alert.EvidenceID, alert.Filename,
		alert.ExpectedHash, alert.ActualHash, alert.RequestedBy,
		alert.OccurredAt.UTC().Format(time.RFC3339))

	htmlBody := "<pre>" + html.EscapeString(text) + "</pre>"

	return &Email{
		To:       append([]string{}, recipients...),
		Subject:  subject,
		TextBody: text,
		HTMLBody: htmlBody,
	}
}
