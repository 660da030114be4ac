// Package email sends operational notification mail over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lending_crm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers run summaries to the operator mailbox.
type Sender interface {
	SendBulkRunSummary(ctx context.Context, summary RunSummary) error
}

// RunSummary is the content of a bulk-run notification.
type RunSummary struct {
	RunID      string
	Lenders    []string
	Rows       int
	Results    int
	ArchiveKey string
	FinishedAt time.Time
}

// SMTPSender implements Sender via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	toEmail   string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		toEmail:   cfg.GetOperatorEmail(),
	}
}

func (s *SMTPSender) SendBulkRunSummary(ctx context.Context, summary RunSummary) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Bulk dedupe run %s finished", summary.RunID))
	msg.SetBodyString(gomail.TypeTextPlain, renderRunSummary(summary))

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func renderRunSummary(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bulk dedupe run %s finished at %s.\n\n", s.RunID, s.FinishedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "Lenders: %s\n", strings.Join(s.Lenders, ", "))
	fmt.Fprintf(&b, "Input rows: %d\n", s.Rows)
	fmt.Fprintf(&b, "Result rows: %d\n", s.Results)
	if s.ArchiveKey != "" {
		fmt.Fprintf(&b, "Archived result: %s\n", s.ArchiveKey)
	}
	return b.String()
}
