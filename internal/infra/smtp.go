package infra

import (
	"fmt"
	"net/smtp"

	"cierrez/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending closure emails with the
// reporte Z PDF attached. It is the fallback channel when the backend's
// own email endpoint is unreachable.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether SMTP settings are present.
func (m *Mailer) Configured() bool { return m.host != "" && m.user != "" }

// SendReporteZ sends the closure ticket to the configured recipients.
func (m *Mailer) SendReporteZ(to []string, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
