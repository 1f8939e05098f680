// Package mailer sends transactional mail over SMTP. Only OTP delivery needs
// it, so plain net/smtp suffices.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Config holds outbound SMTP settings.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// Mailer sends mail through one SMTP relay.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a mailer.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// SendOTP delivers a verification PIN. With no SMTP host configured the code
// is logged instead, which keeps local development working without a relay.
func (m *Mailer) SendOTP(to, code string) error {
	if m.cfg.Host == "" {
		m.logger.Info("smtp not configured, otp logged", zap.String("to", to), zap.String("code", code))
		return nil
	}
	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code)
	return m.send(to, subject, body)
}

func (m *Mailer) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	from := m.cfg.FromAddress
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
