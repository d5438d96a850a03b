package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers password-reset codes. The auth service only needs this
// narrow send capability.
type Mailer interface {
	SendPasswordResetCode(to, code string) error
}

// SMTPMailer sends mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendPasswordResetCode(to, code string) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString("Subject: Your password reset code\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Your password reset code is: %s\r\n\r\n", code))
	msg.WriteString("The code is valid for 10 minutes and can be used once.\r\n")
	msg.WriteString("If you did not request a password reset, you can ignore this email.\r\n")

	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send reset code to %s: %w", to, err)
	}
	return nil
}
