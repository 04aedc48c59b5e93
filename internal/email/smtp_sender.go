package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender envia correos transaccionales via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
	}, nil
}

func (s *SMTPSender) SendRegistration(_ context.Context, toEmail, firstName, confirmLink string) error {
	body := fmt.Sprintf(
		"Hello %s!\n\nWelcome to the shop. Please confirm your email by following this link:\n%s\n\n"+
			"Confirmation is required before you can reset a forgotten password.\n",
		greetingName(firstName), confirmLink,
	)
	return s.send(toEmail, "Welcome! Please confirm your email", body)
}

func (s *SMTPSender) SendConfirmationResend(_ context.Context, toEmail, firstName, confirmLink string) error {
	body := fmt.Sprintf(
		"Hello %s!\n\nHere is a new confirmation link for your email:\n%s\n\n"+
			"Any previously sent confirmation link is no longer valid.\n",
		greetingName(firstName), confirmLink,
	)
	return s.send(toEmail, "Email confirmation", body)
}

func (s *SMTPSender) SendPasswordChanged(_ context.Context, toEmail, firstName string) error {
	body := fmt.Sprintf(
		"Hello %s!\n\nYour password was changed successfully.\n"+
			"If you did not request this change, contact support immediately.\n",
		greetingName(firstName),
	)
	return s.send(toEmail, "Password changed", body)
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, toEmail, resetLink string) error {
	body := fmt.Sprintf(
		"Hello!\n\nTo reset your password follow this link:\n%s\n\n"+
			"If you did not request a reset, you can ignore this message.\n",
		resetLink,
	)
	return s.send(toEmail, "Password reset", body)
}

func (s *SMTPSender) SendPasswordSet(_ context.Context, toEmail, firstName string) error {
	body := fmt.Sprintf(
		"Hello %s!\n\nA new password was set for your account.\n"+
			"If this was not you, contact support immediately.\n",
		greetingName(firstName),
	)
	return s.send(toEmail, "Password set", body)
}

func (s *SMTPSender) send(toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{
			ServerName: s.host,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if auth != nil {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
		if err := client.Mail(s.from); err != nil {
			return err
		}
		if err := client.Rcpt(toEmail); err != nil {
			return err
		}
		writer, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := writer.Write([]byte(msg)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	}

	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, []byte(msg))
}

func greetingName(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		return "dear customer"
	}
	return firstName
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
