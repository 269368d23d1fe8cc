package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/nufflezone/tournament-registry/config"
)

// EmailService sends transactional mail over SMTP. Deployments without SMTP
// configured leave the ConfirmationMailer nil instead of constructing one.
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

var confirmationTemplate = template.Must(template.New("registration_confirmation").Parse(`
<h2>You're in, {{.Alias}}!</h2>
<p>Your registration for <strong>{{.TournamentName}}</strong> has been received
and is awaiting confirmation by the organizer.</p>
<p>May Nuffle smile upon your rolls.</p>
`))

func (s *EmailService) SendRegistrationConfirmation(to, alias, tournamentName string) error {
	data := struct {
		Alias          string
		TournamentName string
	}{Alias: alias, TournamentName: tournamentName}

	var body bytes.Buffer
	if err := confirmationTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render confirmation email: %w", err)
	}
	subject := fmt.Sprintf("Registration received: %s", tournamentName)
	return s.send([]string{to}, subject, body.String())
}

func (s *EmailService) send(to []string, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := []byte("To: " + to[0] + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Implicit TLS.
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client failed: %w", err)
		}
	} else {
		// STARTTLS (typically port 587).
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp starttls failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return nil
}
