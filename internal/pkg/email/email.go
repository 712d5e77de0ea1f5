// Package email sends candidate review notices over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"sort"
	"strconv"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
)

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

// Message is a rendered mail ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// SendFunc delivers a rendered message. Tests replace it to capture mail.
type SendFunc func(cfg SMTPConfig, msg Message) error

// Mailer notifies candidates of the outcome of their application
type Mailer struct {
	config SMTPConfig
	logger zerolog.Logger
	send   SendFunc
}

// NewMailer creates a Mailer delivering through the configured server.
// With no host configured notices are only logged.
func NewMailer(config SMTPConfig, logger zerolog.Logger) *Mailer {
	return &Mailer{config: config, logger: logger, send: sendSMTP}
}

// WithSender overrides the delivery function
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

var (
	approvedTmpl = template.Must(template.New("approved").Parse(`Bonjour {{.FirstName}} {{.LastName}},

Votre candidature au poste de {{.OfficeLabel}} a été approuvée.
Votre numéro de candidat est {{.CandidateNumber}}. Utilisez-le avec le mot de passe
reçu lors du dépôt de votre candidature pour accéder à votre espace candidat.

L'équipe électorale
`))

	rejectedTmpl = template.Must(template.New("rejected").Parse(`Bonjour {{.FirstName}} {{.LastName}},

Votre candidature au poste de {{.OfficeLabel}} n'a pas été retenue.
{{if .Reason}}Motif : {{.Reason}}
{{end}}
L'équipe électorale
`))
)

type decisionView struct {
	FirstName       string
	LastName        string
	OfficeLabel     string
	CandidateNumber string
	Reason          string
}

// ReviewMessage renders the notice for a reviewed candidate. It returns false
// for candidates that are still pending.
func ReviewMessage(c *models.Candidate) (Message, bool, error) {
	view := decisionView{
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		OfficeLabel:     c.Office.Label(),
		CandidateNumber: c.CandidateNumber,
	}

	var tmpl *template.Template
	var subject string
	switch c.Status {
	case models.CandidateApproved:
		tmpl, subject = approvedTmpl, "Candidature approuvée"
	case models.CandidateRejected:
		tmpl, subject = rejectedTmpl, "Candidature non retenue"
		if c.RejectionReason != nil {
			view.Reason = *c.RejectionReason
		}
	default:
		return Message{}, false, nil
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, view); err != nil {
		return Message{}, false, fmt.Errorf("render %s notice: %w", c.Status, err)
	}
	return Message{To: c.Email, Subject: subject, Body: body.String()}, true, nil
}

// CandidateReviewed sends the decision notice to the candidate
func (m *Mailer) CandidateReviewed(c *models.Candidate) error {
	msg, ok, err := ReviewMessage(c)
	if err != nil || !ok {
		return err
	}
	if c.Email == "" {
		m.logger.Warn().Int64("candidateID", c.ID).Msg("Candidate has no email address - review notice not sent")
		return nil
	}

	if m.config.Host == "" {
		m.logger.Info().
			Int64("candidateID", c.ID).
			Str("toEmail", msg.To).
			Str("subject", msg.Subject).
			Msg("SMTP not configured - review notice logged only")
		return nil
	}

	if err := m.send(m.config, msg); err != nil {
		m.logger.Error().Err(err).Int64("candidateID", c.ID).Str("server", m.config.Host).Msg("Failed to send review notice")
		return err
	}
	m.logger.Info().Int64("candidateID", c.ID).Str("status", string(c.Status)).Msg("Review notice sent")
	return nil
}

// Compose builds the RFC 5322 payload for msg
func Compose(cfg SMTPConfig, msg Message) []byte {
	headers := map[string]string{
		"From":                      fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.FromEmail),
		"To":                        msg.To,
		"Subject":                   mime.QEncoding.Encode("utf-8", msg.Subject),
		"MIME-Version":              "1.0",
		"Content-Type":              "text/plain; charset=UTF-8",
		"Content-Transfer-Encoding": "8bit",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, headers[k])
	}
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}

func sendSMTP(cfg SMTPConfig, msg Message) error {
	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	payload := Compose(cfg, msg)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if !cfg.UseTLS {
		if err := smtp.SendMail(addr, auth, cfg.FromEmail, []string{msg.To}, payload); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(cfg.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}
