package email

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
)

func reviewed(status models.CandidateStatus) *models.Candidate {
	c := &models.Candidate{
		ID:              7,
		FirstName:       "Amani",
		LastName:        "Kabila",
		Email:           "amani@campus.test",
		Office:          models.OfficeTreasurer,
		CandidateNumber: "C0007",
		Status:          status,
	}
	if status == models.CandidateRejected {
		reason := "dossier incomplet"
		c.RejectionReason = &reason
	}
	return c
}

func TestReviewMessage(t *testing.T) {
	msg, ok, err := ReviewMessage(reviewed(models.CandidateApproved))
	if err != nil || !ok {
		t.Fatalf("approved: ok=%v err=%v", ok, err)
	}
	if msg.To != "amani@campus.test" || !strings.Contains(msg.Body, "C0007") || !strings.Contains(msg.Body, "Trésorier") {
		t.Fatalf("approved message = %+v", msg)
	}

	msg, ok, err = ReviewMessage(reviewed(models.CandidateRejected))
	if err != nil || !ok {
		t.Fatalf("rejected: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(msg.Body, "dossier incomplet") || strings.Contains(msg.Body, "C0007") {
		t.Fatalf("rejected message = %+v", msg)
	}

	if _, ok, _ := ReviewMessage(reviewed(models.CandidatePending)); ok {
		t.Fatal("pending candidates get no notice")
	}
}

func TestCandidateReviewedDelivery(t *testing.T) {
	var sent []Message
	capture := func(_ SMTPConfig, msg Message) error {
		sent = append(sent, msg)
		return nil
	}

	quiet := zerolog.New(io.Discard)
	unconfigured := NewMailer(SMTPConfig{}, quiet).WithSender(capture)
	if err := unconfigured.CandidateReviewed(reviewed(models.CandidateApproved)); err != nil {
		t.Fatalf("unconfigured: %v", err)
	}
	if len(sent) != 0 {
		t.Fatal("nothing should be sent without a host")
	}

	mailer := NewMailer(SMTPConfig{Host: "smtp.campus.test", Port: 587}, quiet).WithSender(capture)
	if err := mailer.CandidateReviewed(reviewed(models.CandidateRejected)); err != nil {
		t.Fatalf("configured: %v", err)
	}
	if len(sent) != 1 || sent[0].Subject != "Candidature non retenue" {
		t.Fatalf("sent = %+v", sent)
	}

	failing := NewMailer(SMTPConfig{Host: "smtp.campus.test", Port: 587}, quiet).
		WithSender(func(SMTPConfig, Message) error { return errors.New("relay down") })
	if err := failing.CandidateReviewed(reviewed(models.CandidateApproved)); err == nil {
		t.Fatal("expected delivery error")
	}
}

func TestCompose(t *testing.T) {
	payload := string(Compose(
		SMTPConfig{FromName: "UniVote", FromEmail: "no-reply@univote.local"},
		Message{To: "amani@campus.test", Subject: "Candidature approuvée", Body: "Bonjour"},
	))

	head, body, found := strings.Cut(payload, "\r\n\r\n")
	if !found || body != "Bonjour" {
		t.Fatalf("payload = %q", payload)
	}
	for _, want := range []string{
		"From: UniVote <no-reply@univote.local>",
		"To: amani@campus.test",
		"Subject: =?utf-8?q?Candidature_approuv=C3=A9e?=",
		"Content-Type: text/plain; charset=UTF-8",
	} {
		if !strings.Contains(head, want) {
			t.Fatalf("headers missing %q:\n%s", want, head)
		}
	}
}
