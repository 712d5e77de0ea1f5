package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"regexp"
	"strings"
	"testing"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/tally"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

var candidateNumberPattern = regexp.MustCompile(`^C\d{4}$`)

func applyRequest(office models.Office) ApplyRequest {
	m := nextMatricule()
	return ApplyRequest{
		Matricule: m,
		FirstName: "Amani",
		LastName:  "Kabila",
		Email:     "cand-" + m + "@univ.test",
		Office:    office,
		Biography: "Étudiante en master, déléguée de promotion.",
	}
}

func TestApplyIssuesNumberAndPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	app, err := env.svc.Candidates.Apply(ctx, applyRequest(models.OfficeTreasurer))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	c := app.Candidate
	if !candidateNumberPattern.MatchString(c.CandidateNumber) {
		t.Fatalf("candidate number = %q", c.CandidateNumber)
	}
	if len(app.Password) != oneTimePasswordLength {
		t.Fatalf("password length = %d", len(app.Password))
	}
	if c.Status != models.CandidatePending || c.VoteCount != 0 {
		t.Fatalf("new candidate = %+v", c)
	}

	// pending applicants cannot log in yet
	_, err = env.svc.Auth.LoginCandidate(ctx, c.CandidateNumber, app.Password)
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("pending login = %v, want ErrPermissionDenied", err)
	}

	if _, err := env.svc.Candidates.Approve(ctx, c.ID, 1); err != nil {
		t.Fatalf("approve: %v", err)
	}
	sess, err := env.svc.Auth.LoginCandidate(ctx, strings.ToLower(c.CandidateNumber), app.Password)
	if err != nil {
		t.Fatalf("approved login: %v", err)
	}
	if sess.Role != models.RoleCandidate || sess.UserID != c.ID {
		t.Fatalf("session = %+v", sess)
	}
}

func TestApplyValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(r *ApplyRequest)
		field  string
	}{
		{"bad matricule", func(r *ApplyRequest) { r.Matricule = "2023-1-42" }, "matricule"},
		{"missing name", func(r *ApplyRequest) { r.LastName = " " }, "name"},
		{"unknown office", func(r *ApplyRequest) { r.Office = "mayor" }, "office"},
		{"empty biography", func(r *ApplyRequest) { r.Biography = "" }, "biography"},
		{"long biography", func(r *ApplyRequest) { r.Biography = strings.Repeat("é", maxBiographyLength+1) }, "biography"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := applyRequest(models.OfficePresident)
			tt.mutate(&req)
			_, err := env.svc.Candidates.Apply(context.Background(), req)
			if !errors.Is(err, apperrors.ErrValidationFailed) {
				t.Fatalf("apply = %v", err)
			}
			if got := apperrors.DetailsOf(err)["field"]; got != tt.field {
				t.Fatalf("field = %v, want %s", got, tt.field)
			}
		})
	}

	req := applyRequest(models.OfficePresident)
	req.Biography = strings.Repeat("é", maxBiographyLength)
	if _, err := env.svc.Candidates.Apply(context.Background(), req); err != nil {
		t.Fatalf("biography at the limit rejected: %v", err)
	}
}

func TestApplyDuplicateMatricule(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	req := applyRequest(models.OfficePresident)
	if _, err := env.svc.Candidates.Apply(ctx, req); err != nil {
		t.Fatalf("apply: %v", err)
	}
	req.Email = "other@univ.test"
	if _, err := env.svc.Candidates.Apply(ctx, req); !errors.Is(err, apperrors.ErrMatriculeExists) {
		t.Fatalf("duplicate apply = %v", err)
	}
}

func TestReviewTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a, _ := env.svc.Candidates.Apply(ctx, applyRequest(models.OfficeAuditor))
	b, _ := env.svc.Candidates.Apply(ctx, applyRequest(models.OfficeAuditor))

	if _, err := env.svc.Candidates.Approve(ctx, a.Candidate.ID, 1); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.svc.Candidates.Approve(ctx, a.Candidate.ID, 1); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	if _, err := env.svc.Candidates.Reject(ctx, a.Candidate.ID, "dossier incomplet", 1); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("reject approved = %v, want ErrConflict", err)
	}

	if _, err := env.svc.Candidates.Reject(ctx, b.Candidate.ID, "  ", 1); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("reject without reason = %v", err)
	}
	rejected, err := env.svc.Candidates.Reject(ctx, b.Candidate.ID, "dossier incomplet", 1)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.CandidateRejected || rejected.RejectionReason == nil || *rejected.RejectionReason != "dossier incomplet" {
		t.Fatalf("rejected = %+v", rejected)
	}
	if _, err := env.svc.Candidates.Approve(ctx, b.Candidate.ID, 1); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("approve rejected = %v", err)
	}

	if _, err := env.svc.Candidates.Approve(ctx, 424242, 1); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("approve missing = %v", err)
	}

	approved, err := env.svc.Candidates.ListApprovedByOffice(ctx, models.OfficeAuditor)
	if err != nil || len(approved) != 1 || approved[0].ID != a.Candidate.ID {
		t.Fatalf("approved list = %v, %v", approved, err)
	}
}

type reviewRecorder struct {
	statuses []models.CandidateStatus
	err      error
}

func (r *reviewRecorder) CandidateReviewed(c *models.Candidate) error {
	r.statuses = append(r.statuses, c.Status)
	return r.err
}

func TestReviewNotifiesCandidate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reviews := &reviewRecorder{err: errors.New("relay down")}
	svc := NewCandidateService(env.store.Candidates, nil, reviews)

	first, err := svc.Apply(ctx, applyRequest(models.OfficeAuditor))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	second, err := svc.Apply(ctx, applyRequest(models.OfficeAuditor))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := svc.Approve(ctx, first.Candidate.ID, 1); err != nil {
		t.Fatalf("approve should survive a failed notice: %v", err)
	}
	if _, err := svc.Reject(ctx, second.Candidate.ID, "incomplete file", 1); err != nil {
		t.Fatalf("reject: %v", err)
	}
	// repeating a decision is a no-op and sends nothing
	if _, err := svc.Approve(ctx, first.Candidate.ID, 1); err != nil {
		t.Fatalf("re-approve: %v", err)
	}

	want := []models.CandidateStatus{models.CandidateApproved, models.CandidateRejected}
	if len(reviews.statuses) != len(want) {
		t.Fatalf("notices = %v, want %v", reviews.statuses, want)
	}
	for i := range want {
		if reviews.statuses[i] != want[i] {
			t.Fatalf("notices = %v, want %v", reviews.statuses, want)
		}
	}
}

func TestDeactivatedCandidateIsIneligible(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	c := env.candidate(t, models.OfficeCouncilor)

	if err := env.svc.Candidates.SetActive(ctx, c.ID, false, 1); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := env.svc.Ballots.Cast(ctx, CastRequest{
		VoterID: env.voter(t).ID, Selections: models.Selections{models.OfficeCouncilor: c.ID},
	})
	if !errors.Is(err, apperrors.ErrIneligibleCandidate) {
		t.Fatalf("cast = %v", err)
	}
}

func photoHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("photo", name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["photo"][0]
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func TestUploadPhotoReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	c := env.candidate(t, models.OfficePresident)

	if _, err := env.svc.Candidates.UploadPhoto(ctx, c.ID, photoHeader(t, "cv.txt", []byte("plain text"))); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("text upload = %v", err)
	}

	first, err := env.svc.Candidates.UploadPhoto(ctx, c.ID, photoHeader(t, "a.png", pngBytes))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if first.PhotoURL == nil || !strings.HasPrefix(*first.PhotoURL, "/uploads/candidates/") {
		t.Fatalf("photo url = %v", first.PhotoURL)
	}
	firstURL := *first.PhotoURL

	second, err := env.svc.Candidates.UploadPhoto(ctx, c.ID, photoHeader(t, "b.png", pngBytes))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if *second.PhotoURL == firstURL {
		t.Fatal("expected a new photo url")
	}

	stored, _ := env.svc.Candidates.Get(ctx, c.ID)
	if stored.PhotoURL == nil || *stored.PhotoURL != *second.PhotoURL {
		t.Fatalf("stored url = %v", stored.PhotoURL)
	}
}

func TestDeletedCandidateKeepsVotes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	c := env.candidate(t, models.OfficeVicePresident)
	env.cast(t, env.voter(t), models.Selections{models.OfficeVicePresident: c.ID})

	if err := env.svc.Candidates.Delete(ctx, c.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.svc.Candidates.Get(ctx, c.ID); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("get deleted = %v", err)
	}

	office, err := env.svc.Results.OfficeResults(ctx, models.OfficeVicePresident, "")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(office.Entries) != 1 {
		t.Fatalf("entries = %+v", office.Entries)
	}
	e := office.Entries[0]
	if !e.Candidate.Unknown || e.Candidate.LastName != tally.UnknownCandidateName || e.Votes != 1 || e.Percentage != 100 {
		t.Fatalf("placeholder entry = %+v", e)
	}
}
