package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

func TestCastRequiresOpenVoting(t *testing.T) {
	env := newTestEnv(t)
	pres := env.candidate(t, models.OfficePresident)
	voter := env.voter(t)

	_, err := env.svc.Ballots.Cast(context.Background(), CastRequest{
		VoterID: voter.ID, Selections: models.Selections{models.OfficePresident: pres.ID},
	})
	if !errors.Is(err, apperrors.ErrVotingClosed) {
		t.Fatalf("cast while closed = %v, want ErrVotingClosed", err)
	}
}

func TestCastRecordsBallotInCurrentSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	voter := env.voter(t)

	b := env.cast(t, voter, models.Selections{models.OfficePresident: pres.ID})
	if b.SessionID != "2024" {
		t.Fatalf("session = %q, want configured override 2024", b.SessionID)
	}

	status, err := env.svc.Ballots.Status(ctx, voter.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.HasVoted || status.CastAt == nil || !status.VotingOpen || status.SessionID != "2024" {
		t.Fatalf("status = %+v", status)
	}

	kinds := env.events.kinds()
	if len(kinds) != 2 || kinds[0] != EventVotingState || kinds[1] != EventBallotCast {
		t.Fatalf("events = %v", kinds)
	}

	_, err = env.svc.Ballots.Cast(ctx, CastRequest{VoterID: voter.ID, Selections: models.Selections{models.OfficePresident: pres.ID}})
	if !errors.Is(err, apperrors.ErrDuplicateBallot) {
		t.Fatalf("second cast = %v, want ErrDuplicateBallot", err)
	}
}

func TestCastValidatesSelections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	voter := env.voter(t)

	tests := []struct {
		name string
		sel  models.Selections
		want error
	}{
		{"unknown office", models.Selections{"mayor": pres.ID}, apperrors.ErrValidationFailed},
		{"zero id", models.Selections{models.OfficePresident: 0}, apperrors.ErrValidationFailed},
		{"wrong office", models.Selections{models.OfficeTreasurer: pres.ID}, apperrors.ErrIneligibleCandidate},
		{"missing candidate", models.Selections{models.OfficePresident: 99999}, apperrors.ErrIneligibleCandidate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Ballots.Cast(ctx, CastRequest{VoterID: voter.ID, Selections: tt.sel})
			if !errors.Is(err, tt.want) {
				t.Fatalf("cast = %v, want %v", err, tt.want)
			}
		})
	}

	status, _ := env.svc.Ballots.Status(ctx, voter.ID)
	if status.HasVoted {
		t.Fatal("rejected ballots must not mark the voter")
	}
}

func TestCastBlankBallot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	blank := env.voter(t)
	other := env.voter(t)

	b, err := env.svc.Ballots.Cast(ctx, CastRequest{VoterID: blank.ID, Selections: models.Selections{}})
	if err != nil {
		t.Fatalf("blank ballot: %v", err)
	}
	if len(b.Selections) != 0 || !b.IsValid {
		t.Fatalf("blank ballot = %+v", b)
	}
	if _, err := env.svc.Ballots.Cast(ctx, CastRequest{VoterID: other.ID}); err != nil {
		t.Fatalf("ballot without selections: %v", err)
	}

	status, err := env.svc.Ballots.Status(ctx, blank.ID)
	if err != nil || !status.HasVoted {
		t.Fatalf("status = %+v, %v", status, err)
	}

	part, err := env.svc.Results.Participation(ctx, "")
	if err != nil {
		t.Fatalf("participation: %v", err)
	}
	if part.Voted != 2 || part.TotalBallots != 2 {
		t.Fatalf("participation = %+v, want both blank ballots counted", part)
	}

	res, err := env.svc.Results.OfficeResults(ctx, models.OfficePresident, "")
	if err != nil {
		t.Fatalf("office results: %v", err)
	}
	if res.TotalVotes != 0 {
		t.Fatalf("blank ballots added votes: %+v", res)
	}
	if got, err := env.svc.Candidates.Get(ctx, pres.ID); err != nil || got.VoteCount != 0 {
		t.Fatalf("counter = %+v, %v", got, err)
	}
}

func TestDuplicateReportedBeforeEligibility(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	voter := env.voter(t)

	env.cast(t, voter, models.Selections{models.OfficePresident: pres.ID})
	if err := env.svc.Candidates.SetActive(ctx, pres.ID, false, 1); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := env.svc.Ballots.Cast(ctx, CastRequest{VoterID: voter.ID, Selections: models.Selections{models.OfficePresident: pres.ID}})
	if !errors.Is(err, apperrors.ErrDuplicateBallot) {
		t.Fatalf("recast = %v, want ErrDuplicateBallot", err)
	}
}

func TestIneligibleMessageNamesReason(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	inactive := env.candidate(t, models.OfficeTreasurer)
	if err := env.svc.Candidates.SetActive(ctx, inactive.ID, false, 1); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	app, err := env.svc.Candidates.Apply(ctx, applyRequest(models.OfficeAuditor))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	tests := []struct {
		name string
		sel  models.Selections
		want string
	}{
		{"inactive", models.Selections{models.OfficeTreasurer: inactive.ID}, "inactive"},
		{"pending", models.Selections{models.OfficeAuditor: app.Candidate.ID}, "pending, not approved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Ballots.Cast(ctx, CastRequest{VoterID: env.voter(t).ID, Selections: tt.sel})
			if !errors.Is(err, apperrors.ErrIneligibleCandidate) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("cast = %v, want ineligible mentioning %q", err, tt.want)
			}
		})
	}
}

func TestCastIneligibleReportsCandidate(t *testing.T) {
	env := newTestEnv(t)
	env.open(t)
	pending := env.svc.Candidates
	app, err := pending.Apply(context.Background(), ApplyRequest{
		Matricule: nextMatricule(), FirstName: "P", LastName: "Q", Email: "pq@univ.test",
		Office: models.OfficeSecretary, Biography: "bio",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	voter := env.voter(t)

	_, err = env.svc.Ballots.Cast(context.Background(), CastRequest{
		VoterID: voter.ID, Selections: models.Selections{models.OfficeSecretary: app.Candidate.ID},
	})
	if !errors.Is(err, apperrors.ErrIneligibleCandidate) {
		t.Fatalf("cast = %v", err)
	}
	if got := apperrors.DetailsOf(err)["candidateId"]; got != app.Candidate.ID {
		t.Fatalf("details candidateId = %v, want %d", got, app.Candidate.ID)
	}
}

func TestConcurrentCastsFromOneVoter(t *testing.T) {
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	voter := env.voter(t)

	const attempts = 10
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Ballots.Cast(context.Background(), CastRequest{
				VoterID: voter.ID, Selections: models.Selections{models.OfficePresident: pres.ID},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, apperrors.ErrDuplicateBallot):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful casts = %d, want 1", ok)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: pres.ID})
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: pres.ID})

	for _, phrase := range []string{"", "je-confirme-la-reinitialisation", "yes"} {
		if _, err := env.svc.Ballots.Reset(ctx, phrase, 1); !errors.Is(err, apperrors.ErrConfirmationRequired) {
			t.Fatalf("Reset(%q) = %v, want ErrConfirmationRequired", phrase, err)
		}
	}
	results, _ := env.svc.Results.Results(ctx, "")
	if results.Stats.TotalVotes != 2 {
		t.Fatalf("refused reset changed data: %d votes", results.Stats.TotalVotes)
	}

	removed, err := env.svc.Ballots.Reset(ctx, testResetPhrase, 1)
	if err != nil || removed != 2 {
		t.Fatalf("reset = %d, %v", removed, err)
	}
	c, _ := env.svc.Candidates.Get(ctx, pres.ID)
	if c.VoteCount != 0 {
		t.Fatalf("counter after reset = %d", c.VoteCount)
	}
	results, _ = env.svc.Results.Results(ctx, "")
	if results.Stats.TotalVotes != 0 || len(results.Offices[0].Entries) != 0 {
		t.Fatalf("results after reset = %+v", results)
	}
}

func TestInvalidateAndRecount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	pres := env.candidate(t, models.OfficePresident)
	b := env.cast(t, env.voter(t), models.Selections{models.OfficePresident: pres.ID})
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: pres.ID})

	if _, err := env.svc.Ballots.Invalidate(ctx, b.ID, "", 1); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("missing reason = %v", err)
	}
	if _, err := env.svc.Ballots.Invalidate(ctx, uuid.New(), "x", 1); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("unknown ballot = %v", err)
	}

	changed, err := env.svc.Ballots.Invalidate(ctx, b.ID, "double inscription", 1)
	if err != nil || !changed {
		t.Fatalf("invalidate = %v, %v", changed, err)
	}
	changed, err = env.svc.Ballots.Invalidate(ctx, b.ID, "again", 1)
	if err != nil || changed {
		t.Fatalf("second invalidate = %v, %v", changed, err)
	}

	office, err := env.svc.Results.OfficeResults(ctx, models.OfficePresident, "")
	if err != nil || office.TotalVotes != 1 {
		t.Fatalf("office results = %+v, %v", office, err)
	}

	n, err := env.svc.Ballots.Recount(ctx, 1)
	if err != nil || n != 0 {
		t.Fatalf("recount = %d, %v", n, err)
	}
	c, _ := env.svc.Candidates.Get(ctx, pres.ID)
	if c.VoteCount != 1 {
		t.Fatalf("counter = %d, want 1", c.VoteCount)
	}
}

func TestHistoryRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t)
	from := mustTime(t, "2024-03-02T00:00:00Z")
	to := mustTime(t, "2024-03-01T00:00:00Z")
	_, _, err := env.svc.Ballots.History(context.Background(), models.BallotFilter{From: &from, To: &to})
	if !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("history = %v", err)
	}
}
