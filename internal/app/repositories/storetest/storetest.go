// Package storetest holds the behavioural suite every repositories backend
// must pass. Backends call Run from their own tests with a factory that
// returns an empty, migrated store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/app/tally"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

// Store is a backend under test. Exec runs a literal statement against the
// same database so tests can corrupt state the repositories never would.
type Store struct {
	*repositories.Repositories
	Exec func(ctx context.Context, query string) error
}

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) *Store

// Run executes the whole suite.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, repos *Store)
	}{
		{"CastIncrementsCounters", testCastIncrementsCounters},
		{"BlankBallot", testBlankBallot},
		{"DuplicateBallotRejected", testDuplicateBallotRejected},
		{"ConcurrentDuplicateCast", testConcurrentDuplicateCast},
		{"IneligibleCandidatePersistsNothing", testIneligibleCandidatePersistsNothing},
		{"InactiveVoterCannotCast", testInactiveVoterCannotCast},
		{"CounterMatchesRecount", testCounterMatchesRecount},
		{"RecountRepairsDrift", testRecountRepairsDrift},
		{"ResetClearsEverything", testResetClearsEverything},
		{"EmptyStoreScansNothing", testEmptyStoreScansNothing},
		{"SessionFiltering", testSessionFiltering},
		{"InvalidateExcludesBallot", testInvalidateExcludesBallot},
		{"ListHistory", testListHistory},
		{"CandidateLifecycle", testCandidateLifecycle},
		{"CandidateUniqueness", testCandidateUniqueness},
		{"VoterProfileAndStats", testVoterProfileAndStats},
		{"VotedFollowsValidBallots", testVotedFollowsValidBallots},
		{"AdminsAndSettings", testAdminsAndSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var seq int

func unique(prefix string) string {
	seq++
	return fmt.Sprintf("%s%05d", prefix, seq)
}

// Voter registers an active voter.
func Voter(t *testing.T, repos *Store) *models.Voter {
	t.Helper()
	m := unique("2024.1.")
	v := &models.Voter{
		Matricule:    m,
		FirstName:    "Jean",
		LastName:     "Mukendi",
		Email:        m + "@univ.test",
		Faculty:      "Sciences",
		PasswordHash: "x",
	}
	if _, err := repos.Voters.Create(context.Background(), v); err != nil {
		t.Fatalf("create voter: %v", err)
	}
	return v
}

// Candidate registers a candidate for office with the given status.
func Candidate(t *testing.T, repos *Store, office models.Office, status models.CandidateStatus) *models.Candidate {
	t.Helper()
	ctx := context.Background()
	m := unique("2023.2.")
	c := &models.Candidate{
		Matricule:       m,
		FirstName:       "Grace",
		LastName:        unique("Ilunga"),
		Email:           m + "@univ.test",
		Office:          office,
		CandidateNumber: unique("C"),
		PasswordHash:    "x",
	}
	if _, err := repos.Candidates.Create(ctx, c); err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	if status != models.CandidatePending {
		if err := repos.Candidates.UpdateStatus(ctx, c.ID, status, nil); err != nil {
			t.Fatalf("update candidate status: %v", err)
		}
		c.Status = status
	}
	return c
}

func cast(t *testing.T, repos *Store, voter *models.Voter, session string, sel models.Selections) *models.Ballot {
	t.Helper()
	b := &models.Ballot{VoterID: voter.ID, SessionID: session, Selections: sel}
	if err := repos.Ballots.Cast(context.Background(), b); err != nil {
		t.Fatalf("cast: %v", err)
	}
	return b
}

func voteCount(t *testing.T, repos *Store, id int64) int64 {
	t.Helper()
	c, err := repos.Candidates.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get candidate %d: %v", id, err)
	}
	return c.VoteCount
}

func tabulate(t *testing.T, repos *Store, session string) *tally.Tabulator {
	t.Helper()
	tab := tally.New()
	err := repos.Ballots.ScanSelections(context.Background(), session, func(s models.Selection) error {
		tab.Add(s)
		return nil
	})
	if err != nil {
		t.Fatalf("scan selections: %v", err)
	}
	return tab
}

func testCastIncrementsCounters(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	sec := Candidate(t, repos, models.OfficeSecretary, models.CandidateApproved)
	voter := Voter(t, repos)

	b := cast(t, repos, voter, "2024", models.Selections{models.OfficePresident: pres.ID, models.OfficeSecretary: sec.ID})
	if b.ID == uuid.Nil || b.CastAt.IsZero() || !b.IsValid {
		t.Fatalf("ballot not filled in: %+v", b)
	}

	if got := voteCount(t, repos, pres.ID); got != 1 {
		t.Fatalf("president votes = %d, want 1", got)
	}
	if got := voteCount(t, repos, sec.ID); got != 1 {
		t.Fatalf("secretary votes = %d, want 1", got)
	}

	voted, at, err := repos.Ballots.HasVoted(ctx, voter.ID, "2024")
	if err != nil || !voted || at == nil {
		t.Fatalf("HasVoted = %v, %v, %v", voted, at, err)
	}
	v, err := repos.Voters.GetByID(ctx, voter.ID)
	if err != nil || !v.HasVoted {
		t.Fatalf("voter has_voted not set: %+v, %v", v, err)
	}

	got, err := repos.Ballots.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get ballot: %v", err)
	}
	if len(got.Selections) != 2 || got.Selections[models.OfficePresident] != pres.ID {
		t.Fatalf("selections = %+v", got.Selections)
	}
}

func testDuplicateBallotRejected(t *testing.T, repos *Store) {
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	voter := Voter(t, repos)
	cast(t, repos, voter, "2024", models.Selections{models.OfficePresident: pres.ID})

	err := repos.Ballots.Cast(context.Background(), &models.Ballot{
		VoterID: voter.ID, SessionID: "2024", Selections: models.Selections{models.OfficePresident: pres.ID},
	})
	if !errors.Is(err, apperrors.ErrDuplicateBallot) {
		t.Fatalf("second cast error = %v, want ErrDuplicateBallot", err)
	}
	if got := voteCount(t, repos, pres.ID); got != 1 {
		t.Fatalf("votes after duplicate = %d, want 1", got)
	}

	// another session is a fresh ballot
	cast(t, repos, voter, "2025", models.Selections{models.OfficePresident: pres.ID})
	if got := voteCount(t, repos, pres.ID); got != 2 {
		t.Fatalf("votes after second session = %d, want 2", got)
	}
}

func testConcurrentDuplicateCast(t *testing.T, repos *Store) {
	const attempts = 8
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	voter := Voter(t, repos)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, dup    int
		unexpected []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repos.Ballots.Cast(context.Background(), &models.Ballot{
				VoterID: voter.ID, SessionID: "2024", Selections: models.Selections{models.OfficePresident: pres.ID},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperrors.ErrDuplicateBallot):
				dup++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	if len(unexpected) > 0 {
		t.Fatalf("unexpected errors: %v", unexpected)
	}
	if ok != 1 || dup != attempts-1 {
		t.Fatalf("successes = %d, duplicates = %d, want 1 and %d", ok, dup, attempts-1)
	}
	if got := voteCount(t, repos, pres.ID); got != 1 {
		t.Fatalf("votes = %d, want 1", got)
	}
	n, err := repos.Ballots.CountBallots(context.Background(), "2024")
	if err != nil || n != 1 {
		t.Fatalf("ballot count = %d, %v, want 1", n, err)
	}
}

func testIneligibleCandidatePersistsNothing(t *testing.T, repos *Store) {
	ctx := context.Background()
	approved := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	pending := Candidate(t, repos, models.OfficeTreasurer, models.CandidatePending)
	rejected := Candidate(t, repos, models.OfficeAuditor, models.CandidateRejected)
	voter := Voter(t, repos)

	cases := []models.Selections{
		{models.OfficePresident: approved.ID, models.OfficeTreasurer: pending.ID},
		{models.OfficePresident: approved.ID, models.OfficeAuditor: rejected.ID},
		// approved candidate but for another office
		{models.OfficeSecretary: approved.ID},
		{models.OfficePresident: 999999},
	}
	for _, sel := range cases {
		err := repos.Ballots.Cast(ctx, &models.Ballot{VoterID: voter.ID, SessionID: "2024", Selections: sel})
		if !errors.Is(err, apperrors.ErrIneligibleCandidate) {
			t.Fatalf("cast %v error = %v, want ErrIneligibleCandidate", sel, err)
		}
	}

	if got := voteCount(t, repos, approved.ID); got != 0 {
		t.Fatalf("approved votes = %d, want 0 after rollback", got)
	}
	voted, _, err := repos.Ballots.HasVoted(ctx, voter.ID, "2024")
	if err != nil || voted {
		t.Fatalf("HasVoted = %v, %v, want false", voted, err)
	}
	if n, _ := repos.Ballots.CountBallots(ctx, ""); n != 0 {
		t.Fatalf("ballots = %d, want 0", n)
	}

	// deactivated approved candidate is ineligible too
	if err := repos.Candidates.SetActive(ctx, approved.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	err = repos.Ballots.Cast(ctx, &models.Ballot{VoterID: voter.ID, SessionID: "2024", Selections: models.Selections{models.OfficePresident: approved.ID}})
	if !errors.Is(err, apperrors.ErrIneligibleCandidate) {
		t.Fatalf("inactive candidate error = %v", err)
	}
}

func testInactiveVoterCannotCast(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	voter := Voter(t, repos)
	if err := repos.Voters.SetActive(ctx, voter.ID, false); err != nil {
		t.Fatalf("deactivate voter: %v", err)
	}

	err := repos.Ballots.Cast(ctx, &models.Ballot{VoterID: voter.ID, SessionID: "2024", Selections: models.Selections{models.OfficePresident: pres.ID}})
	if !errors.Is(err, apperrors.ErrAccountDisabled) {
		t.Fatalf("cast error = %v, want ErrAccountDisabled", err)
	}
	if got := voteCount(t, repos, pres.ID); got != 0 {
		t.Fatalf("votes = %d, want 0", got)
	}

	err = repos.Ballots.Cast(ctx, &models.Ballot{VoterID: 424242, SessionID: "2024", Selections: models.Selections{}})
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("unknown voter error = %v, want not found", err)
	}
}

func seedElection(t *testing.T, repos *Store, voters int) []*models.Candidate {
	t.Helper()
	cands := []*models.Candidate{
		Candidate(t, repos, models.OfficePresident, models.CandidateApproved),
		Candidate(t, repos, models.OfficePresident, models.CandidateApproved),
		Candidate(t, repos, models.OfficeTreasurer, models.CandidateApproved),
	}
	for i := 0; i < voters; i++ {
		sel := models.Selections{models.OfficePresident: cands[i%2].ID}
		if i%3 == 0 {
			sel[models.OfficeTreasurer] = cands[2].ID
		}
		cast(t, repos, Voter(t, repos), "2024", sel)
	}
	return cands
}

func testCounterMatchesRecount(t *testing.T, repos *Store) {
	cands := seedElection(t, repos, 7)
	tab := tabulate(t, repos, "")

	for _, c := range cands {
		var fromBallots int64
		for _, rc := range tab.Ranking(c.Office) {
			if rc.CandidateID == c.ID {
				fromBallots = rc.Votes
			}
		}
		if got := voteCount(t, repos, c.ID); got != fromBallots {
			t.Fatalf("candidate %d counter = %d, ballots say %d", c.ID, got, fromBallots)
		}
	}

	changed, err := repos.Ballots.Recount(context.Background())
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if changed != 0 {
		t.Fatalf("recount changed %d counters on consistent data", changed)
	}
}

func testRecountRepairsDrift(t *testing.T, repos *Store) {
	ctx := context.Background()
	cands := seedElection(t, repos, 4)

	b := cast(t, repos, Voter(t, repos), "2025", models.Selections{models.OfficeTreasurer: cands[2].ID})
	if _, err := repos.Ballots.Invalidate(ctx, b.ID, "test"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	drift := fmt.Sprintf("UPDATE candidates SET vote_count = 40 WHERE id IN (%d, %d)", cands[0].ID, cands[2].ID)
	if err := repos.Exec(ctx, drift); err != nil {
		t.Fatalf("inject drift: %v", err)
	}

	changed, err := repos.Ballots.Recount(ctx)
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	if changed != 2 {
		t.Fatalf("recount changed %d counters, want 2", changed)
	}
	if got := voteCount(t, repos, cands[0].ID); got != 2 {
		t.Fatalf("president votes = %d, want 2", got)
	}
	// the invalidated 2025 ballot stays excluded
	if got := voteCount(t, repos, cands[2].ID); got != 2 {
		t.Fatalf("treasurer votes = %d, want 2", got)
	}
}

func testResetClearsEverything(t *testing.T, repos *Store) {
	ctx := context.Background()
	cands := seedElection(t, repos, 5)
	cast(t, repos, Voter(t, repos), "2023", models.Selections{models.OfficePresident: cands[0].ID})

	removed, err := repos.Ballots.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if removed != 6 {
		t.Fatalf("removed = %d, want 6", removed)
	}
	for _, c := range cands {
		if got := voteCount(t, repos, c.ID); got != 0 {
			t.Fatalf("candidate %d votes = %d after reset", c.ID, got)
		}
	}
	for _, session := range []string{"", "2023", "2024"} {
		if n, _ := repos.Ballots.CountBallots(ctx, session); n != 0 {
			t.Fatalf("session %q ballots = %d after reset", session, n)
		}
	}
	voted := true
	_, n, err := repos.Voters.List(ctx, models.VoterFilter{HasVoted: &voted})
	if err != nil || n != 0 {
		t.Fatalf("voters flagged as voted = %d, %v", n, err)
	}
	if rankings := tabulate(t, repos, "").Rankings(); len(rankings[models.OfficePresident]) != 0 {
		t.Fatalf("rankings after reset = %+v", rankings)
	}
}

func testBlankBallot(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	voter := Voter(t, repos)
	b := cast(t, repos, voter, "2024", models.Selections{})

	voted, _, err := repos.Ballots.HasVoted(ctx, voter.ID, "2024")
	if err != nil || !voted {
		t.Fatalf("has voted = %v, %v", voted, err)
	}
	if n, err := repos.Ballots.CountBallots(ctx, "2024"); err != nil || n != 1 {
		t.Fatalf("ballots = %d, %v", n, err)
	}
	if got := voteCount(t, repos, pres.ID); got != 0 {
		t.Fatalf("votes = %d, want 0", got)
	}
	if got := tabulate(t, repos, "2024").OfficeTotal(models.OfficePresident); got != 0 {
		t.Fatalf("tally = %d, want 0", got)
	}
	got, err := repos.Ballots.Get(ctx, b.ID)
	if err != nil || len(got.Selections) != 0 {
		t.Fatalf("blank ballot = %+v, %v", got, err)
	}
	if err := repos.Ballots.Cast(ctx, &models.Ballot{VoterID: voter.ID, SessionID: "2024", Selections: models.Selections{}}); !errors.Is(err, apperrors.ErrDuplicateBallot) {
		t.Fatalf("second blank ballot error = %v", err)
	}
}

func testEmptyStoreScansNothing(t *testing.T, repos *Store) {
	ctx := context.Background()
	Candidate(t, repos, models.OfficePresident, models.CandidateApproved)

	rankings := tabulate(t, repos, "").Rankings()
	for _, o := range models.AllOffices {
		if r, ok := rankings[o]; !ok || len(r) != 0 {
			t.Fatalf("%s ranking = %+v, want empty", o, r)
		}
	}
	calls := 0
	if err := repos.Ballots.ScanCastTimes(ctx, "", func(time.Time) error { calls++; return nil }); err != nil || calls != 0 {
		t.Fatalf("ScanCastTimes calls = %d, err = %v", calls, err)
	}
	n, err := repos.Ballots.CountVotersWithBallot(ctx, "")
	if err != nil || n != 0 {
		t.Fatalf("voters with ballot = %d, %v", n, err)
	}
}

func testSessionFiltering(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	v1, v2 := Voter(t, repos), Voter(t, repos)
	cast(t, repos, v1, "2023", models.Selections{models.OfficePresident: pres.ID})
	cast(t, repos, v1, "2024", models.Selections{models.OfficePresident: pres.ID})
	cast(t, repos, v2, "2024", models.Selections{models.OfficePresident: pres.ID})

	if got := tabulate(t, repos, "2024").OfficeTotal(models.OfficePresident); got != 2 {
		t.Fatalf("2024 total = %d, want 2", got)
	}
	if got := tabulate(t, repos, "2023").OfficeTotal(models.OfficePresident); got != 1 {
		t.Fatalf("2023 total = %d, want 1", got)
	}
	if got := tabulate(t, repos, "").OfficeTotal(models.OfficePresident); got != 3 {
		t.Fatalf("all-session total = %d, want 3", got)
	}

	times := 0
	if err := repos.Ballots.ScanCastTimes(ctx, "2024", func(time.Time) error { times++; return nil }); err != nil || times != 2 {
		t.Fatalf("2024 cast times = %d, %v", times, err)
	}
	if n, _ := repos.Ballots.CountVotersWithBallot(ctx, "2023"); n != 1 {
		t.Fatalf("2023 voters = %d, want 1", n)
	}
	if n, _ := repos.Ballots.CountVotersWithBallot(ctx, ""); n != 2 {
		t.Fatalf("distinct voters = %d, want 2", n)
	}
	// counters span every session
	if got := voteCount(t, repos, pres.ID); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
}

func testInvalidateExcludesBallot(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	voter := Voter(t, repos)
	b := cast(t, repos, voter, "2024", models.Selections{models.OfficePresident: pres.ID})

	changed, err := repos.Ballots.Invalidate(ctx, b.ID, "fraude")
	if err != nil || !changed {
		t.Fatalf("invalidate = %v, %v", changed, err)
	}
	changed, err = repos.Ballots.Invalidate(ctx, b.ID, "again")
	if err != nil || changed {
		t.Fatalf("second invalidate = %v, %v, want false", changed, err)
	}
	if _, err := repos.Ballots.Invalidate(ctx, uuid.New(), "x"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("unknown ballot error = %v", err)
	}

	if got := voteCount(t, repos, pres.ID); got != 0 {
		t.Fatalf("votes = %d, want 0", got)
	}
	if got := tabulate(t, repos, "2024").OfficeTotal(models.OfficePresident); got != 0 {
		t.Fatalf("tally includes invalid ballot: %d", got)
	}
	got, err := repos.Ballots.Get(ctx, b.ID)
	if err != nil || got.IsValid || got.InvalidReason == nil || *got.InvalidReason != "fraude" {
		t.Fatalf("ballot after invalidate = %+v, %v", got, err)
	}

	// the slot stays taken
	err = repos.Ballots.Cast(ctx, &models.Ballot{VoterID: voter.ID, SessionID: "2024", Selections: models.Selections{}})
	if !errors.Is(err, apperrors.ErrDuplicateBallot) {
		t.Fatalf("recast error = %v", err)
	}
}

func testListHistory(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	var last *models.Voter
	for i := 0; i < 3; i++ {
		last = Voter(t, repos)
		cast(t, repos, last, "2024", models.Selections{models.OfficePresident: pres.ID})
	}
	cast(t, repos, last, "2025", models.Selections{})

	list, total, err := repos.Ballots.List(ctx, models.BallotFilter{SessionID: "2024", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("total = %d, page = %d, want 3 and 2", total, len(list))
	}
	if list[0].CastAt.Before(list[1].CastAt) {
		t.Fatal("history not newest first")
	}
	for _, b := range list {
		if b.Selections[models.OfficePresident] != pres.ID {
			t.Fatalf("selections not attached: %+v", b)
		}
	}

	_, total, err = repos.Ballots.List(ctx, models.BallotFilter{VoterID: last.ID})
	if err != nil || total != 2 {
		t.Fatalf("voter history total = %d, %v", total, err)
	}

	future := time.Now().Add(time.Hour)
	_, total, err = repos.Ballots.List(ctx, models.BallotFilter{From: &future})
	if err != nil || total != 0 {
		t.Fatalf("future window total = %d, %v", total, err)
	}
}

func testCandidateLifecycle(t *testing.T, repos *Store) {
	ctx := context.Background()
	c := Candidate(t, repos, models.OfficeCouncilor, models.CandidatePending)

	got, err := repos.Candidates.GetByNumber(ctx, c.CandidateNumber)
	if err != nil || got.ID != c.ID || got.Status != models.CandidatePending || !got.IsActive {
		t.Fatalf("GetByNumber = %+v, %v", got, err)
	}

	reason := "dossier incomplet"
	if err := repos.Candidates.UpdateStatus(ctx, c.ID, models.CandidateRejected, &reason); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ = repos.Candidates.GetByID(ctx, c.ID)
	if got.Status != models.CandidateRejected || got.RejectionReason == nil || got.ReviewedAt == nil {
		t.Fatalf("after reject = %+v", got)
	}

	if err := repos.Candidates.UpdatePhoto(ctx, c.ID, "/uploads/c.png"); err != nil {
		t.Fatalf("photo: %v", err)
	}
	approved := Candidate(t, repos, models.OfficeCouncilor, models.CandidateApproved)
	list, err := repos.Candidates.ListApprovedByOffice(ctx, models.OfficeCouncilor)
	if err != nil || len(list) != 1 || list[0].ID != approved.ID {
		t.Fatalf("approved list = %+v, %v", list, err)
	}

	status := models.CandidateRejected
	page, total, err := repos.Candidates.List(ctx, models.CandidateFilter{Status: &status})
	if err != nil || total != 1 || page[0].PhotoURL == nil {
		t.Fatalf("filtered list = %+v (%d), %v", page, total, err)
	}
	_, total, err = repos.Candidates.List(ctx, models.CandidateFilter{Search: approved.LastName})
	if err != nil || total != 1 {
		t.Fatalf("search total = %d, %v", total, err)
	}

	stats, err := repos.Candidates.Stats(ctx)
	if err != nil || stats.Total != 2 || stats.ByStatus[models.CandidateApproved] != 1 || stats.ByOffice[models.OfficeCouncilor] != 2 {
		t.Fatalf("stats = %+v, %v", stats, err)
	}

	byID, err := repos.Candidates.GetByIDs(ctx, []int64{c.ID, approved.ID, 777777})
	if err != nil || len(byID) != 2 {
		t.Fatalf("GetByIDs = %v, %v", byID, err)
	}

	if err := repos.Candidates.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repos.Candidates.GetByID(ctx, c.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("get deleted = %v", err)
	}
	if err := repos.Candidates.Delete(ctx, c.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("delete twice = %v", err)
	}
}

func testCandidateUniqueness(t *testing.T, repos *Store) {
	ctx := context.Background()
	c := Candidate(t, repos, models.OfficePresident, models.CandidatePending)

	dupNumber := &models.Candidate{
		Matricule: unique("2022.9."), FirstName: "A", LastName: "B", Email: unique("e") + "@univ.test",
		Office: models.OfficePresident, CandidateNumber: c.CandidateNumber, PasswordHash: "x",
	}
	if _, err := repos.Candidates.Create(ctx, dupNumber); !errors.Is(err, repositories.ErrCandidateNumberTaken) {
		t.Fatalf("duplicate number error = %v", err)
	}

	dupMatricule := *dupNumber
	dupMatricule.Matricule = c.Matricule
	dupMatricule.CandidateNumber = unique("C")
	if _, err := repos.Candidates.Create(ctx, &dupMatricule); !errors.Is(err, apperrors.ErrMatriculeExists) {
		t.Fatalf("duplicate matricule error = %v", err)
	}
}

func testVoterProfileAndStats(t *testing.T, repos *Store) {
	ctx := context.Background()
	v := Voter(t, repos)
	other := Voter(t, repos)

	phone := "+243 800 000 000"
	if err := repos.Voters.UpdateProfile(ctx, v.ID, models.VoterProfileUpdate{Phone: &phone}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	got, _ := repos.Voters.GetByMatricule(ctx, v.Matricule)
	if got.Phone != phone {
		t.Fatalf("phone = %q", got.Phone)
	}
	if err := repos.Voters.UpdateProfile(ctx, v.ID, models.VoterProfileUpdate{Email: &other.Email}); !errors.Is(err, apperrors.ErrEmailExists) {
		t.Fatalf("duplicate email error = %v", err)
	}
	if err := repos.Voters.UpdateProfile(ctx, 888888, models.VoterProfileUpdate{}); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("missing voter error = %v", err)
	}

	dup := &models.Voter{Matricule: v.Matricule, FirstName: "X", LastName: "Y", Email: unique("z") + "@univ.test", PasswordHash: "x"}
	if _, err := repos.Voters.Create(ctx, dup); !errors.Is(err, apperrors.ErrMatriculeExists) {
		t.Fatalf("duplicate matricule error = %v", err)
	}

	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	cast(t, repos, v, "2024", models.Selections{models.OfficePresident: pres.ID})

	n, err := repos.Voters.CountActive(ctx)
	if err != nil || n != 2 {
		t.Fatalf("active voters = %d, %v", n, err)
	}
	stats, err := repos.Voters.StatsByFaculty(ctx, "2024")
	if err != nil || len(stats) != 1 || stats[0].Total != 2 || stats[0].Voted != 1 {
		t.Fatalf("faculty stats = %+v, %v", stats, err)
	}
	stats, err = repos.Voters.StatsByFaculty(ctx, "2025")
	if err != nil || len(stats) != 1 || stats[0].Total != 2 || stats[0].Voted != 0 {
		t.Fatalf("faculty stats in later session = %+v, %v", stats, err)
	}

	_, total, err := repos.Voters.List(ctx, models.VoterFilter{Search: v.Matricule})
	if err != nil || total != 1 {
		t.Fatalf("search voters = %d, %v", total, err)
	}
}

func testAdminsAndSettings(t *testing.T, repos *Store) {
	ctx := context.Background()
	a := &models.Admin{Username: "root", Email: "root@univ.test", PasswordHash: "x", Role: models.RoleSuperAdmin}
	if _, err := repos.Admins.Create(ctx, a); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	dup := &models.Admin{Username: "root", Email: "other@univ.test", PasswordHash: "x", Role: models.RoleAdmin}
	if _, err := repos.Admins.Create(ctx, dup); !errors.Is(err, apperrors.ErrUsernameExists) {
		t.Fatalf("duplicate username error = %v", err)
	}

	at := time.Now().Truncate(time.Millisecond)
	if err := repos.Admins.TouchLogin(ctx, a.ID, at); err != nil {
		t.Fatalf("touch login: %v", err)
	}
	got, err := repos.Admins.GetByUsername(ctx, "root")
	if err != nil || got.Role != models.RoleSuperAdmin || got.LastLoginAt == nil || !got.LastLoginAt.Equal(at) {
		t.Fatalf("admin = %+v, %v", got, err)
	}
	if n, _ := repos.Admins.Count(ctx); n != 1 {
		t.Fatalf("admin count = %d", n)
	}

	s, err := repos.Settings.Get(ctx)
	if err != nil || s.VotingOpen || s.SessionOverride != "" {
		t.Fatalf("initial settings = %+v, %v", s, err)
	}
	s, err = repos.Settings.SetVotingOpen(ctx, true, a.ID)
	if err != nil || !s.VotingOpen || s.UpdatedBy == nil || *s.UpdatedBy != a.ID {
		t.Fatalf("open = %+v, %v", s, err)
	}
	s, err = repos.Settings.SetSessionOverride(ctx, "2024-bis", 0)
	if err != nil || s.SessionOverride != "2024-bis" || !s.VotingOpen || s.UpdatedBy != nil {
		t.Fatalf("override = %+v, %v", s, err)
	}
}

func testVotedFollowsValidBallots(t *testing.T, repos *Store) {
	ctx := context.Background()
	pres := Candidate(t, repos, models.OfficePresident, models.CandidateApproved)
	kept, spoiled := Voter(t, repos), Voter(t, repos)
	cast(t, repos, kept, "2024", models.Selections{models.OfficePresident: pres.ID})
	b := cast(t, repos, spoiled, "2024", models.Selections{models.OfficePresident: pres.ID})
	if _, err := repos.Ballots.Invalidate(ctx, b.ID, "fraude"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	tests := []struct {
		session string
		voted   int64
	}{
		{"", 1},
		{"2024", 1},
		{"2025", 0},
	}
	for _, tt := range tests {
		stats, err := repos.Voters.StatsByFaculty(ctx, tt.session)
		if err != nil || len(stats) != 1 || stats[0].Voted != tt.voted {
			t.Fatalf("session %q stats = %+v, %v", tt.session, stats, err)
		}
		yes, no := true, false
		list, n, err := repos.Voters.List(ctx, models.VoterFilter{HasVoted: &yes, SessionID: tt.session})
		if err != nil || n != tt.voted {
			t.Fatalf("session %q voted list = %d, %v", tt.session, n, err)
		}
		for _, v := range list {
			if v.ID != kept.ID || !v.HasVoted {
				t.Fatalf("session %q listed %+v", tt.session, v)
			}
		}
		if _, n, err := repos.Voters.List(ctx, models.VoterFilter{HasVoted: &no, SessionID: tt.session}); err != nil || n != 2-tt.voted {
			t.Fatalf("session %q not voted list = %d, %v", tt.session, n, err)
		}
		if n, err := repos.Ballots.CountVotersWithBallot(ctx, tt.session); err != nil || n != tt.voted {
			t.Fatalf("session %q voters with ballot = %d, %v", tt.session, n, err)
		}
		for _, v := range []*models.Voter{kept, spoiled} {
			got, err := repos.Voters.Voted(ctx, v.ID, tt.session)
			if err != nil || got != (v == kept && tt.voted == 1) {
				t.Fatalf("session %q voter %d voted = %v, %v", tt.session, v.ID, got, err)
			}
		}
	}
}
