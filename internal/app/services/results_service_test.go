package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

func TestResultsRankingAndPercentages(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)

	first := env.candidate(t, models.OfficePresident)
	second := env.candidate(t, models.OfficePresident)
	third := env.candidate(t, models.OfficePresident)
	sec := env.candidate(t, models.OfficeSecretary)

	// third leads, first and second tie and are ordered by id
	votes := []int64{first.ID, second.ID, third.ID, third.ID}
	for _, id := range votes {
		env.cast(t, env.voter(t), models.Selections{models.OfficePresident: id, models.OfficeSecretary: sec.ID})
	}

	results, err := env.svc.Results.Results(ctx, "")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results.Offices) != len(models.AllOffices) {
		t.Fatalf("offices = %d", len(results.Offices))
	}
	if results.Stats.TotalVotes != 4 {
		t.Fatalf("total votes = %d", results.Stats.TotalVotes)
	}

	pres := results.Offices[models.OfficePresident.Index()]
	want := []struct {
		id    int64
		votes int64
		pct   float64
	}{
		{third.ID, 2, 50}, {first.ID, 1, 25}, {second.ID, 1, 25},
	}
	if len(pres.Entries) != len(want) {
		t.Fatalf("president entries = %+v", pres.Entries)
	}
	for i, w := range want {
		e := pres.Entries[i]
		if e.Candidate.ID != w.id || e.Votes != w.votes || e.Percentage != w.pct {
			t.Fatalf("entry %d = %+v, want %+v", i, e, w)
		}
	}

	secretary := results.Offices[models.OfficeSecretary.Index()]
	if secretary.TotalVotes != 4 || secretary.Entries[0].Percentage != 100 {
		t.Fatalf("secretary = %+v", secretary)
	}
	if treasurer := results.Offices[models.OfficeTreasurer.Index()]; len(treasurer.Entries) != 0 || treasurer.TotalVotes != 0 {
		t.Fatalf("empty office = %+v", treasurer)
	}
}

func TestResultsFilterBySession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	c := env.candidate(t, models.OfficePresident)
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: c.ID})

	if _, err := env.svc.Election.SetSessionOverride(ctx, "2025", 1); err != nil {
		t.Fatal(err)
	}
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: c.ID})
	env.cast(t, env.voter(t), models.Selections{models.OfficePresident: c.ID})

	for session, want := range map[string]int64{"": 3, "2024": 1, "2025": 2, "1999": 0} {
		office, err := env.svc.Results.OfficeResults(ctx, models.OfficePresident, session)
		if err != nil {
			t.Fatalf("results(%q): %v", session, err)
		}
		if office.TotalVotes != want {
			t.Fatalf("results(%q) total = %d, want %d", session, office.TotalVotes, want)
		}
	}
}

func TestOfficeResultsRejectsUnknownOffice(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Results.OfficeResults(context.Background(), "mayor", ""); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("unknown office = %v", err)
	}
}

func TestParticipation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	c := env.candidate(t, models.OfficePresident)

	voters := []*models.Voter{env.voter(t), env.voter(t), env.voter(t)}
	env.cast(t, voters[0], models.Selections{models.OfficePresident: c.ID})

	stats, err := env.svc.Results.Participation(ctx, "2024")
	if err != nil {
		t.Fatalf("participation: %v", err)
	}
	if stats.RegisteredVoters != 3 || stats.Voted != 1 || stats.Rate != 33.33 || stats.TotalBallots != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	var hourly int64
	for _, h := range stats.Hourly {
		hourly += h.Count
	}
	if hourly != 1 || len(stats.Daily) != 1 || stats.Daily[0].Count != 1 {
		t.Fatalf("distribution = %+v / %+v", stats.Hourly, stats.Daily)
	}

	// deactivated voters leave the denominator
	if err := env.svc.Voters.SetActive(ctx, voters[2].ID, false, 1); err != nil {
		t.Fatal(err)
	}
	stats, _ = env.svc.Results.Participation(ctx, "2024")
	if stats.RegisteredVoters != 2 || stats.Rate != 50 {
		t.Fatalf("after deactivation = %+v", stats)
	}
}

func TestParticipationWithoutVoters(t *testing.T) {
	env := newTestEnv(t)
	stats, err := env.svc.Results.Participation(context.Background(), "")
	if err != nil {
		t.Fatalf("participation: %v", err)
	}
	if stats.Rate != 0 || stats.TotalBallots != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	leader := env.candidate(t, models.OfficePresident)
	other := env.candidate(t, models.OfficePresident)
	if _, err := env.svc.Candidates.Apply(ctx, applyRequest(models.OfficeAuditor)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		id := leader.ID
		if i == 0 {
			id = other.ID
		}
		env.cast(t, env.voter(t), models.Selections{models.OfficePresident: id})
	}

	d, err := env.svc.Results.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.SessionID != "2024" || !d.VotingOpen || d.Voters != 6 {
		t.Fatalf("dashboard = %+v", d)
	}
	if d.Participation.Rate != 100 {
		t.Fatalf("rate = %v", d.Participation.Rate)
	}
	pres := d.Leaders[models.OfficePresident.Index()]
	if len(pres.Entries) != 1 || pres.Entries[0].Candidate.ID != leader.ID || pres.Entries[0].Votes != 5 {
		t.Fatalf("leader = %+v", pres)
	}
	if len(d.RecentBallots) != dashboardRecentLimit {
		t.Fatalf("recent ballots = %d", len(d.RecentBallots))
	}
	if len(d.PendingCandidates) != 1 || d.Candidates.Total != 3 {
		t.Fatalf("pending = %d, total = %d", len(d.PendingCandidates), d.Candidates.Total)
	}
}
