package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

func TestRegisterVoter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	req := RegisterVoterRequest{
		Matricule: nextMatricule(),
		FirstName: "Jean",
		LastName:  "Mbuyi",
		Email:     " Jean.Mbuyi@Univ.Test ",
		Faculty:   "Sciences",
		Password:  "abcdef",
	}
	v, err := env.svc.Voters.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if v.Email != "jean.mbuyi@univ.test" || !v.IsActive || v.HasVoted {
		t.Fatalf("voter = %+v", v)
	}

	dup := req
	dup.Email = "another@univ.test"
	if _, err := env.svc.Voters.Register(ctx, dup); !errors.Is(err, apperrors.ErrMatriculeExists) {
		t.Fatalf("duplicate matricule = %v", err)
	}
	dup = req
	dup.Matricule = nextMatricule()
	if _, err := env.svc.Voters.Register(ctx, dup); !errors.Is(err, apperrors.ErrEmailExists) {
		t.Fatalf("duplicate email = %v", err)
	}
}

func TestRegisterVoterValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name  string
		req   RegisterVoterRequest
		field string
	}{
		{"bad matricule", RegisterVoterRequest{Matricule: "abc", FirstName: "a", LastName: "b", Email: "e@x", Password: "secret1"}, "matricule"},
		{"no email", RegisterVoterRequest{Matricule: "12345.6.12345", FirstName: "a", LastName: "b", Password: "secret1"}, "email"},
		{"short password", RegisterVoterRequest{Matricule: "12345.6.12345", FirstName: "a", LastName: "b", Email: "e@x", Password: "12345"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Voters.Register(context.Background(), tt.req)
			if !errors.Is(err, apperrors.ErrValidationFailed) || apperrors.DetailsOf(err)["field"] != tt.field {
				t.Fatalf("register = %v", err)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	v := env.voter(t)

	phone := "+243 810 000 000"
	email := "NEW@univ.test"
	updated, err := env.svc.Voters.UpdateProfile(ctx, v.ID, models.VoterProfileUpdate{Phone: &phone, Email: &email})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != phone || updated.Email != "new@univ.test" || updated.Faculty != v.Faculty {
		t.Fatalf("updated = %+v", updated)
	}

	empty := " "
	if _, err := env.svc.Voters.UpdateProfile(ctx, v.ID, models.VoterProfileUpdate{Email: &empty}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Fatalf("empty email = %v", err)
	}
	if _, err := env.svc.Voters.UpdateProfile(ctx, 98765, models.VoterProfileUpdate{Phone: &phone}); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("missing voter = %v", err)
	}
}

func TestVoterStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	c := env.candidate(t, models.OfficePresident)

	a := env.voter(t)
	env.voter(t)
	sci, err := env.svc.Voters.Register(ctx, RegisterVoterRequest{
		Matricule: nextMatricule(), FirstName: "K", LastName: "L", Email: "kl@univ.test", Faculty: "Sciences", Password: "secret1",
	})
	if err != nil {
		t.Fatal(err)
	}
	env.cast(t, a, models.Selections{models.OfficePresident: c.ID})
	env.cast(t, sci, models.Selections{models.OfficePresident: c.ID})

	stats, err := env.svc.Voters.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Voted != 2 || stats.Rate != 66.67 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(stats.ByFaculty) != 2 {
		t.Fatalf("by faculty = %+v", stats.ByFaculty)
	}
	droit, sciences := stats.ByFaculty[0], stats.ByFaculty[1]
	if droit.Faculty != "Droit" || droit.Rate != 50 || sciences.Faculty != "Sciences" || sciences.Rate != 100 {
		t.Fatalf("by faculty = %+v", stats.ByFaculty)
	}

	voted := true
	list, total, err := env.svc.Voters.List(ctx, models.VoterFilter{HasVoted: &voted})
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("voted list = %d/%d, %v", len(list), total, err)
	}
}

func TestVoterTurnoutFollowsValidBallotsInSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.open(t)
	c := env.candidate(t, models.OfficePresident)

	a, b := env.voter(t), env.voter(t)
	env.voter(t)
	env.cast(t, a, models.Selections{models.OfficePresident: c.ID})
	spoiled := env.cast(t, b, models.Selections{models.OfficePresident: c.ID})
	if ok, err := env.svc.Ballots.Invalidate(ctx, spoiled.ID, "duplicate identity", 1); err != nil || !ok {
		t.Fatalf("invalidate = %v, %v", ok, err)
	}

	agree := func(t *testing.T, session string, want int64) {
		t.Helper()
		stats, err := env.svc.Voters.Stats(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		voted, notVoted := true, false
		_, votedTotal, err := env.svc.Voters.List(ctx, models.VoterFilter{HasVoted: &voted})
		if err != nil {
			t.Fatalf("voted list: %v", err)
		}
		_, notVotedTotal, err := env.svc.Voters.List(ctx, models.VoterFilter{HasVoted: &notVoted})
		if err != nil {
			t.Fatalf("not voted list: %v", err)
		}
		p, err := env.svc.Results.Participation(ctx, session)
		if err != nil {
			t.Fatalf("participation: %v", err)
		}
		if stats.Voted != want || votedTotal != want || notVotedTotal != 3-want || p.Voted != want {
			t.Fatalf("session %s: stats=%d list=%d/%d participation=%d, want %d",
				session, stats.Voted, votedTotal, notVotedTotal, p.Voted, want)
		}
	}

	agree(t, "2024", 1)
	if got, err := env.svc.Voters.Get(ctx, b.ID); err != nil || got.HasVoted {
		t.Fatalf("invalidated voter = %+v, %v", got, err)
	}

	if _, err := env.svc.Election.SetSessionOverride(ctx, "2025", 1); err != nil {
		t.Fatalf("override: %v", err)
	}
	agree(t, "2025", 0)
	if got, err := env.svc.Voters.Get(ctx, a.ID); err != nil || got.HasVoted {
		t.Fatalf("voter in new session = %+v, %v", got, err)
	}

	env.cast(t, a, models.Selections{models.OfficePresident: c.ID})
	agree(t, "2025", 1)
}
