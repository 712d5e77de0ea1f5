package tally

import (
	"testing"

	"github.com/yigit/univote/internal/app/models"
)

func TestPresentJoinsAndComputesPercentages(t *testing.T) {
	t.Parallel()

	photo := "/uploads/candidates/a.jpg"
	lookup := map[int64]*models.Candidate{
		1: {ID: 1, FirstName: "Amani", LastName: "Kabila", Office: models.OfficePresident, PhotoURL: &photo},
		2: {ID: 2, FirstName: "Grace", LastName: "Mbuyi", Office: models.OfficePresident},
	}
	ranking := []models.RankedCandidate{{CandidateID: 1, Votes: 2}, {CandidateID: 2, Votes: 1}}

	res := Present(models.OfficePresident, ranking, lookup)
	if res.TotalVotes != 3 {
		t.Fatalf("total = %d, want 3", res.TotalVotes)
	}
	if res.Label != "Président" {
		t.Fatalf("label = %q", res.Label)
	}
	if got := res.Entries[0]; got.Candidate.LastName != "Kabila" || got.Percentage != 66.67 {
		t.Fatalf("entry 0 = %+v", got)
	}
	if got := res.Entries[1]; got.Candidate.FirstName != "Grace" || got.Percentage != 33.33 {
		t.Fatalf("entry 1 = %+v", got)
	}
	if res.Entries[0].Candidate.PhotoURL == nil || *res.Entries[0].Candidate.PhotoURL != photo {
		t.Fatal("photo url not carried over")
	}
}

func TestPresentUnknownCandidate(t *testing.T) {
	t.Parallel()

	res := Present(models.OfficeAuditor, []models.RankedCandidate{{CandidateID: 42, Votes: 4}}, nil)
	if len(res.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(res.Entries))
	}
	got := res.Entries[0].Candidate
	if !got.Unknown || got.ID != 42 || got.LastName != UnknownCandidateName {
		t.Fatalf("placeholder = %+v", got)
	}
	if res.Entries[0].Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", res.Entries[0].Percentage)
	}
}

func TestPresentEmptyRanking(t *testing.T) {
	t.Parallel()

	res := Present(models.OfficeSecretary, []models.RankedCandidate{}, nil)
	if res.TotalVotes != 0 || res.Entries == nil || len(res.Entries) != 0 {
		t.Fatalf("result = %+v, want zero total and empty entries", res)
	}
}

func TestPresentZeroVotesGivesZeroPercent(t *testing.T) {
	t.Parallel()

	res := Present(models.OfficeSecretary, []models.RankedCandidate{{CandidateID: 1, Votes: 0}}, nil)
	if res.Entries[0].Percentage != 0 {
		t.Fatalf("percentage = %v, want 0", res.Entries[0].Percentage)
	}
}
