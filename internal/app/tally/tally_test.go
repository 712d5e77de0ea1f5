package tally

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yigit/univote/internal/app/models"
)

func sel(office models.Office, candidateID int64) models.Selection {
	return models.Selection{BallotID: uuid.New(), Office: office, CandidateID: candidateID}
}

func TestRankingSingleBallot(t *testing.T) {
	t.Parallel()

	tab := New()
	tab.Add(sel(models.OfficePresident, 1))

	rankings := tab.Rankings()
	got := rankings[models.OfficePresident]
	if len(got) != 1 || got[0].CandidateID != 1 || got[0].Votes != 1 {
		t.Fatalf("president ranking = %+v, want [{1 1}]", got)
	}
	for _, o := range models.AllOffices[1:] {
		if r := rankings[o]; r == nil || len(r) != 0 {
			t.Fatalf("%s ranking = %#v, want empty non-nil slice", o, r)
		}
	}
}

func TestRankingOrdersByVotesThenID(t *testing.T) {
	t.Parallel()

	tab := New()
	for _, id := range []int64{7, 3, 7, 5, 3, 9} {
		tab.Add(sel(models.OfficeTreasurer, id))
	}

	got := tab.Ranking(models.OfficeTreasurer)
	want := []models.RankedCandidate{{CandidateID: 3, Votes: 2}, {CandidateID: 7, Votes: 2}, {CandidateID: 5, Votes: 1}, {CandidateID: 9, Votes: 1}}
	if len(got) != len(want) {
		t.Fatalf("ranking = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranking[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if total := tab.OfficeTotal(models.OfficeTreasurer); total != 6 {
		t.Fatalf("office total = %d, want 6", total)
	}
}

func TestRankingIgnoresUnknownOffice(t *testing.T) {
	t.Parallel()

	tab := New()
	tab.Add(sel(models.Office("mayor"), 1))
	if ids := tab.CandidateIDs(); len(ids) != 0 {
		t.Fatalf("candidate ids = %v, want none", ids)
	}
}

func TestRankingsAreDeterministic(t *testing.T) {
	t.Parallel()

	build := func() []models.RankedCandidate {
		tab := New()
		for id := int64(1); id <= 50; id++ {
			tab.Add(sel(models.OfficeCouncilor, id))
		}
		return tab.Ranking(models.OfficeCouncilor)
	}
	first := build()
	for i := 0; i < 5; i++ {
		again := build()
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs at %d: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
	if first[0].CandidateID != 1 || first[49].CandidateID != 50 {
		t.Fatalf("tie order not ascending by id: first=%d last=%d", first[0].CandidateID, first[49].CandidateID)
	}
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		part, total int64
		want        float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := Percentage(tt.part, tt.total); got != tt.want {
			t.Fatalf("Percentage(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestParticipationRateNoVoters(t *testing.T) {
	t.Parallel()

	if got := ParticipationRate(0, 0); got != 0 {
		t.Fatalf("rate = %v, want 0", got)
	}
	if got := ParticipationRate(1, 4); got != 25 {
		t.Fatalf("rate = %v, want 25", got)
	}
}

func TestDistributionDailySortedAndMerged(t *testing.T) {
	t.Parallel()

	d := NewDistribution(time.UTC)
	stamps := []string{
		"2024-03-15T09:10:00Z",
		"2024-03-14T23:59:00Z",
		"2024-03-15T09:50:00Z",
		"2024-03-14T08:00:00Z",
		"2024-03-16T14:00:00Z",
	}
	for _, s := range stamps {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		d.Add(ts)
	}

	daily := d.Daily()
	want := []models.DailyCount{{Date: "2024-03-14", Count: 2}, {Date: "2024-03-15", Count: 2}, {Date: "2024-03-16", Count: 1}}
	if len(daily) != len(want) {
		t.Fatalf("daily = %+v, want %+v", daily, want)
	}
	for i := range want {
		if daily[i] != want[i] {
			t.Fatalf("daily[%d] = %+v, want %+v", i, daily[i], want[i])
		}
	}

	hourly := d.Hourly()
	wantHourly := []models.HourlyCount{{Hour: 8, Count: 1}, {Hour: 9, Count: 2}, {Hour: 14, Count: 1}, {Hour: 23, Count: 1}}
	if len(hourly) != len(wantHourly) {
		t.Fatalf("hourly = %+v, want %+v", hourly, wantHourly)
	}
	for i := range wantHourly {
		if hourly[i] != wantHourly[i] {
			t.Fatalf("hourly[%d] = %+v, want %+v", i, hourly[i], wantHourly[i])
		}
	}
	if d.Total() != 5 {
		t.Fatalf("total = %d, want 5", d.Total())
	}
}

func TestDistributionUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	d := NewDistribution(loc)
	d.Add(time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC))

	daily := d.Daily()
	if len(daily) != 1 || daily[0].Date != "2024-03-15" {
		t.Fatalf("daily = %+v, want single 2024-03-15 bucket", daily)
	}
	hourly := d.Hourly()
	if len(hourly) != 1 || hourly[0].Hour != 1 {
		t.Fatalf("hourly = %+v, want hour 1", hourly)
	}
}

func TestDistributionEmpty(t *testing.T) {
	t.Parallel()

	d := NewDistribution(nil)
	if got := d.Daily(); got == nil || len(got) != 0 {
		t.Fatalf("daily = %#v, want empty slice", got)
	}
	if got := d.Hourly(); got == nil || len(got) != 0 {
		t.Fatalf("hourly = %#v, want empty slice", got)
	}
}
