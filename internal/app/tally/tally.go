// Package tally turns raw ballot selections and cast timestamps into
// per-office rankings and time-bucketed distributions. It performs no I/O;
// the results service feeds it rows streamed from the ballot repository.
package tally

import (
	"math"
	"sort"

	"github.com/yigit/univote/internal/app/models"
)

// Tabulator accumulates selections and ranks candidates per office.
// The zero value is not usable; call New.
type Tabulator struct {
	counts map[models.Office]map[int64]int64
}

// New returns an empty Tabulator with a bucket for every office.
func New() *Tabulator {
	counts := make(map[models.Office]map[int64]int64, len(models.AllOffices))
	for _, o := range models.AllOffices {
		counts[o] = make(map[int64]int64)
	}
	return &Tabulator{counts: counts}
}

// Add counts one selection. Selections for offices outside the enumeration
// are ignored.
func (t *Tabulator) Add(sel models.Selection) {
	bucket, ok := t.counts[sel.Office]
	if !ok {
		return
	}
	bucket[sel.CandidateID]++
}

// Ranking returns the candidates of one office ordered by votes descending,
// then candidate id ascending. An office nobody voted for yields an empty,
// non-nil slice.
func (t *Tabulator) Ranking(office models.Office) []models.RankedCandidate {
	bucket := t.counts[office]
	ranked := make([]models.RankedCandidate, 0, len(bucket))
	for id, votes := range bucket {
		ranked = append(ranked, models.RankedCandidate{CandidateID: id, Votes: votes})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		return a.CandidateID < b.CandidateID
	})
	return ranked
}

// Rankings returns Ranking for every office.
func (t *Tabulator) Rankings() map[models.Office][]models.RankedCandidate {
	out := make(map[models.Office][]models.RankedCandidate, len(models.AllOffices))
	for _, o := range models.AllOffices {
		out[o] = t.Ranking(o)
	}
	return out
}

// OfficeTotal is the number of ballots carrying a selection for office.
func (t *Tabulator) OfficeTotal(office models.Office) int64 {
	var total int64
	for _, v := range t.counts[office] {
		total += v
	}
	return total
}

// CandidateIDs returns every candidate id seen, ascending.
func (t *Tabulator) CandidateIDs() []int64 {
	seen := make(map[int64]struct{})
	for _, bucket := range t.counts {
		for id := range bucket {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Percentage returns part/total*100 rounded to two decimals, and 0 when
// total is zero.
func Percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
