package tally

import (
	"sort"
	"time"

	"github.com/yigit/univote/internal/app/models"
)

const dateLayout = "2006-01-02"

// Distribution buckets cast timestamps by calendar date and hour of day in a
// fixed location.
type Distribution struct {
	loc    *time.Location
	daily  map[string]int64
	hourly [24]int64
	total  int64
}

// NewDistribution returns an empty distribution. A nil location means UTC.
func NewDistribution(loc *time.Location) *Distribution {
	if loc == nil {
		loc = time.UTC
	}
	return &Distribution{loc: loc, daily: make(map[string]int64)}
}

// Add records one ballot cast at ts.
func (d *Distribution) Add(ts time.Time) {
	local := ts.In(d.loc)
	d.daily[local.Format(dateLayout)]++
	d.hourly[local.Hour()]++
	d.total++
}

// Total is the number of timestamps added.
func (d *Distribution) Total() int64 {
	return d.total
}

// Daily returns one entry per date, ascending. The layout sorts
// lexicographically in date order.
func (d *Distribution) Daily() []models.DailyCount {
	out := make([]models.DailyCount, 0, len(d.daily))
	for date, n := range d.daily {
		out = append(out, models.DailyCount{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Hourly returns the hours that received at least one ballot, ascending.
func (d *Distribution) Hourly() []models.HourlyCount {
	out := make([]models.HourlyCount, 0, 24)
	for h, n := range d.hourly {
		if n == 0 {
			continue
		}
		out = append(out, models.HourlyCount{Hour: h, Count: n})
	}
	return out
}

// ParticipationRate returns voted/registered as a percentage rounded to two
// decimals. No registered voters means a rate of 0.
func ParticipationRate(voted, registered int64) float64 {
	return Percentage(voted, registered)
}
