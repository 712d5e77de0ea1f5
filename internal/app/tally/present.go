package tally

import "github.com/yigit/univote/internal/app/models"

// UnknownCandidateName is shown for result entries whose candidate no longer exists.
const UnknownCandidateName = "Candidat inconnu"

// Present joins a ranking with candidate display data and computes each
// entry's share of the office total. Candidates missing from lookup get a
// placeholder identity instead of failing the whole result.
func Present(office models.Office, ranking []models.RankedCandidate, lookup map[int64]*models.Candidate) models.OfficeResult {
	var total int64
	for _, r := range ranking {
		total += r.Votes
	}

	entries := make([]models.ResultEntry, 0, len(ranking))
	for _, r := range ranking {
		entries = append(entries, models.ResultEntry{
			Candidate:  summarize(r.CandidateID, lookup[r.CandidateID]),
			Votes:      r.Votes,
			Percentage: Percentage(r.Votes, total),
		})
	}

	return models.OfficeResult{
		Office:     office,
		Label:      office.Label(),
		TotalVotes: total,
		Entries:    entries,
	}
}

func summarize(id int64, c *models.Candidate) models.CandidateSummary {
	if c == nil {
		return models.CandidateSummary{ID: id, LastName: UnknownCandidateName, Unknown: true}
	}
	return models.CandidateSummary{
		ID:              c.ID,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Office:          c.Office,
		PhotoURL:        c.PhotoURL,
		Biography:       c.Biography,
		CandidateNumber: c.CandidateNumber,
	}
}
