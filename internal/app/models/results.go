package models

import "time"

// RankedCandidate is one row of a per-office tally.
type RankedCandidate struct {
	CandidateID int64 `json:"candidateId"`
	Votes       int64 `json:"votes"`
}

// DailyCount is the number of ballots cast on one calendar date (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date" example:"2024-03-14"`
	Count int64  `json:"count"`
}

// HourlyCount is the number of ballots cast during one hour of day.
type HourlyCount struct {
	Hour  int   `json:"hour" example:"14"`
	Count int64 `json:"count"`
}

// GeneralStats is the cross-office summary of a session.
type GeneralStats struct {
	TotalVotes int64        `json:"totalVotes"`
	Daily      []DailyCount `json:"daily"`
}

// CandidateSummary is the display identity attached to a result entry.
// Unknown is set when the candidate could not be resolved.
type CandidateSummary struct {
	ID              int64   `json:"id"`
	FirstName       string  `json:"firstName,omitempty"`
	LastName        string  `json:"lastName"`
	Office          Office  `json:"office,omitempty"`
	PhotoURL        *string `json:"photoUrl,omitempty"`
	Biography       string  `json:"biography,omitempty"`
	CandidateNumber string  `json:"candidateNumber,omitempty"`
	Unknown         bool    `json:"unknown,omitempty"`
}

// ResultEntry is a ranked candidate joined with display data.
type ResultEntry struct {
	Candidate  CandidateSummary `json:"candidate"`
	Votes      int64            `json:"votes"`
	Percentage float64          `json:"percentage"`
}

// OfficeResult is the presented ranking of one office.
type OfficeResult struct {
	Office     Office        `json:"office"`
	Label      string        `json:"label"`
	TotalVotes int64         `json:"totalVotes"`
	Entries    []ResultEntry `json:"entries"`
}

// ElectionResults is the full presented result set.
type ElectionResults struct {
	SessionID   string         `json:"sessionId,omitempty"`
	Offices     []OfficeResult `json:"offices"`
	Stats       GeneralStats   `json:"stats"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// ParticipationStats describes turnout for a session.
type ParticipationStats struct {
	SessionID        string        `json:"sessionId,omitempty"`
	RegisteredVoters int64         `json:"registeredVoters"`
	Voted            int64         `json:"voted"`
	Rate             float64       `json:"rate"`
	TotalBallots     int64         `json:"totalBallots"`
	Hourly           []HourlyCount `json:"hourly"`
	Daily            []DailyCount  `json:"daily"`
}

// Dashboard is the admin overview of the current session.
type Dashboard struct {
	SessionID         string             `json:"sessionId"`
	VotingOpen        bool               `json:"votingOpen"`
	Voters            int64              `json:"voters"`
	Candidates        CandidateStats     `json:"candidates"`
	Participation     ParticipationStats `json:"participation"`
	Leaders           []OfficeResult     `json:"leaders"`
	RecentBallots     []*Ballot          `json:"recentBallots"`
	PendingCandidates []*Candidate       `json:"pendingCandidates"`
}
