package models

import (
	"time"

	"github.com/google/uuid"
)

// Selections maps an office to the chosen candidate id. Offices left blank on
// the ballot are simply absent from the map.
type Selections map[Office]int64

// CandidateIDs returns the distinct candidate ids referenced by the selections.
func (s Selections) CandidateIDs() []int64 {
	seen := make(map[int64]struct{}, len(s))
	ids := make([]int64, 0, len(s))
	for _, o := range AllOffices {
		id, ok := s[o]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Ballot is one voter's submitted selections for a single session.
type Ballot struct {
	ID            uuid.UUID  `json:"id" db:"id" example:"0b6f7f2c-4d9b-4c0e-9a8e-4c6cb1f0f5a1"`
	VoterID       int64      `json:"voterId" db:"voter_id" example:"12"`
	SessionID     string     `json:"sessionId" db:"session_id" example:"2024"`
	Selections    Selections `json:"selections"`
	CastAt        time.Time  `json:"castAt" db:"cast_at"`
	IPAddress     string     `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent     string     `json:"userAgent,omitempty" db:"user_agent"`
	IsValid       bool       `json:"isValid" db:"is_valid"`
	InvalidReason *string    `json:"invalidReason,omitempty" db:"invalid_reason"`
}

// Selection is one (ballot, office, candidate) row, the unit the tabulator consumes.
type Selection struct {
	BallotID    uuid.UUID
	Office      Office
	CandidateID int64
}

// BallotFilter narrows ballot history queries. Zero values mean "no filter".
type BallotFilter struct {
	SessionID string
	From      *time.Time
	To        *time.Time
	VoterID   int64
	Offset    int
	Limit     int
}

// BallotStatus tells a voter whether they already voted in the current session.
type BallotStatus struct {
	SessionID  string     `json:"sessionId"`
	HasVoted   bool       `json:"hasVoted"`
	CastAt     *time.Time `json:"castAt,omitempty"`
	VotingOpen bool       `json:"votingOpen"`
}
