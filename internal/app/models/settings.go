package models

import "time"

// ElectionSettings is the single persisted row owning the open/closed flag
// and an optional session override.
type ElectionSettings struct {
	VotingOpen      bool      `json:"votingOpen" db:"voting_open"`
	SessionOverride string    `json:"sessionOverride,omitempty" db:"session_override"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
	UpdatedBy       *int64    `json:"updatedBy,omitempty" db:"updated_by"`
}

// ElectionStatus is the public view of the election state.
type ElectionStatus struct {
	SessionID  string    `json:"sessionId" example:"2024"`
	VotingOpen bool      `json:"votingOpen"`
	Timezone   string    `json:"timezone" example:"Africa/Kinshasa"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
