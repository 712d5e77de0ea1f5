package models

import (
	"regexp"
	"time"
)

// matriculePattern is the institutional student number, e.g. 12345.6.12345.
var matriculePattern = regexp.MustCompile(`^\d{5}\.\d\.\d{5}$`)

// ValidMatricule reports whether s is a well-formed matricule.
func ValidMatricule(s string) bool {
	return matriculePattern.MatchString(s)
}

// Voter is one registrant, keyed by the institutional matricule.
type Voter struct {
	ID           int64     `json:"id" db:"id" example:"12"`
	Matricule    string    `json:"matricule" db:"matricule" example:"20231.1.00042"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Faculty      string    `json:"faculty,omitempty" db:"faculty"`
	Promotion    string    `json:"promotion,omitempty" db:"promotion"`
	PasswordHash string    `json:"-" db:"password_hash"`
	HasVoted     bool      `json:"hasVoted" db:"has_voted"` // derived from ballots
	IsActive     bool      `json:"isActive" db:"is_active"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// VoterFilter narrows voter listings.
type VoterFilter struct {
	Search   string
	HasVoted *bool
	// SessionID scopes HasVoted and the listed has-voted flag; empty means
	// any session.
	SessionID string
	Faculty   string
	Offset    int
	Limit     int
}

// VoterProfileUpdate holds the fields a voter may change about themselves.
// Nil fields are left untouched.
type VoterProfileUpdate struct {
	Email     *string
	Phone     *string
	Faculty   *string
	Promotion *string
}

// FacultyParticipation is one row of the by-faculty voter statistics.
type FacultyParticipation struct {
	Faculty string  `json:"faculty"`
	Total   int64   `json:"total"`
	Voted   int64   `json:"voted"`
	Rate    float64 `json:"rate"`
}

// VoterStats is the registry-wide turnout summary.
type VoterStats struct {
	Total     int64                  `json:"total"`
	Voted     int64                  `json:"voted"`
	Rate      float64                `json:"rate"`
	ByFaculty []FacultyParticipation `json:"byFaculty"`
}
