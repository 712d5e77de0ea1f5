package models

import "time"

// CandidateStatus is the approval state of a candidate application.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateApproved CandidateStatus = "approved"
	CandidateRejected CandidateStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s CandidateStatus) Valid() bool {
	return s == CandidatePending || s == CandidateApproved || s == CandidateRejected
}

// Candidate represents a registered applicant for exactly one office.
type Candidate struct {
	ID              int64           `json:"id" db:"id" example:"3"`
	Matricule       string          `json:"matricule" db:"matricule" example:"20231.1.00042"`
	FirstName       string          `json:"firstName" db:"first_name" example:"Amani"`
	LastName        string          `json:"lastName" db:"last_name" example:"Kabila"`
	Email           string          `json:"email" db:"email"`
	Phone           string          `json:"phone,omitempty" db:"phone"`
	Faculty         string          `json:"faculty,omitempty" db:"faculty"`
	Promotion       string          `json:"promotion,omitempty" db:"promotion"`
	Office          Office          `json:"office" db:"office" example:"president"`
	Biography       string          `json:"biography,omitempty" db:"biography"`
	Program         string          `json:"program,omitempty" db:"program"`
	PhotoURL        *string         `json:"photoUrl,omitempty" db:"photo_url"`
	Status          CandidateStatus `json:"status" db:"status" example:"pending"`
	RejectionReason *string         `json:"rejectionReason,omitempty" db:"rejection_reason"`
	IsActive        bool            `json:"isActive" db:"is_active"`
	VoteCount       int64           `json:"voteCount" db:"vote_count"` // denormalized, rebuilt by recount
	CandidateNumber string          `json:"candidateNumber" db:"candidate_number" example:"C0042"`
	PasswordHash    string          `json:"-" db:"password_hash"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty" db:"reviewed_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// Eligible reports whether the candidate may receive and display votes.
func (c *Candidate) Eligible() bool {
	return c.Status == CandidateApproved && c.IsActive
}

// FullName returns "First Last".
func (c *Candidate) FullName() string {
	return c.FirstName + " " + c.LastName
}

// CandidateFilter narrows candidate listings.
type CandidateFilter struct {
	Status *CandidateStatus
	Office *Office
	Search string
	Offset int
	Limit  int
}

// CandidateStats summarizes applications by status and office.
type CandidateStats struct {
	Total    int64                     `json:"total"`
	ByStatus map[CandidateStatus]int64 `json:"byStatus"`
	ByOffice map[Office]int64          `json:"byOffice"`
}
