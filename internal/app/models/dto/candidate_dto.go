package dto

import (
	"time"

	"github.com/yigit/univote/internal/app/models"
)

// CandidateApplyRequest is a public candidate application
type CandidateApplyRequest struct {
	Matricule string `json:"matricule" binding:"required,matricule"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	Faculty   string `json:"faculty" binding:"omitempty,max=100"`
	Promotion string `json:"promotion" binding:"omitempty,max=50"`
	Office    string `json:"office" binding:"required,office" example:"president"`
	Biography string `json:"biography" binding:"required"`
	Program   string `json:"program" binding:"omitempty,max=5000"`
}

// ApplicationResponse returns the generated credentials exactly once
type ApplicationResponse struct {
	Candidate       *models.Candidate `json:"candidate"`
	CandidateNumber string            `json:"candidateNumber" example:"C0042"`
	Password        string            `json:"password" example:"K7PMXQ2A"`
}

// RejectCandidateRequest carries the rejection reason
type RejectCandidateRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// SetActiveRequest toggles an account
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// PublicCandidate is the candidate view shown to voters
type PublicCandidate struct {
	ID              int64         `json:"id"`
	CandidateNumber string        `json:"candidateNumber"`
	FirstName       string        `json:"firstName"`
	LastName        string        `json:"lastName"`
	Faculty         string        `json:"faculty,omitempty"`
	Promotion       string        `json:"promotion,omitempty"`
	Office          models.Office `json:"office"`
	OfficeLabel     string        `json:"officeLabel"`
	Biography       string        `json:"biography,omitempty"`
	Program         string        `json:"program,omitempty"`
	PhotoURL        *string       `json:"photoUrl,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// NewPublicCandidate strips contact and review data from a candidate
func NewPublicCandidate(c *models.Candidate) PublicCandidate {
	return PublicCandidate{
		ID:              c.ID,
		CandidateNumber: c.CandidateNumber,
		FirstName:       c.FirstName,
		LastName:        c.LastName,
		Faculty:         c.Faculty,
		Promotion:       c.Promotion,
		Office:          c.Office,
		OfficeLabel:     c.Office.Label(),
		Biography:       c.Biography,
		Program:         c.Program,
		PhotoURL:        c.PhotoURL,
		CreatedAt:       c.CreatedAt,
	}
}

// NewPublicCandidates maps a slice
func NewPublicCandidates(cs []*models.Candidate) []PublicCandidate {
	out := make([]PublicCandidate, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewPublicCandidate(c))
	}
	return out
}
