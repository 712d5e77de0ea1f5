package dto

import "github.com/yigit/univote/internal/app/models"

// UpdateVoterProfileRequest changes the caller's contact details. Omitted
// fields are left untouched.
type UpdateVoterProfileRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
	Faculty   *string `json:"faculty" binding:"omitempty,max=100"`
	Promotion *string `json:"promotion" binding:"omitempty,max=50"`
}

// ToModel converts the request to a profile update
func (r UpdateVoterProfileRequest) ToModel() models.VoterProfileUpdate {
	return models.VoterProfileUpdate{
		Email:     r.Email,
		Phone:     r.Phone,
		Faculty:   r.Faculty,
		Promotion: r.Promotion,
	}
}
