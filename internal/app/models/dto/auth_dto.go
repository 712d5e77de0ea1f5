package dto

import (
	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/auth"
)

// VoterRegisterRequest is a voter self-registration
type VoterRegisterRequest struct {
	Matricule string `json:"matricule" binding:"required,matricule" example:"20231.1.00042"`
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	Faculty   string `json:"faculty" binding:"omitempty,max=100"`
	Promotion string `json:"promotion" binding:"omitempty,max=50"`
	Password  string `json:"password" binding:"required,min=6"`
}

// VoterLoginRequest authenticates a voter by matricule
type VoterLoginRequest struct {
	Matricule string `json:"matricule" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

// CandidateLoginRequest authenticates a candidate by candidate number
type CandidateLoginRequest struct {
	CandidateNumber string `json:"candidateNumber" binding:"required" example:"C0042"`
	Password        string `json:"password" binding:"required"`
}

// AdminLoginRequest authenticates an administrator
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token       TokenResponse   `json:"token"`
	UserID      int64           `json:"userId"`
	Role        models.RoleType `json:"role"`
	DisplayName string          `json:"displayName"`
}

// NewAuthResponse builds the login payload from a token pair
func NewAuthResponse(pair *auth.TokenPair, userID int64, role models.RoleType, name string) AuthResponse {
	return AuthResponse{
		Token: TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             pair.ExpiresIn,
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: pair.RefreshExpiresIn,
		},
		UserID:      userID,
		Role:        role,
		DisplayName: name,
	}
}

// CreateAdminRequest creates an administrator account
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=admin super_admin"`
}
