package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/middleware"
)

// AuthController handles registration and login for every account kind
type AuthController struct {
	authService  services.AuthService
	voterService services.VoterService
	logger       zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService, voterService services.VoterService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService:  authService,
		voterService: voterService,
		logger:       logger,
	}
}

// RegisterVoter handles voter self-registration
// @Summary Register a voter
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VoterRegisterRequest true "Voter registration"
// @Success 201 {object} dto.APIResponse{data=models.Voter}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Matricule or email already registered"
// @Router /auth/voters/register [post]
func (c *AuthController) RegisterVoter(ctx *gin.Context) {
	var req dto.VoterRegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid voter registration payload")
		middleware.HandleBindError(ctx, err)
		return
	}

	voter, err := c.voterService.Register(ctx.Request.Context(), services.RegisterVoterRequest{
		Matricule: req.Matricule,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Faculty:   req.Faculty,
		Promotion: req.Promotion,
		Password:  req.Password,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("voterID", voter.ID).Str("matricule", voter.Matricule).Msg("Voter registered")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(voter, "Registration successful"))
}

// LoginVoter authenticates a voter by matricule
// @Summary Voter login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VoterLoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Account disabled"
// @Router /auth/voters/login [post]
func (c *AuthController) LoginVoter(ctx *gin.Context) {
	var req dto.VoterLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.authService.LoginVoter(ctx.Request.Context(), req.Matricule, req.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("matricule", req.Matricule).Msg("Voter login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondSession(ctx, session)
}

// LoginCandidate authenticates an approved candidate by candidate number
// @Summary Candidate login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.CandidateLoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Router /auth/candidates/login [post]
func (c *AuthController) LoginCandidate(ctx *gin.Context) {
	var req dto.CandidateLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.authService.LoginCandidate(ctx.Request.Context(), req.CandidateNumber, req.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("candidateNumber", req.CandidateNumber).Msg("Candidate login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondSession(ctx, session)
}

// LoginAdmin authenticates an administrator
// @Summary Admin login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.AdminLoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Router /auth/admins/login [post]
func (c *AuthController) LoginAdmin(ctx *gin.Context) {
	var req dto.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.authService.LoginAdmin(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Admin login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondSession(ctx, session)
}

// RefreshToken exchanges a refresh token for a new token pair
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	session, err := c.authService.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Refresh token failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.respondSession(ctx, session)
}

func (c *AuthController) respondSession(ctx *gin.Context, s *services.Session) {
	c.logger.Info().Int64("userID", s.UserID).Str("role", string(s.Role)).Msg("Token pair issued")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(
		dto.NewAuthResponse(s.Tokens, s.UserID, s.Role, s.DisplayName), ""))
}
