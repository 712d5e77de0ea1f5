package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/middleware"
	"github.com/yigit/univote/internal/pkg/helpers"
)

// VoterController handles voter profiles and the admin voter registry
type VoterController struct {
	voterService services.VoterService
}

// NewVoterController creates a new VoterController
func NewVoterController(voterService services.VoterService) *VoterController {
	return &VoterController{voterService: voterService}
}

// Me returns the authenticated voter
func (c *VoterController) Me(ctx *gin.Context) {
	id, ok := currentUserID(ctx)
	if !ok {
		return
	}
	voter, err := c.voterService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(voter, ""))
}

// UpdateMe changes the authenticated voter's contact details
// @Summary Update voter profile
// @Tags voters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateVoterProfileRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Voter}
// @Router /voters/me [put]
func (c *VoterController) UpdateMe(ctx *gin.Context) {
	id, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateVoterProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	voter, err := c.voterService.UpdateProfile(ctx.Request.Context(), id, req.ToModel())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(voter, "Profile updated"))
}

// List returns a page of voters
// @Summary List voters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, matricule or email"
// @Param hasVoted query bool false "Only voters who did (or did not) vote"
// @Param faculty query string false "Faculty"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /admin/voters [get]
func (c *VoterController) List(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	voters, total, err := c.voterService.List(ctx.Request.Context(), models.VoterFilter{
		Search:   ctx.Query("search"),
		HasVoted: parseBoolQuery(ctx, "hasVoted"),
		Faculty:  ctx.Query("faculty"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(helpers.NewPaginatedResponse(voters, total, page, size), ""))
}

// Stats returns turnout overall and by faculty
func (c *VoterController) Stats(ctx *gin.Context) {
	stats, err := c.voterService.Stats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// Deactivate blocks a voter from logging in and voting
func (c *VoterController) Deactivate(ctx *gin.Context) {
	c.setActive(ctx, false)
}

// Activate re-enables a deactivated voter
func (c *VoterController) Activate(ctx *gin.Context) {
	c.setActive(ctx, true)
}

func (c *VoterController) setActive(ctx *gin.Context, active bool) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.voterService.SetActive(ctx.Request.Context(), id, active, adminID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"id": id, "active": active}, ""))
}
