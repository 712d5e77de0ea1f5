package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/middleware"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/helpers"
)

// CandidateController handles candidate applications, profiles and review
type CandidateController struct {
	candidateService services.CandidateService
	logger           zerolog.Logger
}

// NewCandidateController creates a new CandidateController
func NewCandidateController(candidateService services.CandidateService, logger zerolog.Logger) *CandidateController {
	return &CandidateController{
		candidateService: candidateService,
		logger:           logger,
	}
}

// Apply registers a candidate application and returns its one-time credentials
// @Summary Apply as a candidate
// @Description The generated password is only returned in this response.
// @Tags candidates
// @Accept json
// @Produce json
// @Param request body dto.CandidateApplyRequest true "Application"
// @Success 201 {object} dto.APIResponse{data=dto.ApplicationResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Matricule already applied"
// @Router /candidates/apply [post]
func (c *CandidateController) Apply(ctx *gin.Context) {
	var req dto.CandidateApplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid candidate application payload")
		middleware.HandleBindError(ctx, err)
		return
	}
	office, err := models.ParseOffice(req.Office)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("office", err.Error()))
		return
	}

	app, err := c.candidateService.Apply(ctx.Request.Context(), services.ApplyRequest{
		Matricule: req.Matricule,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Faculty:   req.Faculty,
		Promotion: req.Promotion,
		Office:    office,
		Biography: req.Biography,
		Program:   req.Program,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("candidateID", app.Candidate.ID).
		Str("office", string(office)).
		Msg("Candidate application received")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.ApplicationResponse{
		Candidate:       app.Candidate,
		CandidateNumber: app.Candidate.CandidateNumber,
		Password:        app.Password,
	}, "Application submitted"))
}

// ListByOffice returns the approved, active candidates of one office
// @Summary Candidates for an office
// @Tags candidates
// @Produce json
// @Param office path string true "Office key or label"
// @Success 200 {object} dto.APIResponse{data=[]dto.PublicCandidate}
// @Router /candidates/office/{office} [get]
func (c *CandidateController) ListByOffice(ctx *gin.Context) {
	office, err := models.ParseOffice(ctx.Param("office"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("office", err.Error()))
		return
	}

	candidates, err := c.candidateService.ListApprovedByOffice(ctx.Request.Context(), office)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewPublicCandidates(candidates), ""))
}

// Me returns the authenticated candidate's application
func (c *CandidateController) Me(ctx *gin.Context) {
	id, ok := currentUserID(ctx)
	if !ok {
		return
	}
	candidate, err := c.candidateService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(candidate, ""))
}

// UploadPhoto replaces the authenticated candidate's photo
// @Summary Upload candidate photo
// @Tags candidates
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param photo formData file true "JPEG, PNG, GIF or WebP image, at most 5 MB"
// @Success 200 {object} dto.APIResponse{data=models.Candidate}
// @Router /candidates/me/photo [post]
func (c *CandidateController) UploadPhoto(ctx *gin.Context) {
	id, ok := currentUserID(ctx)
	if !ok {
		return
	}

	photo, err := ctx.FormFile("photo")
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("photo", "a photo file is required"))
		return
	}

	candidate, err := c.candidateService.UploadPhoto(ctx.Request.Context(), id, photo)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(candidate, "Photo updated"))
}

// List returns a page of candidates for review
// @Summary List candidates
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param office query string false "Office key"
// @Param search query string false "Name, matricule or email"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /admin/candidates [get]
func (c *CandidateController) List(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	filter := models.CandidateFilter{
		Search: ctx.Query("search"),
		Offset: offset,
		Limit:  limit,
	}

	if raw := ctx.Query("status"); raw != "" {
		status := models.CandidateStatus(raw)
		if !status.Valid() {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("status", "status must be pending, approved or rejected"))
			return
		}
		filter.Status = &status
	}
	if raw := ctx.Query("office"); raw != "" {
		office, err := models.ParseOffice(raw)
		if err != nil {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("office", err.Error()))
			return
		}
		filter.Office = &office
	}

	candidates, total, err := c.candidateService.List(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(helpers.NewPaginatedResponse(candidates, total, page, size), ""))
}

// Stats summarizes applications by status and office
func (c *CandidateController) Stats(ctx *gin.Context) {
	stats, err := c.candidateService.Stats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// Approve marks a pending application approved
func (c *CandidateController) Approve(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	candidate, err := c.candidateService.Approve(ctx.Request.Context(), id, adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(candidate, "Candidate approved"))
}

// Reject marks a pending application rejected with a reason
func (c *CandidateController) Reject(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.RejectCandidateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	candidate, err := c.candidateService.Reject(ctx.Request.Context(), id, req.Reason, adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(candidate, "Candidate rejected"))
}

// SetActive enables or disables an approved candidate
func (c *CandidateController) SetActive(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.candidateService.SetActive(ctx.Request.Context(), id, *req.Active, adminID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"id": id, "active": *req.Active}, ""))
}

// Delete removes a candidate. Ballots that named them keep counting under a placeholder.
func (c *CandidateController) Delete(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.candidateService.Delete(ctx.Request.Context(), id, adminID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
