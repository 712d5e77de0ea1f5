package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/middleware"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/helpers"
)

// AdminController handles election administration
type AdminController struct {
	resultsService  services.ResultsService
	ballotService   services.BallotService
	electionService services.ElectionService
	exportService   services.ExportService
	adminService    services.AdminService
	logger          zerolog.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(svc *services.Services, logger zerolog.Logger) *AdminController {
	return &AdminController{
		resultsService:  svc.Results,
		ballotService:   svc.Ballots,
		electionService: svc.Election,
		exportService:   svc.Export,
		adminService:    svc.Admins,
		logger:          logger,
	}
}

// Dashboard returns the overview of the current session
// @Summary Admin dashboard
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Dashboard}
// @Router /admin/dashboard [get]
func (c *AdminController) Dashboard(ctx *gin.Context) {
	dashboard, err := c.resultsService.Dashboard(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dashboard, ""))
}

// Participation returns turnout with hourly and daily distributions
func (c *AdminController) Participation(ctx *gin.Context) {
	session, err := resolveSession(ctx, c.electionService)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	stats, err := c.resultsService.Participation(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}

// BallotHistory lists ballots, newest first
// @Summary Ballot history
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param session query string false "Session id or \"current\""
// @Param from query string false "Start, YYYY-MM-DD or RFC 3339"
// @Param to query string false "End, YYYY-MM-DD or RFC 3339"
// @Param voterId query int false "Voter id"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse}
// @Router /admin/ballots [get]
func (c *AdminController) BallotHistory(ctx *gin.Context) {
	session, err := resolveSession(ctx, c.electionService)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	loc := c.electionService.Location()
	from, err := helpers.ParseTimeParam(ctx.Query("from"), loc, false)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("from", err.Error()))
		return
	}
	to, err := helpers.ParseTimeParam(ctx.Query("to"), loc, true)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("to", err.Error()))
		return
	}

	var voterID int64
	if raw := ctx.Query("voterId"); raw != "" {
		voterID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.HandleAPIError(ctx, apperrors.NewValidationError("voterId", "voterId must be a number"))
			return
		}
	}

	page, size := helpers.ParsePaginationParams(ctx)
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	ballots, total, err := c.ballotService.History(ctx.Request.Context(), models.BallotFilter{
		SessionID: session,
		From:      from,
		To:        to,
		VoterID:   voterID,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(helpers.NewPaginatedResponse(ballots, total, page, size), ""))
}

// InvalidateBallot excludes a ballot from every count
func (c *AdminController) InvalidateBallot(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("id", "ballot id must be a UUID"))
		return
	}

	var req dto.InvalidateBallotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	changed, err := c.ballotService.Invalidate(ctx.Request.Context(), id, req.Reason, adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	msg := "Ballot invalidated"
	if !changed {
		msg = "Ballot was already invalid"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"ballotId": id, "invalidated": changed}, msg))
}

// OpenVoting opens the election
func (c *AdminController) OpenVoting(ctx *gin.Context) {
	c.setVoting(ctx, true)
}

// CloseVoting closes the election
func (c *AdminController) CloseVoting(ctx *gin.Context) {
	c.setVoting(ctx, false)
}

func (c *AdminController) setVoting(ctx *gin.Context, open bool) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	settings, err := c.electionService.SetVotingOpen(ctx.Request.Context(), open, adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	msg := "Voting closed"
	if open {
		msg = "Voting opened"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, msg))
}

// SetSession pins the current session id, or clears the pin when empty
func (c *AdminController) SetSession(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.SessionOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	settings, err := c.electionService.SetSessionOverride(ctx.Request.Context(), req.SessionID, adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, "Session updated"))
}

// Recount rebuilds every candidate vote counter from the valid ballots
func (c *AdminController) Recount(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	changed, err := c.ballotService.Recount(ctx.Request.Context(), adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CountResponse{Count: changed}, "Recount complete"))
}

// Reset deletes every ballot and zeroes all counters
// @Summary Reset the election
// @Description Requires the configured confirmation phrase.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ResetRequest true "Confirmation"
// @Success 200 {object} dto.APIResponse{data=dto.CountResponse}
// @Failure 400 {object} dto.APIResponse "Confirmation phrase required"
// @Router /admin/election/reset [post]
func (c *AdminController) Reset(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.ResetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	deleted, err := c.ballotService.Reset(ctx.Request.Context(), req.Confirmation, adminID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CountResponse{Count: deleted}, "Election reset"))
}

// Export downloads election data
// @Summary Export election data
// @Tags admin
// @Produce json
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "json or csv" default(json)
// @Param dataset query string false "results, ballots, voters or candidates (csv only)" default(results)
// @Param session query string false "Session id or \"current\""
// @Success 200 {file} file
// @Router /admin/export [get]
func (c *AdminController) Export(ctx *gin.Context) {
	adminID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	session, err := resolveSession(ctx, c.electionService)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	req := services.ExportRequest{
		Format:    services.ExportFormat(ctx.Query("format")),
		Dataset:   services.ExportDataset(ctx.Query("dataset")),
		SessionID: session,
		ActorID:   adminID,
	}
	if err := services.ValidateExportRequest(&req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var buf bytes.Buffer
	if err := c.exportService.Export(ctx.Request.Context(), &buf, req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	contentType := "application/json"
	if req.Format == services.ExportCSV {
		contentType = "text/csv; charset=utf-8"
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName(req, time.Now())))
	ctx.Data(http.StatusOK, contentType, buf.Bytes())
}

func exportFileName(req services.ExportRequest, at time.Time) string {
	session := req.SessionID
	if session == "" {
		session = "all"
	}
	name := "univote-" + session
	if req.Format == services.ExportCSV {
		name += "-" + string(req.Dataset)
	}
	return fmt.Sprintf("%s-%s.%s", name, at.Format("20060102-150405"), req.Format)
}

// CreateAdmin adds an administrator account. Super admin only.
func (c *AdminController) CreateAdmin(ctx *gin.Context) {
	actorID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.CreateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	admin, err := c.adminService.Create(ctx.Request.Context(), services.CreateAdminRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.RoleType(req.Role),
	}, actorID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("adminID", admin.ID).Int64("createdBy", actorID).Msg("Admin account created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(admin, "Admin created"))
}
