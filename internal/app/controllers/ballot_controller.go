package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/middleware"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

// BallotController handles ballot casting for voters
type BallotController struct {
	ballotService services.BallotService
	logger        zerolog.Logger
}

// NewBallotController creates a new BallotController
func NewBallotController(ballotService services.BallotService, logger zerolog.Logger) *BallotController {
	return &BallotController{
		ballotService: ballotService,
		logger:        logger,
	}
}

// Cast records the caller's ballot in the current session
// @Summary Cast a ballot
// @Description Offices may be left blank. One ballot per voter per session.
// @Tags ballots
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CastBallotRequest true "Selections by office"
// @Success 201 {object} dto.APIResponse{data=dto.BallotReceipt}
// @Failure 403 {object} dto.APIResponse "Voting closed"
// @Failure 409 {object} dto.APIResponse "Already voted"
// @Failure 422 {object} dto.APIResponse "Ineligible candidate"
// @Router /ballots [post]
func (c *BallotController) Cast(ctx *gin.Context) {
	voterID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req dto.CastBallotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	selections, err := req.ToSelections()
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("selections", err.Error()))
		return
	}

	ballot, err := c.ballotService.Cast(ctx.Request.Context(), services.CastRequest{
		VoterID:    voterID,
		Selections: selections,
		IPAddress:  ctx.ClientIP(),
		UserAgent:  ctx.Request.UserAgent(),
	})
	if err != nil {
		c.logger.Info().Err(err).Int64("voterID", voterID).Msg("Ballot rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewBallotReceipt(ballot), "Ballot recorded"))
}

// Status tells the caller whether they already voted in the current session
func (c *BallotController) Status(ctx *gin.Context) {
	voterID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	status, err := c.ballotService.Status(ctx.Request.Context(), voterID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(status, ""))
}
