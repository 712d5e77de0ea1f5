package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/middleware"
	"github.com/yigit/univote/internal/pkg/apperrors"
)

// ResultsController serves the public results and election state
type ResultsController struct {
	resultsService  services.ResultsService
	electionService services.ElectionService
}

// NewResultsController creates a new ResultsController
func NewResultsController(resultsService services.ResultsService, electionService services.ElectionService) *ResultsController {
	return &ResultsController{
		resultsService:  resultsService,
		electionService: electionService,
	}
}

// GetResults returns the ranking of every office
// @Summary Election results
// @Tags results
// @Produce json
// @Param session query string false "Session id, \"current\", or empty for every session"
// @Success 200 {object} dto.APIResponse{data=models.ElectionResults}
// @Router /results [get]
func (c *ResultsController) GetResults(ctx *gin.Context) {
	session, err := resolveSession(ctx, c.electionService)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	results, err := c.resultsService.Results(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(results, ""))
}

// GetOfficeResults returns the ranking of one office
// @Summary Office results
// @Tags results
// @Produce json
// @Param office path string true "Office key or label"
// @Param session query string false "Session id"
// @Success 200 {object} dto.APIResponse{data=models.OfficeResult}
// @Failure 400 {object} dto.APIResponse "Unknown office"
// @Router /results/offices/{office} [get]
func (c *ResultsController) GetOfficeResults(ctx *gin.Context) {
	office, err := models.ParseOffice(ctx.Param("office"))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("office", err.Error()))
		return
	}
	session, err := resolveSession(ctx, c.electionService)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	result, err := c.resultsService.OfficeResults(ctx.Request.Context(), office, session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}

// ElectionStatus reports the current session and whether voting is open
func (c *ResultsController) ElectionStatus(ctx *gin.Context) {
	status, err := c.electionService.Status(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(status, ""))
}

// Health is the liveness probe
func (c *ResultsController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	}, ""))
}
