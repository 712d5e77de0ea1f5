// Package controllers handles HTTP request handling
package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yigit/univote/internal/app/models/dto"
	"github.com/yigit/univote/internal/middleware"
)

// CurrentSessionParam selects the current session in a session query parameter.
const CurrentSessionParam = "current"

// sessionResolver is the part of the election service the controllers need to
// expand the "current" session keyword.
type sessionResolver interface {
	CurrentSessionID(ctx context.Context) (string, error)
}

// resolveSession reads the session query parameter. Empty means every
// session; "current" is replaced with the current session id.
func resolveSession(ctx *gin.Context, election sessionResolver) (string, error) {
	session := ctx.Query("session")
	if session != CurrentSessionParam {
		return session, nil
	}
	return election.CurrentSessionID(ctx.Request.Context())
}

// parseIDParam reads a positive int64 path parameter, answering 400 when it is malformed.
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails(name + " must be a positive number")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// currentUserID returns the authenticated caller, answering 401 when the
// request did not pass through JWTAuth.
func currentUserID(ctx *gin.Context) (int64, bool) {
	id, ok := middleware.GetUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// parseBoolQuery returns nil when the parameter is absent or not a boolean.
func parseBoolQuery(ctx *gin.Context, name string) *bool {
	raw, ok := ctx.GetQuery(name)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
