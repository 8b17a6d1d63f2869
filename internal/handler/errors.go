package handler

import (
	"errors"
	"net/http"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// errorStatus maps a domain error to a status code and a message that is safe
// to show to the client.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, service.ErrEmptyTitle):
		return http.StatusBadRequest, "title is required"
	case errors.Is(err, service.ErrInvalidGraph):
		return http.StatusBadRequest, "invalid workflow graph"
	case errors.Is(err, service.ErrEmptyWorkflow):
		return http.StatusBadRequest, "workflow has no nodes"
	case errors.Is(err, service.ErrInvalidStartDate):
		return http.StatusBadRequest, "startDate must be YYYY-MM-DD or RFC3339"
	case errors.Is(err, service.ErrInvalidOAuthState):
		return http.StatusBadRequest, "invalid or expired authorization state"
	case errors.Is(err, model.ErrNoCalendarToken):
		return http.StatusPreconditionFailed, service.FriendlyCalendarError(err)
	case errors.Is(err, service.ErrQuestionNotGenerated):
		return http.StatusConflict, "request the question before answering it"
	case errors.Is(err, service.ErrQuizUnavailable):
		return http.StatusBadGateway, "quiz question is unavailable right now, try again later"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded, try again in a few seconds"
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout, "upstream timeout"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError writes err as a model.ErrorResponse. Client errors carry the
// underlying message as details; server errors never do.
func respondError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	resp := model.ErrorResponse{Success: false, Error: msg}

	log := logger.FromGin(c)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Request rejected")
		if status == http.StatusBadRequest {
			resp.Details = err.Error()
		}
	}

	c.JSON(status, resp)
}

// respondBindError reports a payload that failed binding.
func respondBindError(c *gin.Context, err error) {
	logger.FromGin(c).Warn().Err(err).Msg("Invalid payload")
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Error:   "invalid payload",
		Details: err.Error(),
	})
}

// pathID reads a UUID path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !middleware.ValidateID(id) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "invalid " + name,
		})
		return "", false
	}
	return id, true
}
