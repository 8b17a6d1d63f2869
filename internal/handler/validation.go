package handler

import (
	"context"
	"net/http"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// PathValidator resolves and records learning-path verdicts.
type PathValidator interface {
	ResolveValidation(ctx context.Context, fromTitle, toTitle string) (*service.ValidationOutcome, error)
	LinkEdges(ctx context.Context, userID, fromNodeID, toNodeID string, verdict model.ValidationVerdict) int64
}

// ValidationHandler handles learning-path validation requests
type ValidationHandler struct {
	validator PathValidator
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(validator PathValidator) *ValidationHandler {
	return &ValidationHandler{validator: validator}
}

// ValidatePath handles POST /api/validate-path
// @Summary      Validate learning path
// @Description  Judges whether studying fromTitle before toTitle is a sensible order
// @Tags         validation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body model.ValidatePathRequest true "Ordered pair"
// @Success      200 {object} model.ValidatePathResponse
// @Failure      400 {object} model.ErrorResponse
// @Failure      401 {object} model.ErrorResponse
// @Router       /api/validate-path [post]
func (h *ValidationHandler) ValidatePath(c *gin.Context) {
	var req model.ValidatePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.FromTitle = middleware.SanitizeTitle(req.FromTitle)
	req.ToTitle = middleware.SanitizeTitle(req.ToTitle)

	ctx := c.Request.Context()
	out, err := h.validator.ResolveValidation(ctx, req.FromTitle, req.ToTitle)
	if err != nil {
		respondError(c, err)
		return
	}

	source := metrics.SourceModel
	switch {
	case out.FromDatabase:
		source = metrics.SourceDatabase
	case out.FromCache:
		source = metrics.SourceCache
	}
	metrics.Get().IncrementValidation(source)

	userID := middleware.UserID(c)
	var linked int64
	if middleware.ValidateID(req.FromNodeID) && middleware.ValidateID(req.ToNodeID) {
		linked = h.validator.LinkEdges(ctx, userID, req.FromNodeID, req.ToNodeID, out.ValidationVerdict)
	}

	logger.Audit(ctx, logger.AuditEvent{
		Action:   logger.AuditActionPathValidate,
		UserID:   userID,
		Resource: "path",
		Success:  true,
		Details: map[string]interface{}{
			"from":          req.FromTitle,
			"to":            req.ToTitle,
			"is_valid":      out.IsValid,
			"source":        source,
			"edges_updated": linked,
		},
	})

	c.JSON(http.StatusOK, model.ValidatePathResponse{
		Success:        true,
		IsValid:        out.IsValid,
		Reason:         out.Reason,
		Recommendation: out.Recommendation,
		FromDatabase:   out.FromDatabase,
		FromCache:      out.FromCache,
	})
}
