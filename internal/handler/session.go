package handler

import (
	"net/http"

	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the user resolved from the session token
type SessionHandler struct{}

// NewSessionHandler creates a new session handler
func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// GetCurrentUser returns information about the currently authenticated user
// @Summary      Current user
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      401 {object} model.ErrorResponse
// @Router       /api/me [get]
func (h *SessionHandler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"user_id":  middleware.UserID(c),
			"username": middleware.Username(c),
		},
	})
}
