package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/gin-gonic/gin"
)

// CalendarAuth runs the Google Calendar consent flow.
type CalendarAuth interface {
	AuthURL(userID string) string
	HandleCallback(ctx context.Context, state, code string) (string, error)
}

// CalendarHandler handles Google Calendar linking
type CalendarHandler struct {
	auth        CalendarAuth
	frontendURL string
}

// NewCalendarHandler creates a new calendar handler. auth may be nil when
// OAuth is not configured.
func NewCalendarHandler(auth CalendarAuth, frontendURL string) *CalendarHandler {
	return &CalendarHandler{
		auth:        auth,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// AuthURL handles GET /api/calendar/auth-url
// @Summary      Calendar consent URL
// @Tags         calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Failure      503 {object} model.ErrorResponse
// @Router       /api/calendar/auth-url [get]
func (h *CalendarHandler) AuthURL(c *gin.Context) {
	if h.auth == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Success: false,
			Error:   "Google Calendar integration is not configured",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     h.auth.AuthURL(middleware.UserID(c)),
	})
}

// Callback handles GET /api/calendar/callback. It is public: the user is
// identified by the state issued with the consent URL. The browser always
// ends up back on the frontend.
func (h *CalendarHandler) Callback(c *gin.Context) {
	log := logger.FromGin(c)

	if h.auth == nil {
		h.redirect(c, "error", "not_configured")
		return
	}
	if reason := c.Query("error"); reason != "" {
		log.Warn().Str("reason", reason).Msg("Calendar consent declined")
		h.redirect(c, "error", reason)
		return
	}

	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		h.redirect(c, "error", "missing_code")
		return
	}

	userID, err := h.auth.HandleCallback(c.Request.Context(), state, code)
	if err != nil {
		log.Error().Err(err).Msg("Calendar callback failed")
		h.redirect(c, "error", "exchange_failed")
		return
	}

	log.Info().Str("user_id", userID).Msg("Calendar linked")
	h.redirect(c, "connected", "")
}

func (h *CalendarHandler) redirect(c *gin.Context, status, reason string) {
	q := url.Values{}
	q.Set("calendar", status)
	if reason != "" {
		q.Set("reason", reason)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/?"+q.Encode())
}
