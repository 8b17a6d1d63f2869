package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ScheduleHandler handles estimates, calendar exports and schedule downloads
type ScheduleHandler struct {
	workflows WorkflowService
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(workflows WorkflowService) *ScheduleHandler {
	return &ScheduleHandler{workflows: workflows}
}

// Estimate handles POST /api/estimate
// @Summary      Estimate study time
// @Description  Estimates hours per node for a stored workflow or an inline node list
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body model.EstimateRequest true "workflowId or nodes"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/estimate [post]
func (h *ScheduleHandler) Estimate(c *gin.Context) {
	var req model.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	var (
		schedule model.WorkflowSchedule
		err      error
	)
	switch {
	case req.WorkflowID != "":
		if !middleware.ValidateID(req.WorkflowID) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Success: false, Error: "invalid workflowId"})
			return
		}
		schedule, err = h.workflows.Estimate(ctx, middleware.UserID(c), req.WorkflowID)
	case len(req.Nodes) > 0:
		nodes := make([]service.EstimateNode, len(req.Nodes))
		for i, n := range req.Nodes {
			nodes[i] = service.EstimateNode{
				ID:          n.ID,
				Title:       middleware.SanitizeTitle(n.Title),
				Description: middleware.SanitizeDescription(n.Description),
			}
		}
		schedule, err = h.workflows.EstimateNodes(ctx, nodes)
	default:
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "workflowId or nodes is required",
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: schedule})
}

// EstimateWorkflow handles GET /api/workflows/:id/estimate
func (h *ScheduleHandler) EstimateWorkflow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.workflows.Estimate(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: schedule})
}

// Implement handles POST /api/workflows/:id/implement
// @Summary      Export schedule to Google Calendar
// @Description  Estimates the workflow, lays out daily sessions and creates one calendar event per session
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true "Workflow ID"
// @Param        request body model.ImplementRequest true "Export options"
// @Success      200 {object} model.ImplementResponse
// @Failure      400 {object} model.ErrorResponse
// @Failure      412 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/workflows/{id}/implement [post]
func (h *ScheduleHandler) Implement(c *gin.Context) {
	log := logger.FromGin(c)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.ImplementRequest
	// An empty body means defaults for every option.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	ids, err := h.workflows.Implement(c.Request.Context(), middleware.UserID(c), id, service.ImplementOptions{
		AccessToken: middleware.SanitizeToken(req.AccessToken),
		StartDate:   req.StartDate,
		DailyHours:  req.DailyHours,
	})
	metrics.Get().IncrementImplement(err == nil, len(ids))

	var exportErr *service.ExportError
	switch {
	case errors.As(err, &exportErr):
		log.Error().Err(err).Str("workflow_id", id).Int("created", len(ids)).Msg("Calendar export stopped")
		if ids == nil {
			ids = []string{}
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"success":       false,
			"error":         service.FriendlyCalendarError(err),
			"eventsCreated": len(ids),
			"eventIds":      ids,
		})
		return
	case err != nil:
		if status, _ := errorStatus(err); status == http.StatusInternalServerError {
			if msg := service.FriendlyCalendarError(err); msg != service.GenericCalendarError {
				log.Error().Err(err).Str("workflow_id", id).Msg("Calendar token unusable")
				c.JSON(http.StatusBadGateway, model.ErrorResponse{Success: false, Error: msg})
				return
			}
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ImplementResponse{
		Success:       true,
		EventsCreated: len(ids),
		EventIDs:      ids,
	})
}

// DownloadSchedule handles GET /api/workflows/:id/schedule.xlsx
// @Summary      Download schedule spreadsheet
// @Tags         schedule
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id         path  string true  "Workflow ID"
// @Param        startDate  query string false "YYYY-MM-DD or RFC3339"
// @Param        dailyHours query number false "Hours per day"
// @Success      200 {file} binary
// @Failure      400 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/workflows/{id}/schedule.xlsx [get]
func (h *ScheduleHandler) DownloadSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var dailyHours float64
	if v := c.Query("dailyHours"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 24 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Error:   "dailyHours must be a number between 0 and 24",
			})
			return
		}
		dailyHours = parsed
	}

	buf, title, err := h.workflows.ScheduleSpreadsheet(c.Request.Context(), middleware.UserID(c), id, c.Query("startDate"), dailyHours)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.Get().IncrementScheduleExport()

	filename := fmt.Sprintf("%s_%s.xlsx", fileSlug(title), time.Now().Format("2006-01-02"))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// fileSlug keeps ASCII letters and digits, folding everything else into
// single underscores.
func fileSlug(title string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return "schedule"
	}
	if len(slug) > 60 {
		slug = strings.TrimSuffix(slug[:60], "_")
	}
	return slug
}
