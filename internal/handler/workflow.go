package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// WorkflowService is what the workflow and schedule handlers need from the
// service layer.
type WorkflowService interface {
	Create(ctx context.Context, userID string, req model.CreateWorkflowRequest) (*model.Workflow, error)
	List(ctx context.Context, userID string) ([]model.Workflow, error)
	Get(ctx context.Context, userID, id string) (*model.Workflow, error)
	UpdateGraph(ctx context.Context, userID, id string, req model.UpdateGraphRequest) (*model.Workflow, error)
	Delete(ctx context.Context, userID, id string) error
	Estimate(ctx context.Context, userID, id string) (model.WorkflowSchedule, error)
	EstimateNodes(ctx context.Context, nodes []service.EstimateNode) (model.WorkflowSchedule, error)
	Implement(ctx context.Context, userID, id string, opts service.ImplementOptions) ([]string, error)
	ScheduleSpreadsheet(ctx context.Context, userID, id string, startDate string, dailyHours float64) (*bytes.Buffer, string, error)
}

// WorkflowHandler handles workflow CRUD requests
type WorkflowHandler struct {
	workflows WorkflowService
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflows WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// Create handles POST /api/workflows
func (h *WorkflowHandler) Create(c *gin.Context) {
	var req model.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.Title = middleware.SanitizeTitle(req.Title)
	req.Description = middleware.SanitizeDescription(req.Description)

	w, err := h.workflows.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.Response{Success: true, Data: w})
}

// List handles GET /api/workflows
func (h *WorkflowHandler) List(c *gin.Context) {
	list, err := h.workflows.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []model.Workflow{}
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    list,
		Meta:    &model.Meta{Total: len(list)},
	})
}

// Get handles GET /api/workflows/:id. Edges carry their node titles.
func (h *WorkflowHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	w, err := h.workflows.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: w})
}

// UpdateGraph handles PUT /api/workflows/:id/graph
// @Summary      Replace workflow graph
// @Description  Replaces every node and edge of the workflow
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                   true "Workflow ID"
// @Param        request body model.UpdateGraphRequest true "Graph"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/workflows/{id}/graph [put]
func (h *WorkflowHandler) UpdateGraph(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	w, err := h.workflows.UpdateGraph(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: w})
}

// Delete handles DELETE /api/workflows/:id
func (h *WorkflowHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.workflows.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
