package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/gin-gonic/gin"
)

// TopicService is what the topic handler needs from the service layer.
type TopicService interface {
	CreateTopic(ctx context.Context, userID string, req model.CreateTopicRequest) (*model.Topic, error)
	ListTopics(ctx context.Context) ([]model.Topic, error)
	GetTopic(ctx context.Context, id string) (*model.Topic, error)
	ListNodes(ctx context.Context, topicID string) ([]model.Node, error)
	CreateNode(ctx context.Context, userID, topicID string, req model.CreateNodeRequest) (*model.Node, *service.DuplicateResult, error)
	DeleteNode(ctx context.Context, userID, nodeID string) error
}

// TopicHandler handles topic and node requests
type TopicHandler struct {
	topics TopicService
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topics TopicService) *TopicHandler {
	return &TopicHandler{topics: topics}
}

// CreateTopic handles POST /api/topics
// @Summary      Create topic
// @Tags         topics
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body model.CreateTopicRequest true "Topic"
// @Success      201 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      401 {object} model.ErrorResponse
// @Router       /api/topics [post]
func (h *TopicHandler) CreateTopic(c *gin.Context) {
	var req model.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.Title = middleware.SanitizeTitle(req.Title)
	req.Description = middleware.SanitizeDescription(req.Description)

	topic, err := h.topics.CreateTopic(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.Response{Success: true, Data: topic})
}

// ListTopics handles GET /api/topics
func (h *TopicHandler) ListTopics(c *gin.Context) {
	topics, err := h.topics.ListTopics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if topics == nil {
		topics = []model.Topic{}
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    topics,
		Meta:    &model.Meta{Total: len(topics)},
	})
}

// GetTopic handles GET /api/topics/:id
func (h *TopicHandler) GetTopic(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	topic, err := h.topics.GetTopic(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: topic})
}

// ListNodes handles GET /api/topics/:id/nodes
func (h *TopicHandler) ListNodes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	nodes, err := h.topics.ListNodes(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if nodes == nil {
		nodes = []model.Node{}
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    nodes,
		Meta:    &model.Meta{Total: len(nodes)},
	})
}

// CreateNode handles POST /api/topics/:id/nodes
// @Summary      Create node
// @Description  Adds a node to the topic unless its title duplicates an existing node
// @Tags         topics
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                  true "Topic ID"
// @Param        request body model.CreateNodeRequest true "Node"
// @Success      201 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Failure      409 {object} model.DuplicateResponse
// @Router       /api/topics/{id}/nodes [post]
func (h *TopicHandler) CreateNode(c *gin.Context) {
	log := logger.FromGin(c)

	topicID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req model.CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	req.Title = middleware.SanitizeTitle(req.Title)
	req.Description = middleware.SanitizeDescription(req.Description)

	node, dup, err := h.topics.CreateNode(c.Request.Context(), middleware.UserID(c), topicID, req)
	if errors.Is(err, service.ErrDuplicateNode) && dup != nil {
		metrics.Get().IncrementNodeCreate(true)
		log.Info().Str("topic_id", topicID).Str("title", req.Title).Msg("Duplicate node rejected")
		c.JSON(http.StatusConflict, model.DuplicateResponse{
			Success:     false,
			IsDuplicate: true,
			Reason:      dup.Reason,
			SimilarNode: dup.SimilarNode,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.Get().IncrementNodeCreate(false)
	c.JSON(http.StatusCreated, model.Response{Success: true, Data: node})
}

// DeleteNode handles DELETE /api/nodes/:id
func (h *TopicHandler) DeleteNode(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.topics.DeleteNode(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
