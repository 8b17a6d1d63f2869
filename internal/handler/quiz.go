package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/middleware"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/gin-gonic/gin"
)

// QuizService serves and grades per-page quiz questions.
type QuizService interface {
	GetQuestion(ctx context.Context, materialID string, page int) (*model.QuizQuestion, error)
	Submit(ctx context.Context, userID, materialID string, page, selected int) (*model.QuizResult, error)
}

// QuizHandler handles quiz requests
type QuizHandler struct {
	quiz QuizService
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quiz QuizService) *QuizHandler {
	return &QuizHandler{quiz: quiz}
}

// GetQuestion handles GET /api/materials/:id/pages/:page/quiz. The correct
// answer is never part of the response.
// @Summary      Quiz question for a page
// @Tags         quiz
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "Material ID"
// @Param        page path int    true "Page number"
// @Success      200 {object} model.Response
// @Failure      404 {object} model.ErrorResponse
// @Failure      502 {object} model.ErrorResponse
// @Router       /api/materials/{id}/pages/{page}/quiz [get]
func (h *QuizHandler) GetQuestion(c *gin.Context) {
	materialID, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "page must be a positive integer",
		})
		return
	}

	q, err := h.quiz.GetQuestion(c.Request.Context(), materialID, page)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: q})
}

// Submit handles POST /api/quiz/submit
func (h *QuizHandler) Submit(c *gin.Context) {
	var req model.QuizSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if !middleware.ValidateID(req.MaterialID) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Success: false, Error: "invalid materialId"})
		return
	}

	res, err := h.quiz.Submit(c.Request.Context(), middleware.UserID(c), req.MaterialID, req.PageNumber, *req.SelectedIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.Get().IncrementQuizSubmit(res.Correct)

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"correct":      res.Correct,
		"correctIndex": res.CorrectIndex,
		"explanation":  res.Explanation,
	})
}
