package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/TimUdinusYes/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuiz struct {
	question  *model.QuizQuestion
	getErr    error
	submitted []int
}

func (f *fakeQuiz) GetQuestion(_ context.Context, materialID string, page int) (*model.QuizQuestion, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.question == nil || f.question.MaterialID != materialID || f.question.PageNumber != page {
		return nil, model.ErrNotFound
	}
	return f.question, nil
}

func (f *fakeQuiz) Submit(_ context.Context, userID, materialID string, page, selected int) (*model.QuizResult, error) {
	if f.question == nil {
		return nil, service.ErrQuestionNotGenerated
	}
	f.submitted = append(f.submitted, selected)
	return &model.QuizResult{
		Correct:      selected == f.question.CorrectIndex,
		CorrectIndex: f.question.CorrectIndex,
		Explanation:  f.question.Explanation,
	}, nil
}

func newQuizRouter(f *fakeQuiz) http.Handler {
	h := NewQuizHandler(f)
	r := newTestRouter()
	r.GET("/api/materials/:id/pages/:page/quiz", h.GetQuestion)
	r.POST("/api/quiz/submit", h.Submit)
	return r
}

func sampleQuestion() *model.QuizQuestion {
	return &model.QuizQuestion{
		ID:           "q1",
		MaterialID:   materialUUID,
		PageNumber:   2,
		Question:     "Which tag creates a hyperlink?",
		Options:      []string{"<a>", "<link>", "<href>", "<p>"},
		CorrectIndex: 0,
		Explanation:  "The anchor element creates links.",
	}
}

func TestGetQuestionHidesAnswer(t *testing.T) {
	r := newQuizRouter(&fakeQuiz{question: sampleQuestion()})

	w := doJSON(t, r, http.MethodGet, "/api/materials/"+materialUUID+"/pages/2/quiz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Which tag creates a hyperlink?", data["question"])
	assert.Len(t, data["options"], 4)
	assert.NotContains(t, data, "correctIndex")
	assert.NotContains(t, data, "explanation")
}

func TestGetQuestionErrors(t *testing.T) {
	tests := []struct {
		name   string
		quiz   *fakeQuiz
		path   string
		status int
	}{
		{"bad page", &fakeQuiz{}, "/api/materials/" + materialUUID + "/pages/zero/quiz", http.StatusBadRequest},
		{"page zero", &fakeQuiz{}, "/api/materials/" + materialUUID + "/pages/0/quiz", http.StatusBadRequest},
		{"bad material", &fakeQuiz{}, "/api/materials/m1/pages/1/quiz", http.StatusBadRequest},
		{"missing page", &fakeQuiz{}, "/api/materials/" + materialUUID + "/pages/9/quiz", http.StatusNotFound},
		{"model down", &fakeQuiz{getErr: service.ErrQuizUnavailable}, "/api/materials/" + materialUUID + "/pages/2/quiz", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, newQuizRouter(tt.quiz), http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSubmitAnswer(t *testing.T) {
	f := &fakeQuiz{question: sampleQuestion()}
	r := newQuizRouter(f)

	w := doJSON(t, r, http.MethodPost, "/api/quiz/submit", map[string]interface{}{
		"materialId":    materialUUID,
		"pageNumber":    2,
		"selectedIndex": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["correct"])
	assert.Equal(t, float64(0), body["correctIndex"])
	assert.Equal(t, "The anchor element creates links.", body["explanation"])
	assert.Equal(t, []int{0}, f.submitted)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		quiz   *fakeQuiz
		body   map[string]interface{}
		status int
	}{
		{"missing selection", &fakeQuiz{question: sampleQuestion()}, map[string]interface{}{"materialId": materialUUID, "pageNumber": 2}, http.StatusBadRequest},
		{"selection out of range", &fakeQuiz{question: sampleQuestion()}, map[string]interface{}{"materialId": materialUUID, "pageNumber": 2, "selectedIndex": 4}, http.StatusBadRequest},
		{"bad material", &fakeQuiz{question: sampleQuestion()}, map[string]interface{}{"materialId": "m1", "pageNumber": 2, "selectedIndex": 1}, http.StatusBadRequest},
		{"not generated", &fakeQuiz{}, map[string]interface{}{"materialId": materialUUID, "pageNumber": 2, "selectedIndex": 1}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, newQuizRouter(tt.quiz), http.MethodPost, "/api/quiz/submit", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Empty(t, tt.quiz.submitted)
		})
	}
}
