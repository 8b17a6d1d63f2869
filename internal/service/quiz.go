package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/metrics"
	"github.com/TimUdinusYes/backend/internal/model"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrQuizUnavailable means no question exists and none could be generated.
	ErrQuizUnavailable = errors.New("quiz question is unavailable right now")
	// ErrQuestionNotGenerated is returned when answering a page with no question yet.
	ErrQuestionNotGenerated = errors.New("no quiz question has been generated for this page")
)

const quizSystemPrompt = `You write one multiple-choice question that checks understanding of a study page.
Use only facts from the page. Give exactly 4 options with exactly one correct answer.
Answer ONLY with a JSON object:
{"question": "<question>", "options": ["<A>", "<B>", "<C>", "<D>"], "correctIndex": <0-3>, "explanation": "<why the answer is correct>"}`

// maxQuizContent caps how much page text goes into the prompt.
const maxQuizContent = 6000

// QuizStore reads material pages and stores generated questions.
type QuizStore interface {
	GetPage(ctx context.Context, materialID string, page int) (*model.MaterialPage, error)
	GetQuestion(ctx context.Context, materialID string, page int) (*model.QuizQuestion, error)
	SaveQuestion(ctx context.Context, q model.QuizQuestion) (*model.QuizQuestion, error)
}

// ScoreStore records per-user quiz scores.
type ScoreStore interface {
	RecordQuizScore(ctx context.Context, userID, key string, score model.QuizScore) error
}

// QuizService serves one generated question per material page.
type QuizService struct {
	store  QuizStore
	scores ScoreStore
	llm    client.Completer
	group  singleflight.Group
	now    func() time.Time
}

// NewQuizService creates the quiz service.
func NewQuizService(store QuizStore, scores ScoreStore, llm client.Completer) *QuizService {
	return &QuizService{store: store, scores: scores, llm: llm, now: time.Now}
}

// QuizScoreKey is the key a page score is stored under in the profile.
func QuizScoreKey(materialID string, page int) string {
	return fmt.Sprintf("%s:%d", materialID, page)
}

type quizAnswer struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// GetQuestion returns the stored question for the page, generating and
// storing one on first request.
func (s *QuizService) GetQuestion(ctx context.Context, materialID string, page int) (*model.QuizQuestion, error) {
	q, err := s.store.GetQuestion(ctx, materialID, page)
	if err != nil {
		return nil, err
	}
	if q != nil {
		return q, nil
	}

	shared := context.WithoutCancel(ctx)
	res, err, _ := s.group.Do(QuizScoreKey(materialID, page), func() (interface{}, error) {
		return s.generate(shared, materialID, page)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.QuizQuestion), nil
}

func (s *QuizService) generate(ctx context.Context, materialID string, page int) (*model.QuizQuestion, error) {
	if q, err := s.store.GetQuestion(ctx, materialID, page); err == nil && q != nil {
		return q, nil
	}

	p, err := s.store.GetPage(ctx, materialID, page)
	if err != nil {
		return nil, err
	}

	content := truncateUTF8(p.Content, maxQuizContent)
	prompt := content
	if p.Title != "" {
		prompt = "Title: " + p.Title + "\n\n" + content
	}

	out, err := s.llm.Complete(ctx, client.CompletionRequest{
		System:      quizSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.4,
		MaxTokens:   500,
		JSONMode:    true,
	})
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("material_id", materialID).Int("page", page).Msg("Quiz generation call failed")
		return nil, ErrQuizUnavailable
	}

	var answer quizAnswer
	if err := decodeModelJSON(out, &answer); err != nil {
		logger.Get(ctx).Error().Err(err).Str("output", truncateLog(out)).Msg("Unparsable quiz question")
		return nil, ErrQuizUnavailable
	}
	q, err := answer.toQuestion(materialID, page)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("material_id", materialID).Int("page", page).Msg("Generated quiz question rejected")
		return nil, ErrQuizUnavailable
	}

	saved, err := s.store.SaveQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	metrics.Get().IncrementQuizGenerated()
	return saved, nil
}

func (a quizAnswer) toQuestion(materialID string, page int) (model.QuizQuestion, error) {
	q := model.QuizQuestion{
		MaterialID:  materialID,
		PageNumber:  page,
		Question:    strings.TrimSpace(a.Question),
		Explanation: strings.TrimSpace(a.Explanation),
	}
	if q.Question == "" {
		return q, errors.New("empty question")
	}
	if len(a.Options) != 4 {
		return q, fmt.Errorf("expected 4 options, got %d", len(a.Options))
	}
	for _, o := range a.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return q, errors.New("empty option")
		}
		q.Options = append(q.Options, o)
	}
	if a.CorrectIndex == nil || *a.CorrectIndex < 0 || *a.CorrectIndex > 3 {
		return q, errors.New("correctIndex out of range")
	}
	q.CorrectIndex = *a.CorrectIndex
	return q, nil
}

// Submit grades an answer and records the score under QuizScoreKey.
func (s *QuizService) Submit(ctx context.Context, userID, materialID string, page, selected int) (*model.QuizResult, error) {
	q, err := s.store.GetQuestion(ctx, materialID, page)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionNotGenerated
	}

	correct := selected == q.CorrectIndex
	score := model.QuizScore{Selected: selected, AnsweredAt: s.now().UTC()}
	if correct {
		score.Score = 1
	}

	if err := s.scores.RecordQuizScore(ctx, userID, QuizScoreKey(materialID, page), score); err != nil {
		return nil, err
	}

	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionQuizSubmit,
		UserID:     userID,
		Resource:   "quiz",
		ResourceID: QuizScoreKey(materialID, page),
		Success:    true,
		Details:    map[string]interface{}{"correct": correct},
	})

	return &model.QuizResult{
		Correct:      correct,
		CorrectIndex: q.CorrectIndex,
		Explanation:  q.Explanation,
	}, nil
}
