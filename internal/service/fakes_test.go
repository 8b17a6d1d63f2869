package service

import (
	"context"
	"errors"
	"sync"

	"github.com/TimUdinusYes/backend/internal/model"
)

var errStoreDown = errors.New("store down")

// memValidationStore is an in-memory ValidationStore with failure switches.
type memValidationStore struct {
	mu        sync.Mutex
	records   map[[2]string]model.NodePairValidation
	getErr    error
	upsertErr error
	gets      int
	upserts   int
}

func newMemValidationStore() *memValidationStore {
	return &memValidationStore{records: map[[2]string]model.NodePairValidation{}}
}

func (s *memValidationStore) Get(_ context.Context, source, target string) (*model.NodePairValidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[[2]string{source, target}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memValidationStore) Upsert(_ context.Context, v model.NodePairValidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.records[[2]string{v.SourceName, v.TargetName}] = v
	return nil
}

type annotateCall struct {
	userID, from, to string
	isValid          bool
	reason           string
}

type fakeAnnotator struct {
	calls []annotateCall
	n     int64
	err   error
}

func (a *fakeAnnotator) AnnotateEdges(_ context.Context, userID, from, to string, isValid bool, reason string) (int64, error) {
	a.calls = append(a.calls, annotateCall{userID, from, to, isValid, reason})
	return a.n, a.err
}

// memQuizStore is an in-memory QuizStore + ScoreStore.
type memQuizStore struct {
	mu        sync.Mutex
	pages     map[string]model.MaterialPage
	questions map[string]model.QuizQuestion
	scores    map[string]map[string]model.QuizScore
}

func newMemQuizStore() *memQuizStore {
	return &memQuizStore{
		pages:     map[string]model.MaterialPage{},
		questions: map[string]model.QuizQuestion{},
		scores:    map[string]map[string]model.QuizScore{},
	}
}

func (s *memQuizStore) GetPage(_ context.Context, materialID string, page int) (*model.MaterialPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[QuizScoreKey(materialID, page)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

func (s *memQuizStore) GetQuestion(_ context.Context, materialID string, page int) (*model.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[QuizScoreKey(materialID, page)]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *memQuizStore) SaveQuestion(_ context.Context, q model.QuizQuestion) (*model.QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := QuizScoreKey(q.MaterialID, q.PageNumber)
	if existing, ok := s.questions[key]; ok {
		return &existing, nil
	}
	q.ID = "q-" + key
	s.questions[key] = q
	return &q, nil
}

func (s *memQuizStore) RecordQuizScore(_ context.Context, userID, key string, score model.QuizScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scores[userID] == nil {
		s.scores[userID] = map[string]model.QuizScore{}
	}
	s.scores[userID][key] = score
	return nil
}

// memWorkflowStore serves a fixed set of workflows.
type memWorkflowStore struct {
	workflows map[string]*model.Workflow
	replaced  int
}

func (s *memWorkflowStore) Create(_ context.Context, userID, title, description string) (*model.Workflow, error) {
	w := &model.Workflow{ID: "wf-new", UserID: userID, Title: title, Description: description}
	s.workflows[w.ID] = w
	return w, nil
}

func (s *memWorkflowStore) ListByUser(_ context.Context, userID string) ([]model.Workflow, error) {
	var out []model.Workflow
	for _, w := range s.workflows {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *memWorkflowStore) Get(_ context.Context, id string) (*model.Workflow, error) {
	w, ok := s.workflows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *memWorkflowStore) ReplaceGraph(_ context.Context, id, userID string, nodes []model.WorkflowNode, edges []model.WorkflowEdge) error {
	w, ok := s.workflows[id]
	if !ok {
		return model.ErrNotFound
	}
	if w.UserID != userID {
		return model.ErrForbidden
	}
	w.Nodes, w.Edges = nodes, edges
	s.replaced++
	return nil
}

func (s *memWorkflowStore) Delete(_ context.Context, id, userID string) error {
	w, ok := s.workflows[id]
	if !ok || w.UserID != userID {
		return model.ErrNotFound
	}
	delete(s.workflows, id)
	return nil
}

// memNodeStore knows a fixed set of node ids.
type memNodeStore struct {
	nodes map[string]model.Node
}

func (s *memNodeStore) Create(_ context.Context, topicID, title, description, createdBy string) (*model.Node, error) {
	n := model.Node{ID: "n-" + title, TopicID: topicID, Title: title, Description: description, CreatedBy: createdBy}
	s.nodes[n.ID] = n
	return &n, nil
}

func (s *memNodeStore) ListByTopic(_ context.Context, topicID string) ([]model.Node, error) {
	var out []model.Node
	for _, n := range s.nodes {
		if n.TopicID == topicID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNodeStore) GetMany(_ context.Context, ids []string) (map[string]model.Node, error) {
	out := map[string]model.Node{}
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (s *memNodeStore) Delete(_ context.Context, id, userID string) error {
	n, ok := s.nodes[id]
	if !ok {
		return model.ErrNotFound
	}
	if n.CreatedBy != userID {
		return model.ErrForbidden
	}
	delete(s.nodes, id)
	return nil
}

type memTopicStore struct {
	topics map[string]model.Topic
}

func (s *memTopicStore) Create(_ context.Context, title, description, createdBy string) (*model.Topic, error) {
	t := model.Topic{ID: "t-" + title, Title: title, Description: description, CreatedBy: createdBy}
	s.topics[t.ID] = t
	return &t, nil
}

func (s *memTopicStore) List(_ context.Context) ([]model.Topic, error) {
	var out []model.Topic
	for _, t := range s.topics {
		out = append(out, t)
	}
	return out, nil
}

func (s *memTopicStore) Get(_ context.Context, id string) (*model.Topic, error) {
	t, ok := s.topics[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.ImplementProgress
}

func (n *recordingNotifier) NotifyImplementProgress(_ string, p model.ImplementProgress) {
	n.mu.Lock()
	n.events = append(n.events, p)
	n.mu.Unlock()
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(context.Context, string) (string, error) {
	return s.token, s.err
}
