package service

import (
	"context"
	"errors"
	"strings"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
)

// ErrDuplicateNode is returned when a new node title duplicates an existing one.
var ErrDuplicateNode = errors.New("a node with this title already exists in the topic")

// TopicStore persists topics.
type TopicStore interface {
	Create(ctx context.Context, title, description, createdBy string) (*model.Topic, error)
	List(ctx context.Context) ([]model.Topic, error)
	Get(ctx context.Context, id string) (*model.Topic, error)
}

// NodeStore persists learning nodes.
type NodeStore interface {
	Create(ctx context.Context, topicID, title, description, createdBy string) (*model.Node, error)
	ListByTopic(ctx context.Context, topicID string) ([]model.Node, error)
	GetMany(ctx context.Context, ids []string) (map[string]model.Node, error)
	Delete(ctx context.Context, id, userID string) error
}

// TopicService manages topics and their nodes.
type TopicService struct {
	topics     TopicStore
	nodes      NodeStore
	duplicates *DuplicateChecker
}

// NewTopicService creates the topic service.
func NewTopicService(topics TopicStore, nodes NodeStore, duplicates *DuplicateChecker) *TopicService {
	return &TopicService{topics: topics, nodes: nodes, duplicates: duplicates}
}

// CreateTopic creates a topic owned by userID.
func (s *TopicService) CreateTopic(ctx context.Context, userID string, req model.CreateTopicRequest) (*model.Topic, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	t, err := s.topics.Create(ctx, title, strings.TrimSpace(req.Description), userID)
	if err != nil {
		return nil, err
	}
	logger.AuditResource(ctx, logger.AuditActionTopicCreate, userID, "topic", t.ID)
	return t, nil
}

// ListTopics returns every topic.
func (s *TopicService) ListTopics(ctx context.Context) ([]model.Topic, error) {
	return s.topics.List(ctx)
}

// GetTopic returns one topic.
func (s *TopicService) GetTopic(ctx context.Context, id string) (*model.Topic, error) {
	return s.topics.Get(ctx, id)
}

// ListNodes returns the nodes of an existing topic.
func (s *TopicService) ListNodes(ctx context.Context, topicID string) ([]model.Node, error) {
	if _, err := s.topics.Get(ctx, topicID); err != nil {
		return nil, err
	}
	return s.nodes.ListByTopic(ctx, topicID)
}

// CreateNode adds a node to a topic after a duplicate check. On a duplicate
// it returns ErrDuplicateNode together with the check result and inserts
// nothing.
func (s *TopicService) CreateNode(ctx context.Context, userID, topicID string, req model.CreateNodeRequest) (*model.Node, *DuplicateResult, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, nil, ErrEmptyTitle
	}

	existing, err := s.ListNodes(ctx, topicID)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]NodeCandidate, len(existing))
	for i, n := range existing {
		candidates[i] = NodeCandidate{ID: n.ID, Title: n.Title, Description: n.Description}
	}

	dup := s.duplicates.Check(ctx, title, candidates)
	if dup.IsDuplicate {
		logger.Audit(ctx, logger.AuditEvent{
			Action:     logger.AuditActionNodeRejected,
			UserID:     userID,
			Resource:   "topic",
			ResourceID: topicID,
			Success:    false,
			Details:    map[string]interface{}{"title": title, "reason": dup.Reason},
		})
		return nil, &dup, ErrDuplicateNode
	}

	n, err := s.nodes.Create(ctx, topicID, title, strings.TrimSpace(req.Description), userID)
	if err != nil {
		return nil, nil, err
	}
	logger.AuditResource(ctx, logger.AuditActionNodeCreate, userID, "node", n.ID)
	return n, &dup, nil
}

// DeleteNode removes a node created by userID.
func (s *TopicService) DeleteNode(ctx context.Context, userID, nodeID string) error {
	if err := s.nodes.Delete(ctx, nodeID, userID); err != nil {
		return err
	}
	logger.AuditResource(ctx, logger.AuditActionNodeDelete, userID, "node", nodeID)
	return nil
}
