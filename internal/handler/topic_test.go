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

type fakeTopics struct {
	topics  map[string]model.Topic
	nodes   []model.Node
	dup     *service.DuplicateResult
	created []model.CreateNodeRequest
	deleted []string
}

func (f *fakeTopics) CreateTopic(_ context.Context, userID string, req model.CreateTopicRequest) (*model.Topic, error) {
	t := model.Topic{ID: topicUUID, Title: req.Title, Description: req.Description, CreatedBy: userID}
	f.topics[t.ID] = t
	return &t, nil
}

func (f *fakeTopics) ListTopics(context.Context) ([]model.Topic, error) {
	var out []model.Topic
	for _, t := range f.topics {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTopics) GetTopic(_ context.Context, id string) (*model.Topic, error) {
	t, ok := f.topics[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTopics) ListNodes(ctx context.Context, topicID string) ([]model.Node, error) {
	if _, err := f.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	return f.nodes, nil
}

func (f *fakeTopics) CreateNode(_ context.Context, userID, topicID string, req model.CreateNodeRequest) (*model.Node, *service.DuplicateResult, error) {
	f.created = append(f.created, req)
	if f.dup != nil {
		return nil, f.dup, service.ErrDuplicateNode
	}
	return &model.Node{ID: nodeUUID, TopicID: topicID, Title: req.Title, CreatedBy: userID}, &service.DuplicateResult{}, nil
}

func (f *fakeTopics) DeleteNode(_ context.Context, userID, nodeID string) error {
	if userID != testUser {
		return model.ErrForbidden
	}
	f.deleted = append(f.deleted, nodeID)
	return nil
}

func newTopicRouter(f *fakeTopics) http.Handler {
	h := NewTopicHandler(f)
	r := newTestRouter()
	r.POST("/api/topics", h.CreateTopic)
	r.GET("/api/topics", h.ListTopics)
	r.GET("/api/topics/:id", h.GetTopic)
	r.GET("/api/topics/:id/nodes", h.ListNodes)
	r.POST("/api/topics/:id/nodes", h.CreateNode)
	r.DELETE("/api/nodes/:id", h.DeleteNode)
	return r
}

func TestCreateTopic(t *testing.T) {
	f := &fakeTopics{topics: map[string]model.Topic{}}
	r := newTopicRouter(f)

	w := doJSON(t, r, http.MethodPost, "/api/topics", map[string]string{"title": "  Web   Development ", "description": "HTML, CSS"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Web Development", data["title"])
	assert.Equal(t, testUser, data["createdBy"])

	w = doJSON(t, r, http.MethodPost, "/api/topics", map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTopicsIsNeverNull(t *testing.T) {
	r := newTopicRouter(&fakeTopics{topics: map[string]model.Topic{}})

	w := doJSON(t, r, http.MethodGet, "/api/topics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["data"])
}

func TestGetTopicNotFound(t *testing.T) {
	r := newTopicRouter(&fakeTopics{topics: map[string]model.Topic{}})

	w := doJSON(t, r, http.MethodGet, "/api/topics/"+topicUUID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/topics/"+topicUUID+"/nodes", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNodeDuplicateShortCircuits(t *testing.T) {
	f := &fakeTopics{
		topics: map[string]model.Topic{topicUUID: {ID: topicUUID}},
		dup: &service.DuplicateResult{
			IsDuplicate: true,
			Reason:      "\"JS Basics\" is the same as \"JavaScript Basics\"",
			SimilarNode: &model.SimilarNode{ID: nodeUUID, Title: "JavaScript Basics"},
		},
	}
	r := newTopicRouter(f)

	w := doJSON(t, r, http.MethodPost, "/api/topics/"+topicUUID+"/nodes", map[string]string{"title": "JS Basics"})
	require.Equal(t, http.StatusConflict, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["isDuplicate"])
	assert.Contains(t, body["reason"], "JavaScript Basics")
	similar := body["similarNode"].(map[string]interface{})
	assert.Equal(t, nodeUUID, similar["id"])
}

func TestCreateNodeSanitizesAndCreates(t *testing.T) {
	f := &fakeTopics{topics: map[string]model.Topic{topicUUID: {ID: topicUUID}}}
	r := newTopicRouter(f)

	w := doJSON(t, r, http.MethodPost, "/api/topics/"+topicUUID+"/nodes", map[string]string{
		"title":       "CSS\x00 <Grid>",
		"description": "layout\nsystem",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, f.created, 1)
	assert.Equal(t, "CSS <Grid>", f.created[0].Title)
	assert.Equal(t, "layout\nsystem", f.created[0].Description)
}

func TestCreateNodeRejectsBadTopicID(t *testing.T) {
	f := &fakeTopics{topics: map[string]model.Topic{}}
	r := newTopicRouter(f)

	w := doJSON(t, r, http.MethodPost, "/api/topics/not-a-uuid/nodes", map[string]string{"title": "CSS"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.created)
}

func TestDeleteNode(t *testing.T) {
	f := &fakeTopics{topics: map[string]model.Topic{}}
	r := newTopicRouter(f)

	w := doJSON(t, r, http.MethodDelete, "/api/nodes/"+nodeUUID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{nodeUUID}, f.deleted)
}
