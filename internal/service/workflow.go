package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrInvalidGraph is returned for graphs that reference unknown nodes,
	// repeat nodes or edges, or contain self-loops.
	ErrInvalidGraph = errors.New("invalid workflow graph")
	// ErrEmptyWorkflow is returned when scheduling a workflow with no nodes.
	ErrEmptyWorkflow = errors.New("workflow has no nodes")
	// ErrInvalidStartDate is returned for unparsable start dates.
	ErrInvalidStartDate = errors.New("invalid start date")
)

// DefaultSessionHour is the local hour sessions start at when only a date is given.
const DefaultSessionHour = 9

// WorkflowStore persists workflows and their graphs.
type WorkflowStore interface {
	Create(ctx context.Context, userID, title, description string) (*model.Workflow, error)
	ListByUser(ctx context.Context, userID string) ([]model.Workflow, error)
	Get(ctx context.Context, id string) (*model.Workflow, error)
	ReplaceGraph(ctx context.Context, workflowID, userID string, nodes []model.WorkflowNode, edges []model.WorkflowEdge) error
	Delete(ctx context.Context, id, userID string) error
}

// TokenProvider returns a calendar access token for a user.
type TokenProvider interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

// ProgressNotifier pushes export progress to a user's live connections.
type ProgressNotifier interface {
	NotifyImplementProgress(userID string, p model.ImplementProgress)
}

// WorkflowService owns workflow CRUD and the estimate → schedule → export pipeline.
type WorkflowService struct {
	workflows WorkflowStore
	nodes     NodeStore
	estimator *TimeEstimator
	exporter  *CalendarExporter
	tokens    TokenProvider
	notifier  ProgressNotifier
	now       func() time.Time
}

// NewWorkflowService creates the service. tokens and notifier may be nil.
func NewWorkflowService(workflows WorkflowStore, nodes NodeStore, estimator *TimeEstimator, exporter *CalendarExporter, tokens TokenProvider, notifier ProgressNotifier) *WorkflowService {
	return &WorkflowService{
		workflows: workflows,
		nodes:     nodes,
		estimator: estimator,
		exporter:  exporter,
		tokens:    tokens,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Create creates an empty workflow.
func (s *WorkflowService) Create(ctx context.Context, userID string, req model.CreateWorkflowRequest) (*model.Workflow, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	w, err := s.workflows.Create(ctx, userID, title, strings.TrimSpace(req.Description))
	if err != nil {
		return nil, err
	}
	logger.AuditResource(ctx, logger.AuditActionWorkflowCreate, userID, "workflow", w.ID)
	return w, nil
}

// List returns the user's workflows.
func (s *WorkflowService) List(ctx context.Context, userID string) ([]model.Workflow, error) {
	return s.workflows.ListByUser(ctx, userID)
}

// Get returns a workflow with its enriched graph. Workflows of other users
// are reported as not found.
func (s *WorkflowService) Get(ctx context.Context, userID, id string) (*model.Workflow, error) {
	w, err := s.workflows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, model.ErrNotFound
	}
	return w, nil
}

// UpdateGraph validates and replaces the workflow's nodes and edges.
func (s *WorkflowService) UpdateGraph(ctx context.Context, userID, id string, req model.UpdateGraphRequest) (*model.Workflow, error) {
	if err := ValidateGraph(req.Nodes, req.Edges); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Nodes))
	for i, n := range req.Nodes {
		ids[i] = n.NodeID
	}
	if len(ids) > 0 {
		found, err := s.nodes.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, fmt.Errorf("%w: unknown node %s", ErrInvalidGraph, id)
			}
		}
	}

	if err := s.workflows.ReplaceGraph(ctx, id, userID, req.Nodes, req.Edges); err != nil {
		if errors.Is(err, model.ErrForbidden) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	s.estimator.Forget(id)
	logger.AuditResource(ctx, logger.AuditActionWorkflowUpdate, userID, "workflow", id)
	return s.Get(ctx, userID, id)
}

// Delete removes the user's workflow.
func (s *WorkflowService) Delete(ctx context.Context, userID, id string) error {
	if err := s.workflows.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.estimator.Forget(id)
	logger.AuditResource(ctx, logger.AuditActionWorkflowDelete, userID, "workflow", id)
	return nil
}

// ValidateGraph checks the graph's internal consistency.
func ValidateGraph(nodes []model.WorkflowNode, edges []model.WorkflowEdge) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.NodeID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidGraph)
		}
		if seen[n.NodeID] {
			return fmt.Errorf("%w: node %s listed twice", ErrInvalidGraph, n.NodeID)
		}
		seen[n.NodeID] = true
	}

	pairs := make(map[[2]string]bool, len(edges))
	ids := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID != "" {
			if ids[e.ID] {
				return fmt.Errorf("%w: edge id %s listed twice", ErrInvalidGraph, e.ID)
			}
			ids[e.ID] = true
		}
		if !seen[e.SourceNodeID] || !seen[e.TargetNodeID] {
			return fmt.Errorf("%w: edge %s->%s references a node outside the workflow", ErrInvalidGraph, e.SourceNodeID, e.TargetNodeID)
		}
		if e.SourceNodeID == e.TargetNodeID {
			return fmt.Errorf("%w: self-loop on %s", ErrInvalidGraph, e.SourceNodeID)
		}
		p := [2]string{e.SourceNodeID, e.TargetNodeID}
		if pairs[p] {
			return fmt.Errorf("%w: edge %s->%s listed twice", ErrInvalidGraph, e.SourceNodeID, e.TargetNodeID)
		}
		pairs[p] = true
	}
	return nil
}

// OrderNodes returns the nodes in study order: a topological order of the
// edges, ties broken by SortOrder and then input position. Nodes left over
// by a cycle are appended in SortOrder.
func OrderNodes(nodes []model.WorkflowNode, edges []model.WorkflowEdge) []model.WorkflowNode {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.NodeID] = i
	}

	indegree := make([]int, len(nodes))
	next := make([][]int, len(nodes))
	for _, e := range edges {
		from, okFrom := index[e.SourceNodeID]
		to, okTo := index[e.TargetNodeID]
		if !okFrom || !okTo || from == to {
			continue
		}
		next[from] = append(next[from], to)
		indegree[to]++
	}

	less := func(a, b int) bool {
		if nodes[a].SortOrder != nodes[b].SortOrder {
			return nodes[a].SortOrder < nodes[b].SortOrder
		}
		return a < b
	}

	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]model.WorkflowNode, 0, len(nodes))
	placed := make([]bool, len(nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		cur := ready[0]
		ready = ready[1:]
		ordered = append(ordered, nodes[cur])
		placed[cur] = true
		for _, to := range next[cur] {
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(ordered) < len(nodes) {
		var rest []int
		for i := range nodes {
			if !placed[i] {
				rest = append(rest, i)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return less(rest[i], rest[j]) })
		for _, i := range rest {
			ordered = append(ordered, nodes[i])
		}
	}
	return ordered
}

func estimateNodes(w *model.Workflow) []EstimateNode {
	ordered := OrderNodes(w.Nodes, w.Edges)
	out := make([]EstimateNode, len(ordered))
	for i, n := range ordered {
		out[i] = EstimateNode{ID: n.NodeID, Title: n.Title, Description: n.Description}
	}
	return out
}

// Estimate estimates the study time of one of the user's workflows.
func (s *WorkflowService) Estimate(ctx context.Context, userID, id string) (model.WorkflowSchedule, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return model.WorkflowSchedule{}, err
	}
	if len(w.Nodes) == 0 {
		return model.WorkflowSchedule{}, ErrEmptyWorkflow
	}
	schedule := s.estimator.EstimateSavedWorkflow(ctx, w.ID, estimateNodes(w))
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionScheduleEstimate,
		UserID:     userID,
		Resource:   "workflow",
		ResourceID: id,
		Success:    true,
		Details:    map[string]interface{}{"total_hours": schedule.TotalHours, "total_days": schedule.TotalDays},
	})
	return schedule, nil
}

// EstimateNodes estimates an inline node list.
func (s *WorkflowService) EstimateNodes(ctx context.Context, nodes []EstimateNode) (model.WorkflowSchedule, error) {
	if len(nodes) == 0 {
		return model.WorkflowSchedule{}, ErrEmptyWorkflow
	}
	return s.estimator.EstimateWorkflowTime(ctx, nodes), nil
}

// ParseStartDate accepts RFC3339 or YYYY-MM-DD. A bare date starts at
// DefaultSessionHour in now's location; an empty value means tomorrow.
func ParseStartDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d := now.AddDate(0, 0, 1)
		return time.Date(d.Year(), d.Month(), d.Day(), DefaultSessionHour, 0, 0, 0, now.Location()), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", raw, now.Location()); err == nil {
		return d.Add(DefaultSessionHour * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartDate, raw)
}

// SchedulePlan is an estimate together with its generated sessions.
type SchedulePlan struct {
	Workflow   *model.Workflow
	Schedule   model.WorkflowSchedule
	Sessions   []model.CalendarEvent
	DailyHours float64
}

// Plan estimates the workflow and lays its sessions out from start. A
// positive dailyHours overrides the suggested pace.
func (s *WorkflowService) Plan(ctx context.Context, userID, id string, start time.Time, dailyHours float64) (*SchedulePlan, error) {
	w, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if len(w.Nodes) == 0 {
		return nil, ErrEmptyWorkflow
	}

	schedule := s.estimator.EstimateSavedWorkflow(ctx, w.ID, estimateNodes(w))
	if dailyHours <= 0 {
		dailyHours = schedule.SuggestedDailyHours
	}

	return &SchedulePlan{
		Workflow:   w,
		Schedule:   schedule,
		Sessions:   GenerateLearningSchedule(schedule.Nodes, start, dailyHours),
		DailyHours: dailyHours,
	}, nil
}

// ImplementOptions controls a calendar export.
type ImplementOptions struct {
	// AccessToken, when set, is used instead of the stored credential.
	AccessToken string
	StartDate   string
	DailyHours  float64
}

// Implement plans the workflow and writes every session to the user's
// calendar. On a partial failure the created ids are returned alongside
// an *ExportError.
func (s *WorkflowService) Implement(ctx context.Context, userID, id string, opts ImplementOptions) ([]string, error) {
	start, err := ParseStartDate(opts.StartDate, s.now())
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(opts.AccessToken)
	if token == "" {
		if s.tokens == nil {
			return nil, model.ErrNoCalendarToken
		}
		if token, err = s.tokens.AccessToken(ctx, userID); err != nil {
			return nil, err
		}
	}

	plan, err := s.Plan(ctx, userID, id, start, opts.DailyHours)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithOperationID(ctx, uuid.NewString())
	total := len(plan.Sessions)
	s.notify(userID, model.ImplementProgress{WorkflowID: id, Status: model.ImplementRunning, Total: total})

	ids, err := s.exporter.Export(ctx, token, plan.Sessions, func(created, total int, eventID string) {
		s.notify(userID, model.ImplementProgress{WorkflowID: id, Status: model.ImplementRunning, Created: created, Total: total, EventID: eventID})
	})

	logger.AuditImplement(ctx, userID, id, len(ids), total, err)
	if err != nil {
		s.notify(userID, model.ImplementProgress{
			WorkflowID: id,
			Status:     model.ImplementFailed,
			Created:    len(ids),
			Total:      total,
			Error:      FriendlyCalendarError(err),
		})
		return ids, err
	}

	s.notify(userID, model.ImplementProgress{WorkflowID: id, Status: model.ImplementCompleted, Created: len(ids), Total: total})
	return ids, nil
}

// ScheduleSpreadsheet renders the workflow plan as an xlsx workbook.
func (s *WorkflowService) ScheduleSpreadsheet(ctx context.Context, userID, id string, startDate string, dailyHours float64) (*bytes.Buffer, string, error) {
	start, err := ParseStartDate(startDate, s.now())
	if err != nil {
		return nil, "", err
	}
	plan, err := s.Plan(ctx, userID, id, start, dailyHours)
	if err != nil {
		return nil, "", err
	}

	buf, err := NewScheduleWorkbook().Generate(plan)
	if err != nil {
		return nil, "", err
	}
	logger.AuditResource(ctx, logger.AuditActionScheduleExport, userID, "workflow", id)
	return buf, plan.Workflow.Title, nil
}

func (s *WorkflowService) notify(userID string, p model.ImplementProgress) {
	if s.notifier != nil {
		s.notifier.NotifyImplementProgress(userID, p)
	}
}
