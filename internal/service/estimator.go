package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/TimUdinusYes/backend/internal/cache"
	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultNodeHours is used for any node the model gives no usable estimate for.
	DefaultNodeHours = 5.0
	// DefaultDailyHours is the study pace used when none is suggested or requested.
	DefaultDailyHours = 2.0
)

const estimateSystemPrompt = `You estimate self-study time for a learning path.
For every node listed, estimate the hours a motivated beginner needs to study it,
and suggest a sustainable number of study hours per day for the whole path.
Answer ONLY with a JSON object:
{"estimates": [{"nodeTitle": "<title as given>", "estimatedHours": <number>, "description": "<what to focus on>"}],
 "suggestedDailyHours": <number>}`

// EstimateNode is one node of the ordered input.
type EstimateNode struct {
	ID          string
	Title       string
	Description string
}

// TimeEstimator turns an ordered node list into a WorkflowSchedule.
type TimeEstimator struct {
	llm   client.Completer
	cache *cache.TTLCache[model.WorkflowSchedule]
}

// NewTimeEstimator creates an estimator. c may be nil to disable caching.
func NewTimeEstimator(llm client.Completer, c *cache.TTLCache[model.WorkflowSchedule]) *TimeEstimator {
	return &TimeEstimator{llm: llm, cache: c}
}

type estimateAnswer struct {
	Estimates []struct {
		NodeTitle      string  `json:"nodeTitle"`
		EstimatedHours float64 `json:"estimatedHours"`
		Description    string  `json:"description"`
	} `json:"estimates"`
	SuggestedDailyHours float64 `json:"suggestedDailyHours"`
}

// EstimateWorkflowTime never fails: any model problem yields DefaultSchedule.
func (e *TimeEstimator) EstimateWorkflowTime(ctx context.Context, nodes []EstimateNode) model.WorkflowSchedule {
	return e.estimate(ctx, estimateCacheKey(nodes), nodes)
}

// EstimateSavedWorkflow is EstimateWorkflowTime for a stored workflow. Its
// cached result is dropped by Forget when the workflow changes.
func (e *TimeEstimator) EstimateSavedWorkflow(ctx context.Context, workflowID string, nodes []EstimateNode) model.WorkflowSchedule {
	return e.estimate(ctx, workflowID+":"+estimateCacheKey(nodes), nodes)
}

// Forget drops every cached estimate of the workflow.
func (e *TimeEstimator) Forget(workflowID string) int {
	if e.cache == nil || workflowID == "" {
		return 0
	}
	return e.cache.InvalidatePrefix(workflowID + ":")
}

func (e *TimeEstimator) estimate(ctx context.Context, key string, nodes []EstimateNode) model.WorkflowSchedule {
	if len(nodes) == 0 {
		return DefaultSchedule(nil)
	}

	if e.cache != nil {
		if s, ok := e.cache.Get(key); ok {
			return s
		}
	}

	var b strings.Builder
	for i, n := range nodes {
		fmt.Fprintf(&b, "%d. %s", i+1, n.Title)
		if n.Description != "" {
			fmt.Fprintf(&b, ": %s", n.Description)
		}
		b.WriteByte('\n')
	}

	out, err := e.llm.Complete(ctx, client.CompletionRequest{
		System:      estimateSystemPrompt,
		Prompt:      b.String(),
		Temperature: 0.3,
		MaxTokens:   200 + 80*len(nodes),
		JSONMode:    true,
	})
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Int("nodes", len(nodes)).Msg("Time estimate call failed, using defaults")
		return DefaultSchedule(nodes)
	}

	var answer estimateAnswer
	if err := decodeModelJSON(out, &answer); err != nil {
		logger.Get(ctx).Warn().Err(err).Str("output", truncateLog(out)).Msg("Unparsable time estimate, using defaults")
		return DefaultSchedule(nodes)
	}

	estimates := make([]model.NodeTimeEstimate, len(nodes))
	for i, n := range nodes {
		est := model.NodeTimeEstimate{
			NodeID:         n.ID,
			NodeTitle:      n.Title,
			EstimatedHours: DefaultNodeHours,
			Description:    n.Description,
		}

		j := matchEstimate(n.Title, i, answer)
		if j >= 0 {
			est.EstimatedHours = answer.Estimates[j].EstimatedHours
			if d := strings.TrimSpace(answer.Estimates[j].Description); d != "" {
				est.Description = d
			}
		}
		estimates[i] = est
	}

	schedule := buildSchedule(estimates, answer.SuggestedDailyHours)
	if e.cache != nil {
		e.cache.Set(key, schedule)
	}
	return schedule
}

// matchEstimate finds the model entry for the node at position i: first by
// case-insensitive containment in either direction, then by position.
// Entries with non-positive hours are ignored. Returns -1 if none applies.
func matchEstimate(title string, i int, answer estimateAnswer) int {
	want := NormalizeTitle(title)
	for j, est := range answer.Estimates {
		got := NormalizeTitle(est.NodeTitle)
		if est.EstimatedHours <= 0 || got == "" || want == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return j
		}
	}
	if i < len(answer.Estimates) && answer.Estimates[i].EstimatedHours > 0 {
		return i
	}
	return -1
}

// DefaultSchedule gives every node DefaultNodeHours at DefaultDailyHours per day.
func DefaultSchedule(nodes []EstimateNode) model.WorkflowSchedule {
	estimates := make([]model.NodeTimeEstimate, len(nodes))
	for i, n := range nodes {
		estimates[i] = model.NodeTimeEstimate{
			NodeID:         n.ID,
			NodeTitle:      n.Title,
			EstimatedHours: DefaultNodeHours,
			Description:    n.Description,
		}
	}
	return buildSchedule(estimates, DefaultDailyHours)
}

// buildSchedule totals the estimates. TotalDays is always recomputed here.
func buildSchedule(estimates []model.NodeTimeEstimate, pace float64) model.WorkflowSchedule {
	if pace <= 0 || math.IsNaN(pace) || math.IsInf(pace, 0) {
		pace = DefaultDailyHours
	}

	total := 0.0
	for _, e := range estimates {
		total += e.EstimatedHours
	}

	return model.WorkflowSchedule{
		TotalHours:          total,
		Nodes:               estimates,
		SuggestedDailyHours: pace,
		TotalDays:           int(math.Ceil(total / pace)),
	}
}

// estimateCacheKey hashes the ordered node list.
func estimateCacheKey(nodes []EstimateNode) string {
	d := xxhash.New()
	for _, n := range nodes {
		_, _ = d.WriteString(n.ID)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(n.Title)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(n.Description)
		_, _ = d.WriteString("\x1e")
	}
	return hex.EncodeToString(d.Sum(nil))
}
