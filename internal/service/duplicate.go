package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
)

// DefaultDuplicateVerdict is returned when the model is unavailable. The
// check fails open: a new title is accepted.
var DefaultDuplicateVerdict = DuplicateResult{
	IsDuplicate: false,
	Reason:      "Duplicate check is temporarily unavailable; the title was accepted.",
}

const duplicateSystemPrompt = `You check whether a NEW learning-node title duplicates an EXISTING title in the same topic.
Only literal or near-literal duplication counts: different casing, abbreviations
("JS" vs "JavaScript"), spacing, punctuation or pluralisation.
Topics that are merely related or overlapping (e.g. "Python Basics" vs "Python OOP") are NOT duplicates.
Answer ONLY with a JSON object:
{"isDuplicate": true|false, "reason": "<short explanation>", "similarTitle": "<the existing title it duplicates, or empty>"}`

// NodeCandidate is an existing node a new title is compared against.
type NodeCandidate struct {
	ID          string
	Title       string
	Description string
}

// DuplicateResult is the outcome of a duplicate check.
type DuplicateResult struct {
	IsDuplicate bool
	Reason      string
	SimilarNode *model.SimilarNode
}

// DuplicateChecker detects near-literal duplicate node titles.
type DuplicateChecker struct {
	llm client.Completer
}

// NewDuplicateChecker creates a checker backed by the given completer.
func NewDuplicateChecker(llm client.Completer) *DuplicateChecker {
	return &DuplicateChecker{llm: llm}
}

type duplicateAnswer struct {
	IsDuplicate  bool   `json:"isDuplicate"`
	Reason       string `json:"reason"`
	SimilarTitle string `json:"similarTitle"`
}

// Check compares newTitle with the existing nodes of a topic.
func (d *DuplicateChecker) Check(ctx context.Context, newTitle string, existing []NodeCandidate) DuplicateResult {
	if len(existing) == 0 {
		return DuplicateResult{Reason: "No existing nodes in this topic."}
	}

	target := compactTitle(newTitle)
	for _, c := range existing {
		if compactTitle(c.Title) == target {
			return DuplicateResult{
				IsDuplicate: true,
				Reason:      fmt.Sprintf("A node titled %q already exists in this topic.", c.Title),
				SimilarNode: &model.SimilarNode{ID: c.ID, Title: c.Title},
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "NEW: %s\nEXISTING:\n", strings.TrimSpace(newTitle))
	for _, c := range existing {
		if c.Description != "" {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Title, c.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", c.Title)
		}
	}

	out, err := d.llm.Complete(ctx, client.CompletionRequest{
		System:      duplicateSystemPrompt,
		Prompt:      b.String(),
		Temperature: 0,
		MaxTokens:   200,
		JSONMode:    true,
	})
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Str("title", newTitle).Msg("Duplicate check call failed, accepting title")
		return DefaultDuplicateVerdict
	}

	var answer duplicateAnswer
	if err := decodeModelJSON(out, &answer); err != nil {
		logger.Get(ctx).Warn().Err(err).Str("output", truncateLog(out)).Msg("Unparsable duplicate check answer, accepting title")
		return DefaultDuplicateVerdict
	}

	result := DuplicateResult{IsDuplicate: answer.IsDuplicate, Reason: strings.TrimSpace(answer.Reason)}
	if answer.IsDuplicate {
		result.SimilarNode = resolveCandidate(answer.SimilarTitle, existing)
	}
	return result
}

// resolveCandidate maps the model's claimed title back to a real node.
func resolveCandidate(title string, existing []NodeCandidate) *model.SimilarNode {
	want := NormalizeTitle(title)
	if want == "" {
		return nil
	}
	for _, c := range existing {
		if NormalizeTitle(c.Title) == want {
			return &model.SimilarNode{ID: c.ID, Title: c.Title}
		}
	}
	return nil
}
