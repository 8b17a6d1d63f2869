package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TimUdinusYes/backend/internal/client"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
)

// DefaultValidationVerdict is returned whenever the model cannot produce a
// usable answer. Validation fails open: an unreachable model never blocks a
// learner from connecting two nodes.
var DefaultValidationVerdict = model.ValidationVerdict{
	IsValid: true,
	Reason:  "Path validation is temporarily unavailable; the connection was accepted without review.",
}

const validationSystemPrompt = `You are a curriculum designer reviewing a learning path.
Given a FROM topic and a TO topic, decide whether studying FROM before TO is a sensible
pedagogical order (FROM is a prerequisite of, or a natural step toward, TO).
Answer ONLY with a JSON object:
{"isValid": true|false, "reason": "<one or two sentences>", "recommendation": "<optional: a better next topic or a missing prerequisite>"}`

// PathValidator asks the model whether one topic should precede another.
type PathValidator struct {
	llm client.Completer
}

// NewPathValidator creates a validator backed by the given completer.
func NewPathValidator(llm client.Completer) *PathValidator {
	return &PathValidator{llm: llm}
}

type validationAnswer struct {
	IsValid        *bool  `json:"isValid"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
}

// Validate makes a single attempt. ok is false when the default verdict was
// substituted, so callers can avoid caching it.
func (v *PathValidator) Validate(ctx context.Context, fromTitle, toTitle string) (verdict model.ValidationVerdict, ok bool) {
	log := logger.Get(ctx)

	out, err := v.llm.Complete(ctx, client.CompletionRequest{
		System:      validationSystemPrompt,
		Prompt:      fmt.Sprintf("FROM: %s\nTO: %s", strings.TrimSpace(fromTitle), strings.TrimSpace(toTitle)),
		Temperature: 0.2,
		MaxTokens:   300,
		JSONMode:    true,
	})
	if err != nil {
		log.Warn().Err(err).Str("from", fromTitle).Str("to", toTitle).Msg("Path validation call failed, using default verdict")
		return DefaultValidationVerdict, false
	}

	var answer validationAnswer
	if err := decodeModelJSON(out, &answer); err != nil || answer.IsValid == nil {
		log.Warn().Err(err).Str("output", truncateLog(out)).Msg("Unparsable path validation answer, using default verdict")
		return DefaultValidationVerdict, false
	}

	return model.ValidationVerdict{
		IsValid:        *answer.IsValid,
		Reason:         strings.TrimSpace(answer.Reason),
		Recommendation: strings.TrimSpace(answer.Recommendation),
	}, true
}

func truncateLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return truncateUTF8(s, max) + "..."
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
