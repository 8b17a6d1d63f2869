package service

import (
	"context"
	"errors"

	"github.com/TimUdinusYes/backend/internal/cache"
	"github.com/TimUdinusYes/backend/internal/logger"
	"github.com/TimUdinusYes/backend/internal/model"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyTitle is returned when either side of a pair is blank.
var ErrEmptyTitle = errors.New("both titles are required")

// ValidationStore is the durable verdict cache.
type ValidationStore interface {
	Get(ctx context.Context, sourceName, targetName string) (*model.NodePairValidation, error)
	Upsert(ctx context.Context, v model.NodePairValidation) error
}

// EdgeAnnotator copies a verdict onto the caller's workflow edges.
type EdgeAnnotator interface {
	AnnotateEdges(ctx context.Context, userID, sourceNodeID, targetNodeID string, isValid bool, reason string) (int64, error)
}

// ValidationOutcome is a verdict plus the layer that produced it.
type ValidationOutcome struct {
	model.ValidationVerdict
	FromDatabase bool
	FromCache    bool
}

// PathValidationService resolves a verdict through the durable store, then
// the in-memory cache, then the model.
type PathValidationService struct {
	store     ValidationStore
	cache     *cache.TTLCache[model.ValidationVerdict]
	validator *PathValidator
	edges     EdgeAnnotator
	group     singleflight.Group
}

// NewPathValidationService wires the chain. edges may be nil.
func NewPathValidationService(store ValidationStore, c *cache.TTLCache[model.ValidationVerdict], validator *PathValidator, edges EdgeAnnotator) *PathValidationService {
	return &PathValidationService{
		store:     store,
		cache:     c,
		validator: validator,
		edges:     edges,
	}
}

// ResolveValidation returns the verdict for studying fromTitle before toTitle.
// Store failures are logged and treated as misses; only blank titles error.
func (s *PathValidationService) ResolveValidation(ctx context.Context, fromTitle, toTitle string) (*ValidationOutcome, error) {
	from, to := NormalizeTitle(fromTitle), NormalizeTitle(toTitle)
	if from == "" || to == "" {
		return nil, ErrEmptyTitle
	}
	log := logger.Get(ctx)

	if out := s.lookupDurable(ctx, from, to); out != nil {
		return out, nil
	}

	key := PairKey(from, to)
	if v, ok := s.cache.Get(key); ok {
		return &ValidationOutcome{ValidationVerdict: v, FromCache: true}, nil
	}

	// Concurrent misses on the same pair share one model call. The shared
	// call must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	res, _, _ := s.group.Do(key, func() (interface{}, error) {
		// A call that finished while we were on our way here already stored it.
		if out := s.lookupDurable(shared, from, to); out != nil {
			return *out, nil
		}
		if v, ok := s.cache.Get(key); ok {
			return ValidationOutcome{ValidationVerdict: v, FromCache: true}, nil
		}

		verdict, ok := s.validator.Validate(shared, fromTitle, toTitle)
		if !ok {
			return ValidationOutcome{ValidationVerdict: verdict}, nil
		}

		rec := model.NodePairValidation{
			SourceName: from,
			TargetName: to,
			IsValid:    verdict.IsValid,
			Reason:     verdict.Reason,
		}
		if verdict.Recommendation != "" {
			r := verdict.Recommendation
			rec.Recommendation = &r
		}
		if err := s.store.Upsert(shared, rec); err != nil {
			log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Failed to persist validation verdict")
		}

		s.cache.Set(key, verdict)
		return ValidationOutcome{ValidationVerdict: verdict}, nil
	})

	out := res.(ValidationOutcome)
	return &out, nil
}

// lookupDurable returns nil on a miss or a store failure.
func (s *PathValidationService) lookupDurable(ctx context.Context, from, to string) *ValidationOutcome {
	rec, err := s.store.Get(ctx, from, to)
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Str("from", from).Str("to", to).Msg("Durable validation lookup failed, continuing")
		return nil
	}
	if rec == nil {
		return nil
	}
	out := &ValidationOutcome{
		ValidationVerdict: model.ValidationVerdict{IsValid: rec.IsValid, Reason: rec.Reason},
		FromDatabase:      true,
	}
	if rec.Recommendation != nil {
		out.Recommendation = *rec.Recommendation
	}
	return out
}

// LinkEdges writes the verdict onto every edge of the user's workflows that
// connects the two nodes. It returns the number of edges updated.
func (s *PathValidationService) LinkEdges(ctx context.Context, userID, fromNodeID, toNodeID string, verdict model.ValidationVerdict) int64 {
	if s.edges == nil || fromNodeID == "" || toNodeID == "" {
		return 0
	}
	n, err := s.edges.AnnotateEdges(ctx, userID, fromNodeID, toNodeID, verdict.IsValid, verdict.Reason)
	if err != nil {
		logger.Get(ctx).Warn().Err(err).
			Str("from_node", fromNodeID).
			Str("to_node", toNodeID).
			Msg("Failed to annotate workflow edges")
		return 0
	}
	return n
}
