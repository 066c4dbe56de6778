package services

import (
	"context"
	"fmt"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// Routing score weights. Success rate dominates, observed latency and
// declared cost break the field apart.
const (
	weightSuccessRate = 0.5
	weightLatency     = 0.3
	weightCost        = 0.2

	// latencyScaleMs is the EWMA latency at which the latency score
	// halves. Models answering in ~0ms score 1.0, models at 1s score 0.5.
	latencyScaleMs = 1000.0

	// maxDeclaredCost is the top of the declared cost scale.
	maxDeclaredCost = 100.0
)

// Router recommends a generation model for a category under a resource
// budget, based on the registry's descriptors and rolling stats.
type Router struct {
	models driving.ModelsService
}

// Ensure Router implements the interface.
var _ driving.ModelRouter = (*Router)(nil)

// NewRouter creates a router over the given model registry.
func NewRouter(models driving.ModelsService) *Router {
	return &Router{models: models}
}

// Recommend returns the best-scoring active model in the category whose
// declared cost fits the budget (budget <= 0 means unconstrained).
//
// When nothing in the category fits, the router falls back to the
// cheapest active lightweight model, exceeding the budget if it must;
// this is the only permitted budget violation. When no lightweight model
// is active either, it returns the cheapest active model of any
// category. Only a registry with every model deactivated yields
// domain.ErrResourceExhausted.
func (r *Router) Recommend(ctx context.Context, category domain.ModelCategory, budget int) (*domain.ModelDescriptor, error) {
	if !category.IsValid() {
		return nil, domain.Errorf(domain.CodeInvalidInput, "unknown model category %q", category)
	}

	snapshots, err := r.models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	active := make([]domain.ModelSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Descriptor.Active {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil, domain.ErrResourceExhausted
	}

	if best := pickBest(inCategoryWithinBudget(active, category, budget)); best != nil {
		logger.Debug("Routing %s (budget %d) to %q", category, budget, best.Name)
		return best, nil
	}

	if fallback := cheapest(inCategory(active, domain.CategoryLightweight)); fallback != nil {
		logger.Warn("No %s model within budget %d; falling back to lightweight %q", category, budget, fallback.Name)
		return fallback, nil
	}

	fallback := cheapest(active)
	logger.Warn("No %s or lightweight model available; falling back to %q", category, fallback.Name)
	return fallback, nil
}

// routingScore combines success rate, smoothed latency, and declared
// cost into a single comparable score in [0,1].
func routingScore(snap domain.ModelSnapshot) float64 {
	successRate := snap.Stats.SuccessRate()
	latencyScore := 1.0 / (1.0 + snap.Stats.LatencyEWMAMs/latencyScaleMs)
	costScore := 1.0 - float64(snap.Descriptor.Cost)/maxDeclaredCost
	if costScore < 0 {
		costScore = 0
	}
	return successRate*weightSuccessRate + latencyScore*weightLatency + costScore*weightCost
}

// inCategoryWithinBudget filters to models of the category whose cost
// fits the budget. A budget of zero or less disables the cost filter.
func inCategoryWithinBudget(snapshots []domain.ModelSnapshot, category domain.ModelCategory, budget int) []domain.ModelSnapshot {
	matched := make([]domain.ModelSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Descriptor.Category != category {
			continue
		}
		if budget > 0 && s.Descriptor.Cost > budget {
			continue
		}
		matched = append(matched, s)
	}
	return matched
}

// inCategory filters to models of the category, ignoring cost.
func inCategory(snapshots []domain.ModelSnapshot, category domain.ModelCategory) []domain.ModelSnapshot {
	matched := make([]domain.ModelSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Descriptor.Category == category {
			matched = append(matched, s)
		}
	}
	return matched
}

// pickBest returns the highest-scoring candidate. Ties go to the
// cheaper model, then to catalogue order, so the choice is
// deterministic. Returns nil for an empty field.
func pickBest(candidates []domain.ModelSnapshot) *domain.ModelDescriptor {
	var best *domain.ModelSnapshot
	var bestScore float64

	for i := range candidates {
		score := routingScore(candidates[i])
		switch {
		case best == nil, score > bestScore:
			best, bestScore = &candidates[i], score
		case score == bestScore && candidates[i].Descriptor.Cost < best.Descriptor.Cost:
			best = &candidates[i]
		}
	}

	if best == nil {
		return nil
	}
	desc := best.Descriptor
	return &desc
}

// cheapest returns the lowest-cost candidate, ties broken by catalogue
// order. Returns nil for an empty field.
func cheapest(candidates []domain.ModelSnapshot) *domain.ModelDescriptor {
	var best *domain.ModelSnapshot
	for i := range candidates {
		if best == nil || candidates[i].Descriptor.Cost < best.Descriptor.Cost {
			best = &candidates[i]
		}
	}

	if best == nil {
		return nil
	}
	desc := best.Descriptor
	return &desc
}
