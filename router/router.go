package router

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajmitchell/switchboard/modelkit"
)

// DefaultThreshold is the score at which a prompt routes to the premium
// tier.
const DefaultThreshold = 3

// Decision is the outcome of routing one prompt.
type Decision struct {
	// Tier is the tier the score asked for.
	Tier modelkit.Tier
	// Model is the catalog entry actually selected.
	Model modelkit.ModelInfo
	// Score is the heuristic complexity score that drove the decision.
	Score int
	// Downgraded is true when the premium tier was requested but no
	// premium model was available, so a free model serves the request.
	// The downgrade is reported rather than hidden behind the tier label.
	Downgraded bool
}

// Router maps prompts to catalog models.
type Router struct {
	catalog   *modelkit.Catalog
	threshold int
	logger    *zap.Logger
}

// New creates a Router over a catalog. A threshold <= 0 selects
// DefaultThreshold.
func New(catalog *modelkit.Catalog, threshold int, logger *zap.Logger) *Router {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{catalog: catalog, threshold: threshold, logger: logger}
}

// Route scores the prompt and picks a model for the resulting tier.
func (r *Router) Route(prompt string) (Decision, error) {
	score := Score(prompt)
	tier := modelkit.TierFree
	if score >= r.threshold {
		tier = modelkit.TierPremium
	}

	decision := Decision{Tier: tier, Score: score}

	model := r.catalog.FirstForTier(tier)
	if model == nil && tier == modelkit.TierPremium {
		model = r.catalog.FirstForTier(modelkit.TierFree)
		decision.Downgraded = true
	}
	if model == nil {
		return Decision{}, fmt.Errorf("no tool-capable model available for tier %s", tier)
	}
	decision.Model = *model

	r.logger.Debug("routed prompt",
		zap.Int("score", score),
		zap.String("tier", string(tier)),
		zap.String("model", model.ID),
		zap.Bool("downgraded", decision.Downgraded))
	return decision, nil
}
