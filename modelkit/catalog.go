package modelkit

// Tier classifies a model family for routing purposes. Free-tier models
// serve simple prompts; premium models serve prompts the router scores as
// complex.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	Tier          Tier     `json:"tier"`
	ContextWindow int      `json:"context_window"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Catalog is an ordered collection of model metadata. Entries are listed
// newest/best first per provider, so tier lookups return the preferred
// model for that tier.
type Catalog struct {
	models []ModelInfo
}

// NewCatalog creates a catalog from the given entries.
func NewCatalog(models []ModelInfo) *Catalog {
	c := &Catalog{models: make([]ModelInfo, len(models))}
	copy(c.models, models)
	return c
}

// DefaultCatalog returns the built-in model catalog (February 2026).
func DefaultCatalog() *Catalog {
	return NewCatalog([]ModelInfo{
		{
			ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
			Tier: TierPremium, ContextWindow: 1047576, SupportsTools: true,
			Aliases: []string{"gpt5"},
		},
		{
			ID: "claude-opus-4-6", Provider: "anthropic", DisplayName: "Claude Opus 4.6",
			Tier: TierPremium, ContextWindow: 200000, SupportsTools: true,
			Aliases: []string{"opus", "claude-opus"},
		},
		{
			ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
			Tier: TierPremium, ContextWindow: 200000, SupportsTools: true,
			Aliases: []string{"sonnet", "claude-sonnet"},
		},
		{
			ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
			Tier: TierFree, ContextWindow: 1047576, SupportsTools: true,
			Aliases: []string{"gpt5-mini"},
		},
		{
			ID: "gemini-3-flash-preview", Provider: "gemini", DisplayName: "Gemini 3 Flash (Preview)",
			Tier: TierFree, ContextWindow: 1048576, SupportsTools: true,
			Aliases: []string{"gemini-flash"},
		},
	})
}

// Lookup returns the catalog entry for a model ID or alias, or nil if
// unknown.
func (c *Catalog) Lookup(modelID string) *ModelInfo {
	for i := range c.models {
		if c.models[i].ID == modelID {
			return &c.models[i]
		}
		for _, alias := range c.models[i].Aliases {
			if alias == modelID {
				return &c.models[i]
			}
		}
	}
	return nil
}

// List returns all models, optionally filtered by tier.
func (c *Catalog) List(tier Tier) []ModelInfo {
	if tier == "" {
		result := make([]ModelInfo, len(c.models))
		copy(result, c.models)
		return result
	}
	var result []ModelInfo
	for _, m := range c.models {
		if m.Tier == tier {
			result = append(result, m)
		}
	}
	return result
}

// FirstForTier returns the preferred tool-capable model for a tier, or nil
// if the catalog has none.
func (c *Catalog) FirstForTier(tier Tier) *ModelInfo {
	for i := range c.models {
		if c.models[i].Tier == tier && c.models[i].SupportsTools {
			return &c.models[i]
		}
	}
	return nil
}
