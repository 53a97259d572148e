// Package llm wraps the text-generation provider behind a small Client
// interface with tiered model selection.
package llm

// ModelTier selects a model by task weight.
type ModelTier string

const (
	// TierLite serves short extraction calls: skills and knowledge maps.
	TierLite ModelTier = "lite"
	// TierStandard serves summaries and profile text.
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for heavier reasoning.
	TierAdvanced ModelTier = "advanced"
)

// Provider names an LLM vendor.
type Provider string

// ProviderGemini is the only implemented provider.
const ProviderGemini Provider = "gemini"

// Config holds model selection for the client.
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
	// MaxOutputTokens caps response size per tier; zero leaves the provider default.
	MaxOutputTokens map[ModelTier]int32
}

// DefaultConfig returns the default configuration (Gemini).
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration.
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.2,
		MaxOutputTokens: map[ModelTier]int32{
			TierLite:     300,
			TierStandard: 2000,
		},
	}
}

// GetModel returns the model name for tier, falling back to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// MaxTokens returns the output cap for tier, or 0.
func (c *Config) MaxTokens(tier ModelTier) int32 {
	return c.MaxOutputTokens[tier]
}

// WithModel returns a copy of c with tier served by model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider:        c.Provider,
		Models:          make(map[ModelTier]string, len(c.Models)+1),
		Temperature:     c.Temperature,
		MaxOutputTokens: make(map[ModelTier]int32, len(c.MaxOutputTokens)),
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	for k, v := range c.MaxOutputTokens {
		out.MaxOutputTokens[k] = v
	}
	out.Models[tier] = model
	return out
}
