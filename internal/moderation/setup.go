package moderation

import (
	"log/slog"

	"github.com/ideapods/moderation/internal/config"
)

// NewFromConfig builds the production Orchestrator: OpenAI as provider,
// optionally cached in store, with the rule engine as fallback. store may
// be nil.
func NewFromConfig(cfg config.ModerationConfig, store ResultStore, metrics *Metrics) *Orchestrator {
	var provider Provider = NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if store != nil && cfg.CacheTTL > 0 {
		provider = NewCachedProvider(provider, store, cfg.CacheTTL)
	}

	o := New(provider, NewRuleEngine(), WithTimeout(cfg.Timeout), WithMetrics(metrics))
	if !o.ProviderReady() {
		slog.Warn("no usable OPENAI_API_KEY, moderation will use rules only")
	}
	return o
}
