package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultProviderTimeout bounds a single provider call.
	DefaultProviderTimeout = 10 * time.Second

	// Texts at or below this many characters always pass QuickCheck.
	quickCheckExemptLength = 5

	RulesReadyLine = "Rule-based moderation: ready"

	probeText = "Hello, this is a connectivity test."
)

// Orchestrator moderates content with an external provider and falls back
// to the RuleEngine whenever the provider is unavailable or fails. It holds
// no mutable state and is safe for concurrent use.
type Orchestrator struct {
	provider      Provider
	rules         *RuleEngine
	providerReady bool
	timeout       time.Duration
	metrics       *Metrics
}

type Option func(*Orchestrator)

// WithTimeout overrides DefaultProviderTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an Orchestrator. provider may be nil, in which case every
// call is served by rules. Provider readiness is read once here.
func New(provider Provider, rules *RuleEngine, opts ...Option) *Orchestrator {
	if rules == nil {
		rules = NewRuleEngine()
	}
	o := &Orchestrator{
		provider:      provider,
		rules:         rules,
		providerReady: provider != nil && provider.Ready(),
		timeout:       DefaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProviderReady reports whether Moderate will try the external provider.
func (o *Orchestrator) ProviderReady() bool { return o.providerReady }

// Moderate returns a verdict for text. Provider failures are never
// surfaced: they degrade to the rule-based verdict.
func (o *Orchestrator) Moderate(ctx context.Context, text string, category Category) Verdict {
	if o.providerReady {
		v, err := o.classify(ctx, text)
		if err == nil {
			o.metrics.observeVerdict(v)
			return v
		}

		pe := AsProviderError(err)
		o.metrics.observeProviderError(pe.Kind)
		slog.Warn("moderation provider failed, falling back to rules",
			"provider", o.provider.Name(),
			"kind", pe.Kind,
			"status", pe.StatusCode,
			"category", category,
			"error", pe.Err,
		)
	}

	v := o.rules.Evaluate(text)
	o.metrics.observeVerdict(v)
	return v
}

func (o *Orchestrator) classify(ctx context.Context, text string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	res, err := o.provider.Classify(ctx, text)
	o.metrics.observeProvider(start)
	if err != nil {
		return Verdict{}, err
	}
	if res == nil {
		return Verdict{}, &ProviderError{Kind: ErrKindMalformed, Err: fmt.Errorf("%s returned no result", o.provider.Name())}
	}
	return providerVerdict(res), nil
}

// providerVerdict maps the five provider categories onto a Verdict.
// Provider verdicts never carry sanitized content.
func providerVerdict(r *ProviderResult) Verdict {
	violations := []Violation{}
	confidence := 0.0
	for _, c := range r.categories() {
		if c.result.Flagged {
			violations = append(violations, c.kind)
		}
		confidence = max(confidence, c.result.Score)
	}
	return Verdict{
		ID:         uuid.NewString(),
		Allowed:    len(violations) == 0,
		Confidence: min(confidence, 1),
		Violations: violations,
		Source:     SourceProvider,
	}
}

// QuickCheck is the latency-bounded gate for real-time paths. It never
// calls the provider.
func (o *Orchestrator) QuickCheck(text string, category Category) bool {
	allowed := true
	if utf8.RuneCountInString(text) > quickCheckExemptLength {
		allowed = o.rules.Evaluate(text).Allowed
	}
	o.metrics.observeQuickCheck(allowed)
	return allowed
}

// TestServices probes the provider and reports one diagnostic line per
// strategy, provider first.
func (o *Orchestrator) TestServices(ctx context.Context) []string {
	lines := make([]string, 0, 2)

	switch {
	case o.provider == nil:
		lines = append(lines, "External moderation: not configured")
	case !o.providerReady:
		lines = append(lines, fmt.Sprintf("%s moderation: not configured (credential missing)", o.provider.Name()))
	default:
		ctx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		if _, err := unwrapProvider(o.provider).Classify(ctx, probeText); err != nil {
			lines = append(lines, fmt.Sprintf("%s moderation: unavailable (%v)", o.provider.Name(), err))
		} else {
			lines = append(lines, fmt.Sprintf("%s moderation: connected", o.provider.Name()))
		}
	}

	return append(lines, RulesReadyLine)
}

// unwrapProvider strips decorators such as CachedProvider so a probe
// reaches the real service.
func unwrapProvider(p Provider) Provider {
	for {
		u, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			return p
		}
		p = u.Unwrap()
	}
}
