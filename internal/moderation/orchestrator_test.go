package moderation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	ready  bool
	result *ProviderResult
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Ready() bool { return f.ready }

func (f *fakeProvider) Classify(ctx context.Context, _ string) (*ProviderResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.result, f.err
}

func withoutID(v Verdict) Verdict {
	v.ID = ""
	return v
}

func TestOrchestrator_Moderate_ProviderVerdict(t *testing.T) {
	p := &fakeProvider{
		ready: true,
		result: &ProviderResult{
			Flagged:    true,
			Hate:       CategoryResult{Flagged: true, Score: 0.91},
			Harassment: CategoryResult{Score: 0.2},
			Violence:   CategoryResult{Score: 0.4},
			SelfHarm:   CategoryResult{Score: 0.01},
			Sexual:     CategoryResult{Flagged: true, Score: 0.65},
		},
	}
	o := New(p, NewRuleEngine())

	v := o.Moderate(context.Background(), "contact me at alex@example.com", CategoryComment)

	assert.False(t, v.Allowed)
	assert.Equal(t, []Violation{ViolationHate, ViolationSexual}, v.Violations)
	assert.Equal(t, 0.91, v.Confidence)
	assert.Nil(t, v.SanitizedContent)
	assert.Equal(t, SourceProvider, v.Source)
	assert.NotEmpty(t, v.ID)
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestOrchestrator_Moderate_CleanProviderVerdict(t *testing.T) {
	p := &fakeProvider{
		ready:  true,
		result: &ProviderResult{Harassment: CategoryResult{Score: 0.03}},
	}
	o := New(p, NewRuleEngine())

	// The provider does not cover spam, so shouting passes.
	v := o.Moderate(context.Background(), "BUY NOW CHEAP DEALS TODAY", CategoryIdea)

	assert.True(t, v.Allowed)
	assert.Empty(t, v.Violations)
	assert.Equal(t, 0.03, v.Confidence)
	assert.Equal(t, SourceProvider, v.Source)
}

func TestOrchestrator_Moderate_FallbackMatchesRules(t *testing.T) {
	failures := map[string]error{
		"http 500":       &ProviderError{Kind: ErrKindHTTP, StatusCode: 500},
		"malformed":      &ProviderError{Kind: ErrKindMalformed},
		"credential":     &ProviderError{Kind: ErrKindCredentialMissing, Err: ErrCredentialMissing},
		"untyped":        errors.New("connection reset by peer"),
		"nil result":     nil,
		"deadline":       context.DeadlineExceeded,
		"wrapped status": errors.Join(errors.New("upstream"), &ProviderError{Kind: ErrKindHTTP, StatusCode: 502}),
	}
	inputs := []string{
		"I have a great idea for a mobile app",
		"BUY NOW CHEAP DEALS TODAY",
		"contact me at alex@example.com please",
		"",
	}
	rules := NewRuleEngine()

	for name, err := range failures {
		t.Run(name, func(t *testing.T) {
			p := &fakeProvider{ready: true, err: err}
			o := New(p, rules)
			for _, in := range inputs {
				got := o.Moderate(context.Background(), in, CategoryChat)
				assert.Equal(t, withoutID(rules.Evaluate(in)), withoutID(got), "input %q", in)
			}
			assert.EqualValues(t, len(inputs), p.calls.Load())
		})
	}
}

func TestOrchestrator_Moderate_ProviderNotReady(t *testing.T) {
	p := &fakeProvider{ready: false, result: &ProviderResult{}}
	o := New(p, nil)

	v := o.Moderate(context.Background(), "this is a scam", CategoryChat)

	assert.False(t, o.ProviderReady())
	assert.Equal(t, SourceRules, v.Source)
	assert.Equal(t, []Violation{ViolationProfanity}, v.Violations)
	assert.Zero(t, p.calls.Load())
}

func TestOrchestrator_Moderate_NilProvider(t *testing.T) {
	o := New(nil, nil)
	v := o.Moderate(context.Background(), "hello pod", CategoryPodDescription)
	assert.True(t, v.Allowed)
	assert.Equal(t, SourceRules, v.Source)
}

func TestOrchestrator_Moderate_TimeoutFallsBack(t *testing.T) {
	p := &fakeProvider{ready: true, result: &ProviderResult{}, delay: time.Second}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	o := New(p, nil, WithTimeout(20*time.Millisecond), WithMetrics(m))

	start := time.Now()
	v := o.Moderate(context.Background(), "BUY NOW CHEAP DEALS TODAY", CategoryChat)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, SourceRules, v.Source)
	assert.True(t, v.Has(ViolationSpam))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderErrors.WithLabelValues(string(ErrKindTimeout))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verdicts.WithLabelValues(string(SourceRules), "false")))
}

func TestOrchestrator_QuickCheck(t *testing.T) {
	p := &fakeProvider{ready: true, result: &ProviderResult{Hate: CategoryResult{Flagged: true, Score: 1}}}
	o := New(p, nil)

	assert.True(t, o.QuickCheck("spam", CategoryChat), "short text is exempt")
	assert.True(t, o.QuickCheck("scam!", CategoryChat), "five characters is exempt")
	assert.True(t, o.QuickCheck("🔥🔥🔥🔥🔥", CategoryChat))
	assert.False(t, o.QuickCheck("this is spam", CategoryChat))
	assert.False(t, o.QuickCheck("mail me at a@b.co", CategoryComment))
	assert.True(t, o.QuickCheck("see you at standup", CategoryChat))
	assert.Zero(t, p.calls.Load(), "quick check must not call the provider")
}

func TestOrchestrator_TestServices(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		o := New(&fakeProvider{ready: true, result: &ProviderResult{}}, nil)
		assert.Equal(t, []string{"fake moderation: connected", RulesReadyLine}, o.TestServices(context.Background()))
	})

	t.Run("unavailable", func(t *testing.T) {
		o := New(&fakeProvider{ready: true, err: &ProviderError{Kind: ErrKindHTTP, StatusCode: 503}}, nil)
		lines := o.TestServices(context.Background())
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "unavailable")
		assert.Contains(t, lines[0], "503")
		assert.Equal(t, RulesReadyLine, lines[1])
	})

	t.Run("not configured", func(t *testing.T) {
		p := &fakeProvider{ready: false}
		o := New(p, nil)
		lines := o.TestServices(context.Background())
		assert.Equal(t, "fake moderation: not configured (credential missing)", lines[0])
		assert.Zero(t, p.calls.Load())
	})

	t.Run("no provider", func(t *testing.T) {
		o := New(nil, nil)
		assert.Equal(t, []string{"External moderation: not configured", RulesReadyLine}, o.TestServices(context.Background()))
	})
}

func TestOrchestrator_ConcurrentModerate(t *testing.T) {
	p := &fakeProvider{ready: true, err: &ProviderError{Kind: ErrKindHTTP, StatusCode: 500}}
	o := New(p, nil, WithMetrics(NewMetrics(prometheus.NewRegistry())))

	var wg sync.WaitGroup
	ids := make([]string, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = o.Moderate(context.Background(), "contact me at alex@example.com please", CategoryChat).ID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate moderation id %s", id)
		seen[id] = true
	}
	assert.EqualValues(t, 50, p.calls.Load())
}

func TestCredentialUsable(t *testing.T) {
	for _, key := range []string{"", "  ", "YOUR_OPENAI_API_KEY", "your-api-key", "sk-your-key-here", "sk-xxxxxxxx"} {
		assert.False(t, CredentialUsable(key), "key %q", key)
	}
	assert.True(t, CredentialUsable("sk-proj-4f9a1c"))
}
