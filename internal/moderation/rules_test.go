package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleEngine_Evaluate(t *testing.T) {
	engine := NewRuleEngine()

	tests := []struct {
		name       string
		text       string
		allowed    bool
		violations []Violation
		sanitized  string
	}{
		{
			name:       "benign text",
			text:       "I have a great idea for a mobile app",
			allowed:    true,
			violations: []Violation{},
		},
		{
			name:       "empty string",
			text:       "",
			allowed:    true,
			violations: []Violation{},
		},
		{
			name:       "shouting",
			text:       "BUY NOW CHEAP DEALS TODAY",
			violations: []Violation{ViolationSpam},
			sanitized:  "BUY NOW CHEAP DEALS TODAY",
		},
		{
			name:       "short upper case is not shouting",
			text:       "HELLO THERE",
			allowed:    true,
			violations: []Violation{},
		},
		{
			name:       "fifteen upper case characters is not shouting",
			text:       "ABCDEFGHIJKLMNO",
			allowed:    true,
			violations: []Violation{},
		},
		{
			name:       "sixteen upper case characters is shouting",
			text:       "ABCDEFGHIJKLMNOP",
			violations: []Violation{ViolationSpam},
			sanitized:  "ABCDEFGHIJKLMNOP",
		},
		{
			name:       "emoji heavy",
			text:       "🔥🔥🔥 hi",
			violations: []Violation{ViolationSpam},
			sanitized:  "🔥🔥🔥 hi",
		},
		{
			name:       "emoji exactly one third",
			text:       "🔥ab",
			allowed:    true,
			violations: []Violation{},
		},
		{
			name:       "email address",
			text:       "contact me at alex@example.com please",
			violations: []Violation{ViolationPersonalInfo},
			sanitized:  "contact me at [EMAIL_REMOVED] please",
		},
		{
			name:       "email is case insensitive and trimmed",
			text:       "  reach Alex.Smith@Mail-Host.Example.ORG ",
			violations: []Violation{ViolationPersonalInfo},
			sanitized:  "reach [EMAIL_REMOVED]",
		},
		{
			name:       "keyword is not redacted",
			text:       "  this offer is a scam  ",
			violations: []Violation{ViolationProfanity},
			sanitized:  "this offer is a scam",
		},
		{
			name:       "keyword matched case insensitively",
			text:       "That review looks Fake to me",
			violations: []Violation{ViolationProfanity},
			sanitized:  "That review looks Fake to me",
		},
		{
			name:       "every heuristic",
			text:       "THIS IS A SCAM, EMAIL ME AT BOB@EXAMPLE.COM",
			violations: []Violation{ViolationSpam, ViolationPersonalInfo, ViolationProfanity},
			sanitized:  "THIS IS A SCAM, EMAIL ME AT [EMAIL_REMOVED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := engine.Evaluate(tt.text)

			assert.Equal(t, tt.allowed, v.Allowed)
			assert.Equal(t, tt.violations, v.Violations)
			assert.Equal(t, SourceRules, v.Source)
			assert.NotEmpty(t, v.ID)
			if tt.allowed {
				assert.Equal(t, 0.1, v.Confidence)
				assert.Nil(t, v.SanitizedContent)
				return
			}
			assert.Equal(t, 0.7, v.Confidence)
			require.NotNil(t, v.SanitizedContent)
			assert.Equal(t, tt.sanitized, *v.SanitizedContent)
		})
	}
}

func TestRuleEngine_Invariants(t *testing.T) {
	engine := NewRuleEngine()
	known := map[Violation]bool{}
	for _, k := range AllViolations() {
		known[k] = true
	}

	inputs := []string{
		"", " ", "a", "ok", "🙂", "🙂🙂🙂🙂", "1234567890123456",
		"Great pod meeting today!", "fake", "x@y.io", "no-at-sign.example.com",
		strings.Repeat("long text with words ", 200),
		"été à Paris", "\xff\xfe invalid utf8",
	}
	for _, in := range inputs {
		v := engine.Evaluate(in)
		assert.Equal(t, len(v.Violations) == 0, v.Allowed, "input %q", in)
		for _, k := range v.Violations {
			assert.True(t, known[k], "unknown violation %q for %q", k, in)
		}
		if v.SanitizedContent != nil {
			assert.False(t, emailPattern.MatchString(*v.SanitizedContent), "email survived sanitizing %q", in)
		}
	}
}

func TestRuleEngine_Deterministic(t *testing.T) {
	engine := NewRuleEngine()
	text := "Ping me at dev@pods.app, this is NOT spam"

	first := engine.Evaluate(text)
	second := engine.Evaluate(text)

	assert.Equal(t, first.Allowed, second.Allowed)
	assert.Equal(t, first.Violations, second.Violations)
	assert.Equal(t, first.SanitizedContent, second.SanitizedContent)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, CategoryChat, c)

	c, err = ParseCategory("Idea")
	require.NoError(t, err)
	assert.Equal(t, CategoryIdea, c)

	c, err = ParseCategory("pod-description")
	require.NoError(t, err)
	assert.Equal(t, CategoryPodDescription, c)

	_, err = ParseCategory("billboard")
	assert.Error(t, err)
}
