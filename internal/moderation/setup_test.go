package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ideapods/moderation/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	o := NewFromConfig(config.ModerationConfig{Timeout: time.Second}, nil, nil)
	assert.False(t, o.ProviderReady())
	assert.Equal(t, SourceRules, o.Moderate(context.Background(), "hello", CategoryChat).Source)

	o = NewFromConfig(config.ModerationConfig{OpenAIKey: "sk-proj-4f9a1c", Timeout: time.Second, CacheTTL: time.Minute}, newMemoryStore(), nil)
	assert.True(t, o.ProviderReady())
	_, cached := o.provider.(*CachedProvider)
	assert.True(t, cached)
	assert.Equal(t, time.Second, o.timeout)
}
