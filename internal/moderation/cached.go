package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/ideapods/moderation/internal/cache"
)

// ResultStore persists provider results between calls.
type ResultStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedProvider serves repeated texts from a ResultStore. Only successful
// results are stored; store failures are logged and otherwise ignored.
type CachedProvider struct {
	next  Provider
	store ResultStore
	ttl   time.Duration
}

func NewCachedProvider(next Provider, store ResultStore, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, store: store, ttl: ttl}
}

func (p *CachedProvider) Name() string { return p.next.Name() }

func (p *CachedProvider) Ready() bool { return p.next.Ready() }

// Unwrap returns the decorated provider.
func (p *CachedProvider) Unwrap() Provider { return p.next }

func (p *CachedProvider) Classify(ctx context.Context, text string) (*ProviderResult, error) {
	key := p.cacheKey(text)

	var cached ProviderResult
	err := p.store.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("moderation cache read failed", "error", err)
	}

	res, err := p.next.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := p.store.Set(ctx, key, res, p.ttl); err != nil {
		slog.Warn("moderation cache write failed", "error", err)
	}
	return res, nil
}

// cacheKey is provider:<name>[:<model>]:<sha256 of text>. The model is
// part of the key so a model change never serves stale results.
func (p *CachedProvider) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	key := "provider:" + p.next.Name() + ":"
	if m, ok := p.next.(interface{ Model() string }); ok && m.Model() != "" {
		key += m.Model() + ":"
	}
	return key + hex.EncodeToString(sum[:])
}
