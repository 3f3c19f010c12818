package aitime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/clockface/internal/profile"
	"github.com/hrygo/clockface/plugin/ai"
	"github.com/hrygo/clockface/plugin/ai/cache"
	"github.com/hrygo/clockface/plugin/ai/timeout"
)

// NewResolverFromProfile assembles the resolver chain the profile asks for:
// LLM (optionally backed by the rule parser) or rules only, behind a cache.
func NewResolverFromProfile(p *profile.Profile) (Resolver, error) {
	rules := NewRuleResolver()
	var resolver Resolver = rules

	aiConfig := ai.NewConfigFromProfile(p)
	if aiConfig.Enabled {
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid resolver config: %w", err)
		}
		provider, err := ai.NewProvider(&aiConfig.LLM)
		if err != nil {
			return nil, err
		}
		llm := NewLLMResolver(provider)
		if p.ResolverFallback {
			resolver = NewFallbackResolver(llm, rules)
		} else {
			resolver = llm
		}
		slog.Info("time resolver ready",
			"provider", aiConfig.LLM.Provider,
			"model", provider.Model(),
			"fallback", p.ResolverFallback)
	} else {
		slog.Info("time resolver ready", "provider", profile.ProviderRule)
	}

	if p.ResolverCacheSize > 0 {
		resolver = NewCachedResolver(resolver, p.ResolverCacheSize, p.ResolverCacheTTL)
	}
	return resolver, nil
}

// FallbackResolver uses Secondary when Primary fails. A primary answer of "no
// time found" is final.
type FallbackResolver struct {
	Primary   Resolver
	Secondary Resolver
}

// NewFallbackResolver creates a new FallbackResolver.
func NewFallbackResolver(primary, secondary Resolver) *FallbackResolver {
	return &FallbackResolver{Primary: primary, Secondary: secondary}
}

// Resolve implements Resolver.
func (f *FallbackResolver) Resolve(ctx context.Context, phrase string) (*Candidate, error) {
	c, err := f.Primary.Resolve(ctx, phrase)
	if err == nil {
		return c, nil
	}
	slog.Warn("primary time resolver failed, using fallback",
		"error", err,
		"phrase", truncateForLog(phrase, timeout.MaxTruncateLength))
	return f.Secondary.Resolve(ctx, phrase)
}

// cachedAnswer remembers "no time found" as well as found times.
type cachedAnswer struct {
	found     bool
	candidate Candidate
}

// CachedResolver memoizes answers by normalized phrase. Errors are not cached.
type CachedResolver struct {
	next  Resolver
	cache *cache.LRUCache[cachedAnswer]
	ttl   time.Duration
}

// NewCachedResolver wraps next with an LRU cache.
func NewCachedResolver(next Resolver, capacity int, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		next:  next,
		cache: cache.NewLRUCache[cachedAnswer](capacity, ttl),
		ttl:   ttl,
	}
}

// Resolve implements Resolver.
func (c *CachedResolver) Resolve(ctx context.Context, phrase string) (*Candidate, error) {
	key := normalizePhrase(phrase)
	if hit, ok := c.cache.Get(key); ok {
		if !hit.found {
			return nil, nil
		}
		cand := hit.candidate
		return &cand, nil
	}

	cand, err := c.next.Resolve(ctx, phrase)
	if err != nil {
		return nil, err
	}

	answer := cachedAnswer{found: cand != nil}
	if cand != nil {
		answer.candidate = *cand
	}
	c.cache.Set(key, answer, c.ttl)
	return cand, nil
}

// Size returns the number of cached phrases.
func (c *CachedResolver) Size() int {
	return c.cache.Size()
}

var (
	_ Resolver = (*FallbackResolver)(nil)
	_ Resolver = (*CachedResolver)(nil)
)
