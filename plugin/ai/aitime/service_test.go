package aitime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/clockface/internal/profile"
)

func TestFallbackResolver(t *testing.T) {
	t.Run("primary answer wins", func(t *testing.T) {
		primary := NewMockResolver()
		primary.SetAnswer("noon", Candidate{Hours: 12})
		secondary := NewMockResolver()

		got, err := NewFallbackResolver(primary, secondary).Resolve(context.Background(), "noon")
		require.NoError(t, err)
		assert.Equal(t, &Candidate{Hours: 12}, got)
		assert.Empty(t, secondary.Calls())
	})

	t.Run("primary not found is final", func(t *testing.T) {
		primary := NewMockResolver()
		secondary := NewMockResolver()
		secondary.SetAnswer("lovely day", Candidate{Hours: 1})

		got, err := NewFallbackResolver(primary, secondary).Resolve(context.Background(), "lovely day")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, secondary.Calls())
	})

	t.Run("primary error falls back", func(t *testing.T) {
		primary := NewMockResolver()
		primary.SetError(errors.New("llm down"))

		got, err := NewFallbackResolver(primary, NewRuleResolver()).Resolve(context.Background(), "quarter past ten")
		require.NoError(t, err)
		assert.Equal(t, &Candidate{Hours: 10, Minutes: 15}, got)
	})
}

func TestCachedResolver(t *testing.T) {
	next := NewMockResolver()
	next.SetAnswer("Quarter past ten", Candidate{Hours: 10, Minutes: 15})
	r := NewCachedResolver(next, 8, time.Minute)
	ctx := context.Background()

	got, err := r.Resolve(ctx, "Quarter past ten")
	require.NoError(t, err)
	assert.Equal(t, &Candidate{Hours: 10, Minutes: 15}, got)

	// Same normalized phrase is served from cache.
	got, err = r.Resolve(ctx, "  quarter past TEN ")
	require.NoError(t, err)
	assert.Equal(t, &Candidate{Hours: 10, Minutes: 15}, got)
	assert.Len(t, next.Calls(), 1)

	// Not-found answers are cached too.
	got, err = r.Resolve(ctx, "lovely day")
	require.NoError(t, err)
	assert.Nil(t, got)
	_, _ = r.Resolve(ctx, "lovely day")
	assert.Len(t, next.Calls(), 2)
	assert.Equal(t, 2, r.Size())
}

func TestCachedResolver_ErrorsNotCached(t *testing.T) {
	next := NewMockResolver()
	next.SetError(errors.New("timeout"))
	r := NewCachedResolver(next, 8, time.Minute)

	_, err := r.Resolve(context.Background(), "noon")
	assert.Error(t, err)
	_, err = r.Resolve(context.Background(), "noon")
	assert.Error(t, err)

	assert.Len(t, next.Calls(), 2)
	assert.Equal(t, 0, r.Size())
}

func TestCachedResolver_ReturnsCopies(t *testing.T) {
	next := NewMockResolver()
	next.SetAnswer("noon", Candidate{Hours: 12})
	r := NewCachedResolver(next, 8, time.Minute)

	first, err := r.Resolve(context.Background(), "noon")
	require.NoError(t, err)
	first.Hours = 3

	second, err := r.Resolve(context.Background(), "noon")
	require.NoError(t, err)
	assert.Equal(t, 12, second.Hours)
}

func TestNewResolverFromProfile(t *testing.T) {
	t.Run("rule provider", func(t *testing.T) {
		p := profile.Default()
		p.ResolverProvider = profile.ProviderRule
		p.ResolverCacheSize = 0

		r, err := NewResolverFromProfile(p)
		require.NoError(t, err)
		assert.IsType(t, &RuleResolver{}, r)
	})

	t.Run("rule provider cached", func(t *testing.T) {
		p := profile.Default()
		p.ResolverProvider = profile.ProviderRule

		r, err := NewResolverFromProfile(p)
		require.NoError(t, err)
		assert.IsType(t, &CachedResolver{}, r)
	})

	t.Run("llm with fallback", func(t *testing.T) {
		p := profile.Default()
		p.ResolverAPIKey = "sk-test"
		p.ResolverBaseURL = "http://127.0.0.1:1/v1"
		p.ResolverCacheSize = 0

		r, err := NewResolverFromProfile(p)
		require.NoError(t, err)
		fb, ok := r.(*FallbackResolver)
		require.True(t, ok)
		assert.IsType(t, &LLMResolver{}, fb.Primary)
		assert.IsType(t, &RuleResolver{}, fb.Secondary)
	})

	t.Run("llm without fallback", func(t *testing.T) {
		p := profile.Default()
		p.ResolverAPIKey = "sk-test"
		p.ResolverFallback = false
		p.ResolverCacheSize = 0

		r, err := NewResolverFromProfile(p)
		require.NoError(t, err)
		assert.IsType(t, &LLMResolver{}, r)
	})
}
