package aitime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/clockface/plugin/ai/timeout"
)

// Requester is the single-flight boundary in front of a Resolver.
//
// Empty input is rejected before the resolver is touched, a second submission
// while one is in flight is refused with ErrBusy, and every resolver failure
// (transport, parse, schema, out-of-range, panic) is reported as an Outcome with
// Found == false. Busy is cleared when the outcome is handed off.
type Requester struct {
	resolver Resolver
	timeout  time.Duration

	busy atomic.Bool
	// deliverMu orders hand-offs so outcomes reach callers in completion order.
	deliverMu sync.Mutex
	wg        sync.WaitGroup
}

// NewRequester creates a Requester. A non-positive timeout uses
// timeout.ResolveTimeout.
func NewRequester(resolver Resolver, d time.Duration) *Requester {
	if d <= 0 {
		d = timeout.ResolveTimeout
	}
	return &Requester{resolver: resolver, timeout: d}
}

// Busy reports whether a resolution is in flight.
func (r *Requester) Busy() bool {
	return r.busy.Load()
}

// Submit starts resolving phrase in the background and returns its resolve ID.
// done is called exactly once with the outcome, after busy has been cleared.
// The resolution is not tied to ctx cancellation; only ctx values are kept.
func (r *Requester) Submit(ctx context.Context, phrase string, done func(Outcome)) (string, error) {
	phrase, err := checkPhrase(phrase)
	if err != nil {
		return "", err
	}
	if !r.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}

	id := shortuuid.New()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		out := r.run(context.WithoutCancel(ctx), id, phrase)

		r.deliverMu.Lock()
		defer r.deliverMu.Unlock()
		r.busy.Store(false)
		if done != nil {
			done(out)
		}
	}()
	return id, nil
}

// Resolve resolves phrase synchronously under the same single-flight guard.
func (r *Requester) Resolve(ctx context.Context, phrase string) (Outcome, error) {
	phrase, err := checkPhrase(phrase)
	if err != nil {
		return Outcome{}, err
	}
	if !r.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer r.busy.Store(false)
	return r.run(ctx, shortuuid.New(), phrase), nil
}

// Wait blocks until every submitted resolution has delivered its outcome.
func (r *Requester) Wait() {
	r.wg.Wait()
}

func (r *Requester) run(ctx context.Context, id, phrase string) (out Outcome) {
	out = Outcome{ID: id, Phrase: phrase}
	logger := slog.With("resolve_id", id, "phrase", truncateForLog(phrase, timeout.MaxTruncateLength))

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("time resolver panicked", "panic", fmt.Sprint(p))
			out.Found = false
		}
	}()

	cand, err := r.resolver.Resolve(ctx, phrase)
	latency := time.Since(start)
	if err != nil {
		logger.Warn("time resolution failed", "error", err, "latency_ms", latency.Milliseconds())
		return out
	}
	if cand == nil {
		logger.Info("no time found in phrase", "latency_ms", latency.Milliseconds())
		return out
	}

	tv, err := cand.TimeValue()
	if err != nil {
		logger.Warn("time resolver returned out-of-range value",
			"hours", cand.Hours,
			"minutes", cand.Minutes,
			"seconds", cand.Seconds,
			"error", err)
		return out
	}

	out.Found = true
	out.Time = tv
	logger.Info("time resolved", "time", tv.String(), "latency_ms", latency.Milliseconds())
	return out
}

func checkPhrase(phrase string) (string, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return "", ErrEmptyPhrase
	}
	if len([]rune(phrase)) > timeout.MaxPhraseLength {
		return "", ErrPhraseTooLong
	}
	return phrase, nil
}
