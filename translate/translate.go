// Package translate implements clients for remote translation services.
//
// All clients share one logical contract: submit an ordered batch of
// strings for a target language, get back translations aligned 1:1 with
// the input order. Order alignment is what the rest of the pipeline
// relies on, so every client preserves it end to end.
//
// Two implementations are provided: Client speaks a JSON-over-HTTP
// translation API, OpenAIClient adapts a chat-completion model to the
// same contract. Both retry transient failures (rate limits, 5xx,
// network errors, timeouts) with exponential backoff, honoring a
// server-supplied retry delay hint when one is present.
package translate

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Format hints for the service about the content being translated.
const (
	FormatText = "text"
	FormatHTML = "html"
)

// Request is one batch submission.
type Request struct {
	// Texts is the ordered batch. Must not be empty.
	Texts []string
	// TargetLang is the target language code (required).
	TargetLang string
	// SourceLang is the source language code; empty lets the service detect it.
	SourceLang string
	// Format is FormatText or FormatHTML; empty means service default.
	Format string
}

// Translation is one translated unit of a batch response.
type Translation struct {
	// Text is the translated string.
	Text string
	// DetectedSourceLang is the source language the service reported.
	DetectedSourceLang string
}

// Service is the translation contract the pipeline depends on. The
// returned slice is aligned 1:1 with Request.Texts.
type Service interface {
	Translate(ctx context.Context, req Request) ([]Translation, error)
}

// Options tunes retry and timeout behavior shared by all clients.
// The zero value uses the defaults below.
type Options struct {
	// Timeout bounds every network call.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseBackoff is the wait before the second attempt; it doubles per
	// retry up to MaxBackoff.
	BaseBackoff time.Duration
	// MaxBackoff caps both computed backoff and server retry hints.
	MaxBackoff time.Duration
	// Logf receives retry diagnostics. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
	defaultMaxBackoff  = 30 * time.Second
)

func (o Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultTimeout
}

func (o Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return defaultMaxRetries
}

func (o Options) effectiveBaseBackoff() time.Duration {
	if o.BaseBackoff > 0 {
		return o.BaseBackoff
	}
	return defaultBaseBackoff
}

func (o Options) effectiveMaxBackoff() time.Duration {
	if o.MaxBackoff > 0 {
		return o.MaxBackoff
	}
	return defaultMaxBackoff
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// outcome classifies one attempt. The retry loop is a bounded state
// machine over these: success and permanent terminate, transient
// transitions to the next attempt until the budget runs out.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTransient
	outcomePermanent
)

// attemptResult is the classified result of a single network attempt.
type attemptResult[T any] struct {
	outcome outcome
	value   T
	err     error
	// retryAfter is a server-provided delay hint, 0 when absent.
	retryAfter time.Duration
}

// runWithRetry drives the attempt state machine: it invokes attempt up
// to maxRetries+1 times, sleeping between transient failures with
// exponential backoff (or the server hint, when larger), both capped at
// maxBackoff. Permanent failures return immediately; an exhausted budget
// returns a terminal error naming the attempt count.
func runWithRetry[T any](ctx context.Context, opts Options, attempt func(ctx context.Context) attemptResult[T]) (T, error) {
	var zero T
	maxAttempts := opts.effectiveMaxRetries() + 1

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res := attempt(ctx)
		switch res.outcome {
		case outcomeSuccess:
			return res.value, nil
		case outcomePermanent:
			return zero, res.err
		}

		lastErr = res.err
		if n == maxAttempts {
			break
		}

		wait := backoff(n, opts.effectiveBaseBackoff(), opts.effectiveMaxBackoff(), res.retryAfter)
		opts.logf("transient translation failure (attempt %d/%d), retrying in %v: %v", n, maxAttempts, wait, res.err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}

	return zero, fmt.Errorf("translation failed after %d attempts: %w", maxAttempts, lastErr)
}

// backoff returns the wait before the next attempt: base doubled per
// completed attempt, overridden by a larger server hint, capped at max.
func backoff(attempt int, base, max, hint time.Duration) time.Duration {
	wait := base << (attempt - 1)
	if hint > wait {
		wait = hint
	}
	if wait > max {
		wait = max
	}
	return wait
}
