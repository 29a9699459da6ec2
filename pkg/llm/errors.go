package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ProviderError is the base error type for all provider client errors.
type ProviderError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm error %d: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm error %d: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// RateLimitError is returned when the provider rate-limits the request.
type RateLimitError struct{ ProviderError }

// ServerError is returned on 5xx responses from the provider.
type ServerError struct{ ProviderError }

// AuthError is returned on authentication/authorization failures,
// typically a bad or missing API key.
type AuthError struct{ ProviderError }

// BadRequestError is returned when the provider rejects the request
// itself (oversized prompt, malformed parameters).
type BadRequestError struct{ ProviderError }

// StatusCode returns the HTTP-like code carried by a provider error, or
// 0 when err is not one. The typed errors embed ProviderError by value,
// so each is matched explicitly; errors.As against the base alone would
// miss them.
func StatusCode(err error) int {
	var (
		rl *RateLimitError
		se *ServerError
		ae *AuthError
		be *BadRequestError
		pe *ProviderError
	)
	switch {
	case errors.As(err, &rl):
		return rl.Code
	case errors.As(err, &se):
		return se.Code
	case errors.As(err, &ae):
		return ae.Code
	case errors.As(err, &be):
		return be.Code
	case errors.As(err, &pe):
		return pe.Code
	}
	return 0
}

// Retryable reports whether the error is transient and the request may
// be retried.
func Retryable(err error) bool {
	var rl *RateLimitError
	var se *ServerError
	return errors.As(err, &rl) || errors.As(err, &se)
}

// WithRetry retries fn up to maxAttempts using exponential backoff with
// jitter. It respects context cancellation.
func WithRetry(ctx context.Context, maxAttempts int, fn func() error) error {
	var lastErr error
	for i := range maxAttempts {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if i == maxAttempts-1 {
			break
		}
		// Exponential backoff: base 1s, max 30s, ±25% jitter
		base := time.Duration(1<<uint(i)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		jitter := time.Duration(rand.Float64() * 0.5 * float64(base))
		wait := base/4*3 + jitter
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("max retries (%d) exceeded: %w", maxAttempts, lastErr)
}
