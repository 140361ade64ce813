package resilience

import (
	"strings"
	"time"
)

// Config is shared by every operation an Executor guards. AttemptOverrides
// caps retries for operations whose name starts with a given prefix, so a
// short-budget call such as web search does not spend its deadline on backoff.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	AttemptOverrides    map[string]int

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	out.RetryMaxAttempts = positiveOr(out.RetryMaxAttempts, def.RetryMaxAttempts)
	out.RetryInitialBackoff = positiveOr(out.RetryInitialBackoff, def.RetryInitialBackoff)
	out.RetryMaxBackoff = max(positiveOr(out.RetryMaxBackoff, def.RetryMaxBackoff), out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	out.BreakerMinRequests = positiveOr(out.BreakerMinRequests, def.BreakerMinRequests)
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = positiveOr(out.BreakerOpenTimeout, def.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = positiveOr(out.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)

	overrides := make(map[string]int, len(c.AttemptOverrides))
	for prefix, attempts := range c.AttemptOverrides {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" || attempts <= 0 {
			continue
		}
		overrides[prefix] = attempts
	}
	out.AttemptOverrides = overrides
	return out
}

// maxAttempts picks the longest matching override prefix for operation.
func (c Config) maxAttempts(operation string) int {
	attempts, matched := c.RetryMaxAttempts, ""
	for prefix, n := range c.AttemptOverrides {
		if strings.HasPrefix(operation, prefix) && len(prefix) > len(matched) {
			attempts, matched = n, prefix
		}
	}
	return attempts
}

// nextBackoff grows the wait geometrically up to RetryMaxBackoff.
func (c Config) nextBackoff(current time.Duration) time.Duration {
	return min(time.Duration(float64(current)*c.RetryMultiplier), c.RetryMaxBackoff)
}

func positiveOr[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}
