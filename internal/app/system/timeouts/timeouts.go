// Package timeouts provides centralized timeout values for handler and
// worker operations.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks
//   - Short: single-document reads (a food item, a list, a membership check)
//   - Medium: list queries and simple writes
//   - Long: writes touching several collections (group delete, convert to food item)
//   - Batch: notifier sweeps
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second
)

var (
	mu sync.RWMutex

	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

func get(p *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *p
}

// Ping returns the timeout for health checks.
func Ping() time.Duration { return get(&ping) }

// Short returns the timeout for single-document reads.
func Short() time.Duration { return get(&short) }

// Medium returns the timeout for list queries and simple writes.
func Medium() time.Duration { return get(&medium) }

// Long returns the timeout for multi-collection writes.
func Long() time.Duration { return get(&long) }

// Batch returns the timeout for background sweeps.
func Batch() time.Duration { return get(&batch) }

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

func (c Config) targets() []struct {
	v   time.Duration
	dst *time.Duration
	env string
} {
	return []struct {
		v   time.Duration
		dst *time.Duration
		env string
	}{
		{c.Ping, &ping, "TIMEOUT_PING"},
		{c.Short, &short, "TIMEOUT_SHORT"},
		{c.Medium, &medium, "TIMEOUT_MEDIUM"},
		{c.Long, &long, "TIMEOUT_LONG"},
		{c.Batch, &batch, "TIMEOUT_BATCH"},
	}
}

// Configure sets custom timeout values. Zero values are ignored.
// Call during startup before handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, t := range cfg.targets() {
		if t.v > 0 {
			*t.dst = t.v
		}
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long, batch = DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG and TIMEOUT_BATCH (Go duration strings such as "5s").
// Unset or invalid values are skipped. Returns how many were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0
	for _, t := range (Config{}).targets() {
		v := os.Getenv(t.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*t.dst = d
			configured++
		}
	}
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Batch: batch}
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning if the deadline was exceeded.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete group")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
