// Package timeouts holds the request deadlines used by the HTTP handlers.
//
// The document and blob gateways add no deadlines of their own; handlers
// derive one per request from these values with context.WithTimeout.
//
//   - Ping: health checks
//   - Short: single-document reads (profile page, session load)
//   - Medium: read-modify-write edits (games, follows, profile patch)
//   - Long: multi-step operations (sign-up, profile delete with cleanup)
//   - Upload: image uploads to object storage
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultUpload = 60 * time.Second
)

// Config holds one value per deadline class. Zero values mean "keep".
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Upload time.Duration
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
		Upload: DefaultUpload,
	}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

// slots pairs each class with its environment suffix.
func (c *Config) slots() []struct {
	env string
	d   *time.Duration
} {
	return []struct {
		env string
		d   *time.Duration
	}{
		{"PING", &c.Ping},
		{"SHORT", &c.Short},
		{"MEDIUM", &c.Medium},
		{"LONG", &c.Long},
		{"UPLOAD", &c.Upload},
	}
}

func get(pick func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return pick(cur)
}

func Ping() time.Duration   { return get(func(c Config) time.Duration { return c.Ping }) }
func Short() time.Duration  { return get(func(c Config) time.Duration { return c.Short }) }
func Medium() time.Duration { return get(func(c Config) time.Duration { return c.Medium }) }
func Long() time.Duration   { return get(func(c Config) time.Duration { return c.Long }) }
func Upload() time.Duration { return get(func(c Config) time.Duration { return c.Upload }) }

// Configure overrides the non-zero values of cfg. Call it before handlers
// are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	src := cfg.slots()
	for i, s := range cur.slots() {
		if v := *src[i].d; v > 0 {
			*s.d = v
		}
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	cur = defaults()
	mu.Unlock()
}

// ConfigureFromEnv reads GAMERIE_TIMEOUT_{PING,SHORT,MEDIUM,LONG,UPLOAD}
// (Go durations such as "500ms" or "2m"). Missing, unparsable and
// non-positive values are skipped. It returns how many were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	n := 0
	for _, s := range cur.slots() {
		v := os.Getenv("GAMERIE_TIMEOUT_" + s.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*s.d = d
			n++
		}
	}
	return n
}

// Current returns a copy of the active values.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// WithTimeout is context.WithTimeout whose cancel logs a warning when the
// deadline was what ended the context.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "profile image upload")
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
