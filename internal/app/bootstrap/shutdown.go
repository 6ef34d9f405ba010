// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// closers releases resources in reverse order of acquisition.
type closers struct {
	mu   sync.Mutex
	list []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func (c *closers) add(name string, fn func(context.Context) error) {
	c.mu.Lock()
	c.list = append(c.list, closer{name: name, fn: fn})
	c.mu.Unlock()
}

func (c *closers) run(ctx context.Context, logger *zap.Logger) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	list := c.list
	c.list = nil
	c.mu.Unlock()

	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		logger.Info("closing", zap.String("resource", list[i].name))
		if err := list[i].fn(ctx); err != nil {
			logger.Error("close failed", zap.String("resource", list[i].name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown waits for background work started by handlers, then closes the
// broker, the blob client and the MongoDB client.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	return deps.closers.run(ctx, logger)
}
