// Package memory provides a config source held in memory, used for test
// overrides.
package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/config"
)

// ErrInduced is a read failure tests can inject with FailWith.
var ErrInduced = errors.New("memory config: induced failure")

// Config implements config.Config over a value set by the caller. A nil value
// reads as config.ErrNoValue.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	failure  error
	shutdown bool
}

func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.failure != nil:
		return nil, c.failure
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

func (c *Config) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown = true
}

func (c *Config) Set(value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// Unset makes subsequent reads return config.ErrNoValue.
func (c *Config) Unset() {
	c.Set(nil)
}

// FailWith makes subsequent reads return err until called again with nil.
func (c *Config) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure = err
}
