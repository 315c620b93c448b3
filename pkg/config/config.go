// Package config defines the configuration sources read by the submitter and
// the synchronizer. Every setting is re-read on use, so a source can change
// between two transactions.
package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoValue  = errors.New("config: no value set")
	ErrShutdown = errors.New("config: shutdown")
)

// Config is a source of a single untyped value. Sources return ErrNoValue when
// nothing is set, letting a typed wrapper fall back to its default.
type Config interface {
	Get(ctx context.Context) (interface{}, error)
	Shutdown()
}

// Typed is a Config converted to T.
//
// Get never fails: it returns the last value read successfully, or the
// default. GetSafe additionally reports read and conversion failures.
type Typed[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

type (
	Bool     = Typed[bool]
	Duration = Typed[time.Duration]
	Uint64   = Typed[uint64]
	String   = Typed[string]
)
