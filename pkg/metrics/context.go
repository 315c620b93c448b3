// Package metrics records traces, custom metrics and events with New Relic.
// Every function is a no-op when the context carries no New Relic
// application or transaction, so callers never check for an agent.
package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicContextKey is the context key for the *newrelic.Application
type NewRelicContextKey struct{}

// WithApplication returns a context carrying app. A nil app leaves ctx as is.
func WithApplication(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey{}, app)
}

// ApplicationFromContext returns the application installed by WithApplication.
func ApplicationFromContext(ctx context.Context) (*newrelic.Application, bool) {
	app, ok := ctx.Value(NewRelicContextKey{}).(*newrelic.Application)
	return app, ok && app != nil
}

// StartTransaction starts a New Relic transaction for a unit of work, such as
// a single CLI command, and returns the traced context along with a function
// that ends it.
func StartTransaction(ctx context.Context, name string) (context.Context, func()) {
	app, ok := ApplicationFromContext(ctx)
	if !ok {
		return ctx, func() {}
	}

	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}
