package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Route is one output of a MultiHandler. A record reaches Handler only when
// it is at least Min; nil Min leaves the decision to the handler alone.
type Route struct {
	Handler slog.Handler
	Min     slog.Leveler
}

func (r Route) enabled(ctx context.Context, level slog.Level) bool {
	if r.Min != nil && level < r.Min.Level() {
		return false
	}
	return r.Handler.Enabled(ctx, level)
}

// MultiHandler fans records out to several sinks, each with its own
// minimum level, e.g. debug to the console but only warnings to Graylog.
type MultiHandler struct {
	routes []Route
}

// NewMultiHandler builds a handler over the given routes. Routes without a
// handler are dropped.
func NewMultiHandler(routes ...Route) *MultiHandler {
	valid := make([]Route, 0, len(routes))
	for _, r := range routes {
		if r.Handler != nil {
			valid = append(valid, r)
		}
	}
	return &MultiHandler{routes: valid}
}

// Enabled reports whether any route takes records at level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, r := range m.routes {
		if r.enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every route that takes it. A failing sink
// does not stop the others; all failures come back joined.
func (m *MultiHandler) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, r := range m.routes {
		if !r.enabled(ctx, rec.Level) {
			continue
		}
		if err := r.Handler.Handle(ctx, rec.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// derive keeps each route's level while replacing its handler.
func (m *MultiHandler) derive(f func(slog.Handler) slog.Handler) *MultiHandler {
	routes := make([]Route, len(m.routes))
	for i, r := range m.routes {
		routes[i] = Route{Handler: f(r.Handler), Min: r.Min}
	}
	return &MultiHandler{routes: routes}
}
