package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName names the otelslog instrumentation scope.
const ServiceName = "potamap"

// Sinks selects the outputs of the logger. Nil fields are skipped.
type Sinks struct {
	Console  io.Writer // human-readable text, usually os.Stdout
	File     io.Writer // text log file
	GELF     io.Writer // JSON records shipped to Graylog
	Provider *sdklog.LoggerProvider

	// GELFLevel raises the floor for the GELF sink above the global level.
	// Empty means the global level.
	GELFLevel string
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system with the given sinks.
// With no sinks at all, records go to os.Stdout.
func (m *SlogManager) Setup(level string, sinks Sinks) {
	lvl := parseLevel(level)
	m.logProvider = sinks.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var routes []Route

	console := sinks.Console
	if console == nil && sinks.File == nil && sinks.GELF == nil && sinks.Provider == nil {
		console = os.Stdout
	}
	if console != nil {
		routes = append(routes, Route{Handler: slog.NewTextHandler(console, handlerOpts)})
	}

	if sinks.File != nil {
		routes = append(routes, Route{Handler: slog.NewTextHandler(sinks.File, handlerOpts)})
	}

	// one JSON document per GELF message
	if sinks.GELF != nil {
		r := Route{Handler: slog.NewJSONHandler(sinks.GELF, handlerOpts)}
		if sinks.GELFLevel != "" {
			r.Min = parseLevel(sinks.GELFLevel)
		}
		routes = append(routes, r)
	}

	// the otelslog handler has no level of its own
	if sinks.Provider != nil {
		otelHandler := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(sinks.Provider))
		routes = append(routes, Route{Handler: otelHandler, Min: lvl})
	}

	m.logger = slog.New(NewMultiHandler(routes...))
	m.logger.Info("Logging initialized", "level", lvl.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
