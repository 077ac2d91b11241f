// Package refresh drives the reference load and the periodic spot refresh.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/potamap/potamap/internal/catalog"
	"github.com/potamap/potamap/internal/markers"
	"github.com/potamap/potamap/internal/render"
	"github.com/potamap/potamap/pkg/core"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 60 * time.Second

// Fetcher retrieves the two upstream feeds.
type Fetcher interface {
	FetchParks(ctx context.Context) ([]core.Park, error)
	FetchSpots(ctx context.Context) ([]core.Spot, error)
}

// Dependencies groups what a Session needs.
type Dependencies struct {
	Feed      Fetcher
	Catalog   *catalog.Catalog
	Store     *markers.Store
	Renderer  *render.Renderer
	Logger    *slog.Logger
	Interval  time.Duration
	Observers []Observer
}

// Session owns one run of the pipeline: the reference load followed by
// spot cycles on a fixed timer. Cycles may overlap; the marker store
// keeps whichever finished result was dispatched last.
type Session struct {
	feed      Fetcher
	catalog   *catalog.Catalog
	store     *markers.Store
	renderer  *render.Renderer
	logger    *slog.Logger
	interval  time.Duration
	observers []Observer

	wg sync.WaitGroup

	// OTEL metrics
	cycles      metric.Int64Counter
	duration    metric.Float64Histogram
	markerGauge metric.Int64ObservableGauge
	parkGauge   metric.Int64ObservableGauge
}

// New creates a Session. Uses the global OTel meter for metrics (no-op if not configured).
func New(deps Dependencies) (*Session, error) {
	if deps.Feed == nil || deps.Catalog == nil || deps.Store == nil || deps.Renderer == nil {
		return nil, errors.New("refresh: feed, catalog, store and renderer are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}

	s := &Session{
		feed:      deps.Feed,
		catalog:   deps.Catalog,
		store:     deps.Store,
		renderer:  deps.Renderer,
		logger:    deps.Logger,
		interval:  deps.Interval,
		observers: deps.Observers,
	}

	m := meter()

	var err error

	s.cycles, err = m.Int64Counter(
		"refresh.cycles",
		metric.WithDescription("Refresh cycles by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cycles counter: %w", err)
	}

	s.duration, err = m.Float64Histogram(
		"refresh.duration",
		metric.WithDescription("Refresh cycle duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	s.markerGauge, err = m.Int64ObservableGauge(
		"refresh.markers",
		metric.WithDescription("Markers in the current set"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markers gauge: %w", err)
	}

	s.parkGauge, err = m.Int64ObservableGauge(
		"reference.parks",
		metric.WithDescription("Parks in the reference catalog"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parks gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(s.markerGauge, int64(s.store.Current().Len()))
			o.ObserveInt64(s.parkGauge, int64(s.catalog.Len()))
			return nil
		},
		s.markerGauge, s.parkGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}

	return s, nil
}

// Interval returns the refresh period.
func (s *Session) Interval() time.Duration {
	return s.interval
}

// LoadReference fetches the park catalog and populates it.
// On failure nothing is populated and the error is returned.
func (s *Session) LoadReference(ctx context.Context) error {
	parks, err := s.feed.FetchParks(ctx)
	if err != nil {
		s.logger.Error("Failed to load reference data", "error", err)
		return err
	}

	n := s.catalog.Load(parks)
	s.logger.Info("Reference data loaded", "records", len(parks), "parks", n)
	return nil
}

// Run loads the reference data and then refreshes spots immediately and on
// every tick until ctx is done. A failed reference load is returned without
// any spot cycle being dispatched. Run waits for in-flight cycles before
// returning nil on cancellation.
func (s *Session) Run(ctx context.Context) error {
	if err := s.LoadReference(ctx); err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}

	s.dispatch(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		case <-ticker.C:
			s.dispatch(ctx)
		}
	}
}

// dispatch reserves the sequence before starting the goroutine so that
// dispatch order, not completion order, decides which cycle wins.
func (s *Session) dispatch(ctx context.Context) {
	seq := s.store.Next()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.cycle(ctx, seq)
	}()
}

// Cycle runs one spot refresh synchronously. It returns nil when the marker
// set was replaced, markers.ErrStale when a newer cycle's set was applied
// meanwhile, and the fetch or render error otherwise. On any error the
// marker set is left untouched.
func (s *Session) Cycle(ctx context.Context) error {
	return s.cycle(ctx, s.store.Next())
}

func (s *Session) cycle(ctx context.Context, seq uint64) error {
	start := time.Now()
	report := Report{Seq: seq}

	err := s.refresh(ctx, seq, &report)

	report.Duration = time.Since(start)
	report.Finished = time.Now()
	report.Err = err
	switch {
	case err == nil:
		report.Result = ResultOK
		s.logger.Debug("Markers refreshed", "seq", seq, "spots", report.Spots, "markers", report.Markers)
	case errors.Is(err, markers.ErrStale):
		report.Result = ResultStale
		s.logger.Debug("Discarded stale refresh", "seq", seq, "current", s.store.Current().Seq)
	default:
		report.Result = ResultError
		s.logger.Error("Failed to refresh spots", "seq", seq, "error", err)
	}

	s.record(report)
	return err
}

func (s *Session) refresh(ctx context.Context, seq uint64, report *Report) error {
	spots, err := s.feed.FetchSpots(ctx)
	if err != nil {
		return err
	}
	report.Spots = len(spots)

	rendered, err := s.renderer.Render(spots, s.catalog)
	if err != nil {
		return fmt.Errorf("render markers: %w", err)
	}
	report.Markers = len(rendered)

	_, err = s.store.Apply(seq, rendered)
	return err
}

func (s *Session) record(r Report) {
	ctx := context.Background()
	s.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(r.Result))))
	s.duration.Record(ctx, r.Duration.Seconds())

	for _, o := range s.observers {
		o.ObserveCycle(r)
	}
}
