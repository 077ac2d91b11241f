// Package influx writes refresh cycle reports to InfluxDB.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/potamap/potamap/internal/refresh"
)

// Measurement is the name of the per-cycle point.
const Measurement = "refresh_cycle"

// Config holds the connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Sink writes one point per refresh cycle. When the server cannot be
// reached at connect time, points go to a gzip line-protocol backup file.
type Sink struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	logger *slog.Logger
	cfg    Config

	mu         sync.Mutex
	backup     *gzip.Writer
	backupFile *os.File
	valid      bool
}

// Connect creates the client, checks it with a ping and prepares the bucket.
// An unreachable server is not an error when backupPath is set.
func Connect(ctx context.Context, cfg Config, backupPath string, logger *slog.Logger) (*Sink, error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url and bucket are required")
	}

	s := &Sink{
		logger: logger,
		cfg:    cfg,
		client: influxdb2.NewClientWithOptions(
			cfg.URL,
			cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(100).
				SetFlushInterval(1000),
		),
	}

	// validate client connection health
	running, err := s.client.Ping(ctx)
	if err == nil && running {
		s.valid = true
	}

	if !s.valid {
		if backupPath == "" {
			s.client.Close()
			return nil, fmt.Errorf("influxdb at %s is not reachable: %v", cfg.URL, err)
		}
		logger.Warn("InfluxDB client failed to initialize, writing to backup file",
			"url", cfg.URL, "backupPath", backupPath, "error", err)

		file, err := os.OpenFile(backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			s.client.Close()
			return nil, fmt.Errorf("error creating backup file: %w", err)
		}
		s.backupFile = file
		s.backup = gzip.NewWriter(file)
		return s, nil
	}

	if err := s.setupOrganizationAndBucket(ctx); err != nil {
		s.client.Close()
		return nil, err
	}

	s.writer = s.client.WriteAPI(cfg.Org, cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			logger.Error("Error sending data to InfluxDB", "bucket", cfg.Bucket, "error", writeErr)
		}
	}(s.writer.Errors())

	logger.Info("InfluxDB client initialized", "url", cfg.URL, "bucket", cfg.Bucket)
	return s, nil
}

func (s *Sink) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := s.client.OrganizationsAPI()

	// ensure org exists
	org, err := orgs.FindOrganizationByName(ctx, s.cfg.Org)
	if err != nil {
		s.logger.Info("Organization not found, creating", "org", s.cfg.Org)
		org, err = orgs.CreateOrganizationWithName(ctx, s.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", s.cfg.Org, err)
		}
	}

	// ensure bucket exists with 90 day retention
	if _, err := s.client.BucketsAPI().FindBucketByName(ctx, s.cfg.Bucket); err != nil {
		s.logger.Info("Bucket not found, creating", "bucket", s.cfg.Bucket)

		rule := domain.RetentionRuleTypeExpire
		_, err = s.client.BucketsAPI().CreateBucketWithName(ctx, org, s.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", s.cfg.Bucket, err)
		}
	}

	return nil
}

// Connected reports whether points go to the server rather than the backup file.
func (s *Sink) Connected() bool {
	return s.valid
}

// ObserveCycle implements refresh.Observer.
func (s *Sink) ObserveCycle(r refresh.Report) {
	if err := s.WritePoint(CyclePoint(r)); err != nil {
		s.logger.Error("Failed to write refresh cycle point", "seq", r.Seq, "error", err)
	}
}

// WritePoint writes a point to InfluxDB or the backup file.
func (s *Sink) WritePoint(point *influxdb2_write.Point) error {
	if s.valid {
		s.writer.WritePoint(point)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := s.backup.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (s *Sink) Close() error {
	if s.writer != nil {
		s.writer.Flush()
	}
	s.client.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backup == nil {
		return nil
	}
	err := errors.Join(s.backup.Close(), s.backupFile.Close())
	s.backup = nil
	return err
}

// CyclePoint converts a cycle report to a point tagged by result.
func CyclePoint(r refresh.Report) *influxdb2_write.Point {
	ts := r.Finished
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2_write.NewPoint(
		Measurement,
		map[string]string{"result": string(r.Result)},
		map[string]interface{}{
			"seq":         int64(r.Seq),
			"spots":       r.Spots,
			"markers":     r.Markers,
			"duration_ms": float64(r.Duration) / float64(time.Millisecond),
			"ok":          r.Result == refresh.ResultOK,
		},
		ts,
	)
}
