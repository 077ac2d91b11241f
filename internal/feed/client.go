// internal/feed/client.go
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/potamap/potamap/pkg/core"
)

// ErrStatus is returned when a feed answers with a non-2xx status.
var ErrStatus = errors.New("unexpected feed status")

// Config holds the feed endpoints.
type Config struct {
	ParksURL  string
	SpotsURL  string
	Timeout   time.Duration // 0 disables the client timeout
	UserAgent string
}

// Client fetches the park catalog and the live spot list.
// Requests are never retried; a failed fetch is reported to the caller.
type Client struct {
	cfg  Config
	http *resty.Client
}

// New creates a new feed client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{logger.With("component", "feed")}).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Client{cfg: cfg, http: rc}
}

// FetchParks downloads the park catalog.
func (c *Client) FetchParks(ctx context.Context) ([]core.Park, error) {
	var records []parkRecord
	if err := c.getJSON(ctx, c.cfg.ParksURL, &records); err != nil {
		return nil, fmt.Errorf("fetch parks: %w", err)
	}
	parks := make([]core.Park, 0, len(records))
	for _, r := range records {
		parks = append(parks, r.toPark())
	}
	return parks, nil
}

// FetchSpots downloads the current spot list.
func (c *Client) FetchSpots(ctx context.Context) ([]core.Spot, error) {
	var records []spotRecord
	if err := c.getJSON(ctx, c.cfg.SpotsURL, &records); err != nil {
		return nil, fmt.Errorf("fetch spots: %w", err)
	}
	spots := make([]core.Spot, 0, len(records))
	for _, r := range records {
		spots = append(spots, r.toSpot())
	}
	return spots, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("%w: %s returned %d", ErrStatus, url, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// restyLogger routes resty's internal messages to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
