package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/potamap/potamap/internal/catalog"
	"github.com/potamap/potamap/internal/config"
	"github.com/potamap/potamap/internal/feed"
	"github.com/potamap/potamap/internal/hub"
	"github.com/potamap/potamap/internal/logging"
	"github.com/potamap/potamap/internal/mapview"
	"github.com/potamap/potamap/internal/markers"
	"github.com/potamap/potamap/internal/refresh"
	"github.com/potamap/potamap/internal/render"
	"github.com/potamap/potamap/internal/server"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const serviceName = "potamap"

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := flag.String("config-dir", ".", "directory containing "+config.FileName)
	flag.Parse()

	if err := run(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "potamap: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionStart := time.Now()

	// bootstrap logger until the config is known
	slogManager := logging.NewSlogManager()
	slogManager.Setup("info", logging.Sinks{Console: os.Stdout})
	logger := slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "path", filepath.Join(configDir, config.FileName))
	}

	tel, err := setupTelemetry(ctx, slogManager, sessionStart)
	if err != nil {
		return err
	}
	defer tel.close()
	logger = slogManager.Logger()
	slog.SetDefault(logger)

	logger.Info("Starting potamap", "version", Version, "buildDate", BuildDate)

	loc, err := config.GetTimezone()
	if err != nil {
		return err
	}

	view := mapview.FromConfig(config.GetMapConfig())
	page, err := mapview.NewPage(view, mapview.DefaultEndpoints)
	if err != nil {
		return err
	}

	feedCfg := config.GetFeedConfig()
	client := feed.New(feed.Config{
		ParksURL:  feedCfg.ParksURL,
		SpotsURL:  feedCfg.SpotsURL,
		Timeout:   feedCfg.Timeout,
		UserAgent: feedCfg.UserAgent + "/" + Version,
	}, logger)

	parks := catalog.New()
	store := markers.NewStore()

	wsHub, err := hub.New(logger, store.Current)
	if err != nil {
		return fmt.Errorf("create websocket hub: %w", err)
	}
	defer wsHub.Close()
	store.Subscribe(wsHub.PublishMarkers)

	var observers []refresh.Observer
	if tel.influx != nil {
		observers = append(observers, tel.influx)
	}

	session, err := refresh.New(refresh.Dependencies{
		Feed:      client,
		Catalog:   parks,
		Store:     store,
		Renderer:  render.New(loc),
		Logger:    logger,
		Interval:  config.GetRefreshInterval(),
		Observers: observers,
	})
	if err != nil {
		return fmt.Errorf("create refresh session: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Dependencies{
		Page:    page,
		Style:   render.DefaultStyle,
		Store:   store,
		Catalog: parks,
		Hub:     wsHub,
		Metrics: tel.provider.MetricsHandler(),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              config.GetString("server.listen"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		if err := session.Run(ctx); err != nil {
			// the page stays up with an empty map and /healthcheck reports 503
			logger.Error("Refresh stopped", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "refresh", session.Interval())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-serveErr:
		if err != nil {
			stop()
			<-refreshDone
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	wsHub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	<-refreshDone

	logger.Info("Stopped")
	return nil
}
