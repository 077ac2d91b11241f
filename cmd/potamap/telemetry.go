package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/potamap/potamap/internal/config"
	"github.com/potamap/potamap/internal/influx"
	"github.com/potamap/potamap/internal/logging"
	intOtel "github.com/potamap/potamap/internal/otel"
)

// telemetry holds everything that has to be flushed and closed on exit.
type telemetry struct {
	logFile  *os.File
	gelf     *gelf.Writer
	provider *intOtel.Provider
	influx   *influx.Sink
	manager  *logging.SlogManager
}

// setupTelemetry opens the log file, the OTel provider, the optional Graylog
// writer and InfluxDB sink, and re-initializes logging with all of them.
// Only a failing OTel provider is fatal; the optional sinks log and go on.
func setupTelemetry(ctx context.Context, m *logging.SlogManager, sessionStart time.Time) (*telemetry, error) {
	logger := m.Logger()
	t := &telemetry{manager: m}

	logsDir := config.GetString("logsDir")
	logFile, logFilePath, err := logging.OpenLogFile(logsDir, serviceName, sessionStart)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	} else {
		t.logFile = logFile
		logger.Info("Begin logging in logs directory", "path", logFilePath)
	}

	otelCfg := config.GetOTelConfig()
	var otelWriter io.Writer
	if t.logFile != nil {
		otelWriter = t.logFile
	}
	t.provider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelWriter,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		t.closeFiles()
		return nil, err
	}
	if otelCfg.Enabled {
		logger.Info("OTel provider initialized", "file", logFilePath, "endpoint", otelCfg.Endpoint)
	}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		t.gelf, err = logging.NewGELFWriter(graylogCfg.Address, serviceName)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", graylogCfg.Address)
		}
	}

	// Re-setup logging with file output and optional OTel and Graylog
	var otelLogProvider *sdklog.LoggerProvider
	if t.provider.Enabled() {
		otelLogProvider = t.provider.LoggerProvider()
	}
	sinks := logging.Sinks{Console: os.Stdout, Provider: otelLogProvider, GELFLevel: graylogCfg.Level}
	if t.logFile != nil {
		sinks.File = t.logFile
	}
	if t.gelf != nil {
		sinks.GELF = t.gelf
	}
	m.Setup(config.GetString("logLevel"), sinks)
	logger = m.Logger()

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		backupPath := filepath.Join(logsDir, "influx_backup.log.gz")
		t.influx, err = influx.Connect(ctx, influx.Config{
			URL:    influxCfg.URL,
			Token:  influxCfg.Token,
			Org:    influxCfg.Org,
			Bucket: influxCfg.Bucket,
		}, backupPath, logger)
		if err != nil {
			logger.Error("Failed to initialize InfluxDB sink", "error", err)
		}
	}

	return t, nil
}

func (t *telemetry) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := t.manager.Logger()
	if t.influx != nil {
		if err := t.influx.Close(); err != nil {
			logger.Error("Failed to close InfluxDB sink", "error", err)
		}
	}
	if err := t.manager.Flush(ctx); err != nil {
		logger.Error("Failed to flush logs", "error", err)
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down OTel provider", "error", err)
	}
	t.closeFiles()
}

func (t *telemetry) closeFiles() {
	if t.gelf != nil {
		_ = t.gelf.Close()
	}
	if t.logFile != nil {
		_ = t.logFile.Close()
	}
}
