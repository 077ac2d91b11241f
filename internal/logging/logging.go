package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of the session started at sessionStart,
// e.g. logs/potamap.20260212_213836.log.
func LogFilePath(logsDir, serviceName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", serviceName, sessionStart.Format("20060102_150405")),
	)
}

// OpenLogFile creates logsDir if needed and opens the session's log file for
// appending. A file already at that path is kept as <path>.old first, so two
// starts within the same second do not interleave. The path is returned
// even when opening fails.
func OpenLogFile(logsDir, serviceName string, sessionStart time.Time) (*os.File, string, error) {
	path := LogFilePath(logsDir, serviceName, sessionStart)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, path, fmt.Errorf("create logs directory %s: %w", logsDir, err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, path, fmt.Errorf("rotate %s: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, path, fmt.Errorf("open log file: %w", err)
	}
	return f, path, nil
}
