package refresh

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/potamap/potamap/internal/refresh"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
