package refresh

import "time"

// Result classifies how a refresh cycle ended.
type Result string

const (
	ResultOK    Result = "ok"
	ResultError Result = "error"
	ResultStale Result = "stale"
)

// Report describes one finished refresh cycle.
type Report struct {
	Seq      uint64
	Result   Result
	Spots    int
	Markers  int
	Duration time.Duration
	Finished time.Time
	Err      error
}

// Observer receives a Report after every cycle.
type Observer interface {
	ObserveCycle(Report)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Report)

func (f ObserverFunc) ObserveCycle(r Report) { f(r) }
