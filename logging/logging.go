// Package logging is the engine's ambient observability layer: a
// QueryAudit hook invoked around every statement execution, a
// logrus-backed implementation, and running statistics.
package logging

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// QueryAudit is invoked after every statement execution, successful or
// not, with the rendered SQL, its bound parameters, how long it took,
// and the error (if any). Implementations must not block the caller for
// long — the engine calls this synchronously on the hot path.
type QueryAudit interface {
	Query(ctx context.Context, sql string, params []any, d time.Duration, err error)
}

// NopAudit discards every event; the engine's default when no audit is
// configured.
type NopAudit struct{}

func (NopAudit) Query(context.Context, string, []any, time.Duration, error) {}

// LogrusAudit logs every statement at Debug, escalating to Warn past
// SlowThreshold and Error on failure. LogParameters controls whether
// bound values are included — off by default, since parameters may
// carry sensitive application data.
type LogrusAudit struct {
	Logger         *logrus.Logger
	SlowThreshold  time.Duration
	LogParameters  bool
	Stats          *Stats
}

// NewLogrusAudit returns a LogrusAudit using logger (or logrus's
// standard logger if nil) with a 200ms slow-query threshold.
func NewLogrusAudit(logger *logrus.Logger) *LogrusAudit {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusAudit{Logger: logger, SlowThreshold: 200 * time.Millisecond, Stats: NewStats()}
}

func (a *LogrusAudit) Query(_ context.Context, sql string, params []any, d time.Duration, err error) {
	if a.Stats != nil {
		a.Stats.Record(d, a.SlowThreshold, err)
	}

	fields := logrus.Fields{"sql": sql, "duration": d}
	if a.LogParameters {
		fields["params"] = params
	}
	entry := a.Logger.WithFields(fields)

	switch {
	case err != nil:
		entry.WithError(err).Error("pgorm: query failed")
	case a.SlowThreshold > 0 && d >= a.SlowThreshold:
		entry.Warn("pgorm: slow query")
	default:
		entry.Debug("pgorm: query")
	}
}

// Stats accumulates running counters across every audited statement,
// split between a live atomic-counter struct and an immutable
// point-in-time snapshot.
type Stats struct {
	TotalQueries  atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) Record(d time.Duration, slowThreshold time.Duration, err error) {
	s.TotalQueries.Add(1)
	s.TotalDuration.Add(int64(d))
	if err != nil {
		s.Errors.Add(1)
	}
	if slowThreshold > 0 && d >= slowThreshold {
		s.SlowQueries.Add(1)
	}
}

// Snapshot is a point-in-time copy of Stats safe to read without
// further synchronization.
type Snapshot struct {
	TotalQueries  int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// AvgDuration returns the mean statement duration across the snapshot.
func (s Snapshot) AvgDuration() time.Duration {
	if s.TotalQueries == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.TotalQueries)
}
