package sql

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats is a snapshot of the statements executed by a Driver.
type Stats struct {
	Queries  int64
	Execs    int64
	Duration time.Duration
	// Slow counts the statements that exceeded the slow threshold.
	Slow   int64
	Errors int64
}

// Avg returns the average statement duration.
func (s Stats) Avg() time.Duration {
	if n := s.Queries + s.Execs; n > 0 {
		return s.Duration / time.Duration(n)
	}
	return 0
}

func (s Stats) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.Queries, s.Execs, s.Duration, s.Avg(), s.Slow, s.Errors)
}

type counters struct {
	queries, execs, nanos, slow, errors atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Queries:  c.queries.Load(),
		Execs:    c.execs.Load(),
		Duration: time.Duration(c.nanos.Load()),
		Slow:     c.slow.Load(),
		Errors:   c.errors.Load(),
	}
}

// record counts a statement and logs it: at warn level when slow, at
// debug level otherwise.
func (d *Driver) record(query string, args []any, start time.Time, err error, isQuery bool) {
	took := time.Since(start)
	if isQuery {
		d.stats.queries.Add(1)
	} else {
		d.stats.execs.Add(1)
	}
	d.stats.nanos.Add(int64(took))
	if err != nil {
		d.stats.errors.Add(1)
	}
	fields := []zap.Field{
		zap.String("query", query),
		zap.Any("args", args),
		zap.Duration("took", took),
	}
	if took > d.slow {
		d.stats.slow.Add(1)
		d.log.Warn("slow query detected", append(fields, zap.Error(err))...)
		return
	}
	if ce := d.log.Check(zap.DebugLevel, "query executed"); ce != nil {
		ce.Write(append(fields, zap.Error(err))...)
	}
}
