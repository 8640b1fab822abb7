// Package readiness polls a database liveness probe until the server
// accepts connections or a deadline passes. Restore workflows use it to
// decide whether a freshly started container came back.
package readiness

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/rs/zerolog"

	"github.com/zafrullakhan001/drydock/internal/errdefs"
)

// Probe answers whether the server is accepting connections right now.
// postgres.Controller satisfies it.
type Probe interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	probe Probe
	clock clock.Clock
	log   zerolog.Logger
}

func NewMonitor(probe Probe, log zerolog.Logger) *Monitor {
	return NewMonitorWithClock(probe, clock.WallClock, log)
}

func NewMonitorWithClock(probe Probe, clk clock.Clock, log zerolog.Logger) *Monitor {
	return &Monitor{probe: probe, clock: clk, log: log}
}

// WaitUntilReady polls the probe every pollInterval until it succeeds or
// timeout elapses. It reports whether the server became ready and how long
// was spent waiting. Running out of time is an answer, not an error; err is
// reserved for cancellation and for probe failures that polling cannot fix.
// A timeout of zero or less disables waiting entirely.
func (m *Monitor) WaitUntilReady(ctx context.Context, timeout, pollInterval time.Duration) (bool, time.Duration, error) {
	if timeout <= 0 {
		return false, 0, nil
	}

	start := m.clock.Now()
	err := retry.Call(retry.CallArgs{
		Clock:       m.clock,
		Delay:       pollInterval,
		MaxDuration: timeout,
		Stop:        ctx.Done(),
		Func: func() error {
			return m.probe.Ping(ctx)
		},
		IsFatalError: func(err error) bool {
			// a refused connection is what we are waiting out;
			// anything else will not improve with patience
			return !errdefs.IsConnectivity(err)
		},
		NotifyFunc: func(err error, attempt int) {
			m.log.Debug().Err(err).Int("attempt", attempt).Msg("server not ready yet")
		},
	})
	elapsed := m.clock.Now().Sub(start)

	switch {
	case err == nil:
		m.log.Info().Dur("waited", elapsed).Msg("server is accepting connections")
		return true, elapsed, nil
	case retry.IsDurationExceeded(err) || retry.IsAttemptsExceeded(err):
		m.log.Warn().Dur("waited", elapsed).Msg("server did not become ready in time")
		return false, elapsed, nil
	case retry.IsRetryStopped(err):
		if cerr := ctx.Err(); cerr != nil {
			return false, elapsed, cerr
		}
		return false, elapsed, nil
	default:
		return false, elapsed, err
	}
}
