package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/forcegraph/pkg/layout"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps that filters
// messages below level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Layout converged (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logResult reports how a layout run ended. Hitting the iteration cap is
// a warning since the layout may not have settled.
func logResult(l *log.Logger, res layout.Result) {
	switch res.Reason {
	case layout.MaxIterations:
		l.Warn("layout reached max iterations before converging",
			"steps", res.Steps, "energy", res.Energy, "duration", res.Duration.Round(time.Millisecond))
	case layout.Cancelled:
		l.Warn("layout cancelled", "steps", res.Steps, "energy", res.Energy)
	default:
		l.Debug("layout converged", "steps", res.Steps, "energy", res.Energy,
			"duration", res.Duration.Round(time.Millisecond))
	}
}
