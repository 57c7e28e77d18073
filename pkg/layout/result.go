package layout

import (
	"fmt"
	"time"

	"github.com/matzehuels/forcegraph/pkg/geom"
)

// Reason tells why a run stopped.
type Reason int

const (
	// Converged means the kinetic energy fell below Epsilon.
	Converged Reason = iota + 1
	// MaxIterations means the step budget ran out first.
	MaxIterations
	// Cancelled means Stop was called or the context ended.
	Cancelled
)

// String returns the reason in snake case.
func (r Reason) String() string {
	switch r {
	case Converged:
		return "converged"
	case MaxIterations:
		return "max_iterations"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(b []byte) error {
	switch string(b) {
	case "converged":
		*r = Converged
	case "max_iterations":
		*r = MaxIterations
	case "cancelled":
		*r = Cancelled
	default:
		return fmt.Errorf("unknown reason %q", b)
	}
	return nil
}

// Snapshot is the committed state after one step. Snapshots are immutable
// once published; slices are indexed like graph.Graph.Nodes.
type Snapshot struct {
	RunID      string     `json:"run_id"`
	Step       int        `json:"step"`
	Generation uint64     `json:"generation"`
	Energy     float64    `json:"energy"`
	Positions  []geom.Vec `json:"positions"`
	Velocities []geom.Vec `json:"velocities"`
}

// StepFunc is called after every committed step, on the run's goroutine.
type StepFunc func(Snapshot)

// Result summarizes a finished run.
type Result struct {
	RunID    string        `json:"run_id"`
	Reason   Reason        `json:"reason"`
	Steps    int           `json:"steps"`
	Energy   float64       `json:"energy"`
	Duration time.Duration `json:"duration"`
}
