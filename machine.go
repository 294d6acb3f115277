package brewz

import (
	"errors"
	"time"
)

var (
	// ErrMachineStopped is recorded on brews interrupted by a machine stop.
	ErrMachineStopped = errors.New("machine stopped while brewing")
	// ErrInvalidOutlets is returned when a machine is configured with fewer than one outlet.
	ErrInvalidOutlets = errors.New("at least 1 outlet is needed")
)

// Phase describes the machine lifecycle state.
type Phase uint8

const (
	PhaseStopped Phase = iota
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Outcome is how a single brew attempt ended.
type Outcome uint8

const (
	OutcomeBrewed Outcome = iota + 1
	OutcomeSkipped
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBrewed:
		return "brewed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String. Unknown names return 0.
func ParseOutcome(s string) Outcome {
	switch s {
	case "brewed":
		return OutcomeBrewed
	case "skipped":
		return OutcomeSkipped
	case "aborted":
		return OutcomeAborted
	default:
		return 0
	}
}

// BrewResult reports one brew attempt.
type BrewResult struct {
	ID         string
	Beverage   string
	Outcome    Outcome
	Shortage   *Shortage // set when Outcome is OutcomeSkipped
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error // set when Outcome is OutcomeAborted
}

// Duration returns how long the attempt took end to end.
func (r BrewResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Status is a point-in-time snapshot of a machine.
type Status struct {
	Phase        Phase
	Outlets      int
	OutletsInUse int
	Pending      []string // queued beverage names, dispatch order
	InFlight     int
	Inventory    []StockLevel
}
