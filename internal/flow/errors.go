package flow

import "fmt"

// Operation tags carried by OpError.
const (
	OpEndpoint             = "endpoint"
	OpStamped              = "stamped"
	OpTrajectory           = "trajectory"
	OpDifferential         = "differential"
	OpEnsemble             = "ensemble"
	OpEnsembleTrajectory   = "ensemble-trajectory"
	OpEnsembleDifferential = "ensemble-differential"
)

// OpError tags a failure with the flow operation that triggered it. The
// underlying integrator or precondition error is never masked; callers
// unwrap to react at the algorithmic level.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("flow: %s: %s", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
