package ports

import "time"

// Recorder receives operational measurements.
type Recorder interface {
	ObserveCommit(op string, success bool, d time.Duration)
	ObserveLockWait(acquired bool, d time.Duration)
	AddConflicts(n int)
	IncTransition(action string)
}
