// Package metrics provides ports.Recorder implementations.
package metrics

import (
	"time"

	"github.com/ersonp/onto-core/internal/domain/ports"
)

// Noop discards every measurement.
type Noop struct{}

var _ ports.Recorder = Noop{}

func (Noop) ObserveCommit(string, bool, time.Duration) {}
func (Noop) ObserveLockWait(bool, time.Duration)       {}
func (Noop) AddConflicts(int)                          {}
func (Noop) IncTransition(string)                      {}

// OrNoop returns r, or a Noop recorder when r is nil.
func OrNoop(r ports.Recorder) ports.Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}
