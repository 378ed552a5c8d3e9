// Package services implements the change-tracking and merge request engine:
// snapshots, diffs, conflict detection, the review workflow, the atomic
// change applier and version history.
package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/ersonp/onto-core/internal/domain/ports"
)

var timeNow = time.Now

// nopRecorder is used when no recorder is configured.
type nopRecorder struct{}

func (nopRecorder) ObserveCommit(string, bool, time.Duration) {}
func (nopRecorder) ObserveLockWait(bool, time.Duration)       {}
func (nopRecorder) AddConflicts(int)                          {}
func (nopRecorder) IncTransition(string)                      {}

func recorderOrNop(r ports.Recorder) ports.Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
