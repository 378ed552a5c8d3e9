package mocks

import (
	"sync"
	"time"
)

// Recorder is a mock implementation of ports.Recorder that counts calls.
type Recorder struct {
	mu          sync.Mutex
	Commits     map[string]int
	Failures    map[string]int
	LockWaits   int
	LockFailed  int
	Conflicts   int
	Transitions map[string]int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Commits:     make(map[string]int),
		Failures:    make(map[string]int),
		Transitions: make(map[string]int),
	}
}

func (m *Recorder) ObserveCommit(op string, success bool, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.Commits[op]++
	} else {
		m.Failures[op]++
	}
}

func (m *Recorder) ObserveLockWait(acquired bool, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockWaits++
	if !acquired {
		m.LockFailed++
	}
}

func (m *Recorder) AddConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Conflicts += n
}

func (m *Recorder) IncTransition(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions[action]++
}
