package engine

import (
	"errors"
	"sync"
)

// Status is the process-wide connection/run condition.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusRunning:
		return "running"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected   = errors.New("engine: not connected")
	ErrAlreadyRunning = errors.New("engine: already running")
)

// RunState replaces the usual pile of shared booleans with a single state
// object whose transitions are atomic. Events are only resolved while
// Running.
type RunState struct {
	mu     sync.Mutex
	status Status
}

func NewRunState() *RunState { return &RunState{} }

// Connect moves to Connected. Connecting while running keeps running.
func (s *RunState) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusDisconnected {
		s.status = StatusConnected
	}
}

// Disconnect drops to Disconnected from any state.
func (s *RunState) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusDisconnected
}

// Start moves Connected to Running.
func (s *RunState) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusDisconnected:
		return ErrNotConnected
	case StatusRunning:
		return ErrAlreadyRunning
	}
	s.status = StatusRunning
	return nil
}

// Stop moves Running back to Connected. Stopping a stopped engine is a
// no-op.
func (s *RunState) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusConnected
	}
}

func (s *RunState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusRunning
}

func (s *RunState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
