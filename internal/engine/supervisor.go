package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/profile"
)

// Handle is a cancellable unit of scheduled work. Cancel is idempotent:
// cancelling an unarmed, armed or already-fired handle any number of times
// is a safe no-op.
type Handle struct {
	mu     sync.Mutex
	timer  *time.Timer
	stop   chan struct{}
	closed bool
}

func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
	}
	if h.stop != nil {
		close(h.stop)
	}
}

func (h *Handle) cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// macroRun is one executing macro sequence.
type macroRun struct {
	id     string
	handle *Handle
	done   chan struct{}
}

// Supervisor owns every per-pad timer and background run: at most one
// long-press timer, one repeat cycle, one macro run and one LED pulse per
// coordinate. Arming a slot retires the prior occupant first, so an
// orphaned callback can never mutate a newer generation of state.
//
// Every callback is fault-isolated: a panic is recovered and logged, never
// propagated.
type Supervisor struct {
	log *zap.Logger

	mu        sync.Mutex
	longPress map[device.Coordinate]*Handle
	repeats   map[device.Coordinate]*Handle
	macros    map[device.Coordinate]*macroRun
	pulses    map[device.Coordinate]*Handle
}

func NewSupervisor(log *zap.Logger) *Supervisor {
	return &Supervisor{
		log:       log.Named("timing"),
		longPress: map[device.Coordinate]*Handle{},
		repeats:   map[device.Coordinate]*Handle{},
		macros:    map[device.Coordinate]*macroRun{},
		pulses:    map[device.Coordinate]*Handle{},
	}
}

func (s *Supervisor) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("callback panic recovered", zap.String("callback", what), zap.Any("panic", r))
		}
	}()
	fn()
}

// ArmLongPress schedules fn once after threshold, replacing any armed
// long-press timer for coord.
func (s *Supervisor) ArmLongPress(coord device.Coordinate, threshold time.Duration, fn func()) {
	h := &Handle{}
	h.timer = time.AfterFunc(threshold, func() {
		if h.cancelled() {
			return
		}
		s.safeCall("long-press", fn)
	})

	s.mu.Lock()
	prev := s.longPress[coord]
	s.longPress[coord] = h
	s.mu.Unlock()
	prev.Cancel()
}

// ArmRepeat schedules tick after delay and then every interval until the
// cycle is cancelled or tick reports it should stop. Replaces any repeat
// cycle armed for coord.
func (s *Supervisor) ArmRepeat(coord device.Coordinate, delay, interval time.Duration, tick func() bool) {
	h := &Handle{stop: make(chan struct{})}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-h.stop:
			return
		case <-timer.C:
		}
		for {
			keep := false
			s.safeCall("repeat", func() { keep = tick() })
			if !keep {
				return
			}
			timer.Reset(interval)
			select {
			case <-h.stop:
				return
			case <-timer.C:
			}
		}
	}()

	s.mu.Lock()
	prev := s.repeats[coord]
	s.repeats[coord] = h
	s.mu.Unlock()
	prev.Cancel()
}

// StartMacro runs the steps in order, emitting each step's combo and then
// sleeping its delay. A new run on the same coordinate cancels and fully
// replaces the prior one before emitting anything, so two runs never
// interleave. An emit failure never aborts the run.
func (s *Supervisor) StartMacro(coord device.Coordinate, steps []profile.MacroStep, emit func(combo string)) {
	h := &Handle{stop: make(chan struct{})}
	run := &macroRun{id: uuid.New().String(), handle: h, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.macros[coord]
	s.macros[coord] = run
	s.mu.Unlock()

	go func() {
		defer close(run.done)

		// Last press wins: the previous run must be fully retired
		// before this one emits its first step.
		if prev != nil {
			prev.handle.Cancel()
			<-prev.done
		}

		s.log.Debug("macro run started",
			zap.String("run", run.id), zap.String("coord", coord.String()), zap.Int("steps", len(steps)))

		for _, step := range steps {
			select {
			case <-h.stop:
				s.log.Debug("macro run cancelled", zap.String("run", run.id))
				return
			default:
			}
			if step.KeyCombo != "" {
				s.safeCall("macro-step", func() { emit(step.KeyCombo) })
			}
			if step.DelayAfter > 0 {
				timer := time.NewTimer(step.DelayAfter)
				select {
				case <-h.stop:
					timer.Stop()
					s.log.Debug("macro run cancelled", zap.String("run", run.id))
					return
				case <-timer.C:
				}
			}
		}
		s.log.Debug("macro run finished", zap.String("run", run.id))
	}()
}

// CancelMacro cancels the in-flight macro run for coord, if any. The run
// stays registered so the next StartMacro on the coordinate still waits
// for it to retire before emitting.
func (s *Supervisor) CancelMacro(coord device.Coordinate) {
	s.mu.Lock()
	run := s.macros[coord]
	s.mu.Unlock()
	if run != nil {
		run.handle.Cancel()
	}
}

// ArmPulse schedules the LED revert for a confirmation pulse, replacing
// any pending revert for coord.
func (s *Supervisor) ArmPulse(coord device.Coordinate, d time.Duration, fn func()) {
	h := &Handle{}
	h.timer = time.AfterFunc(d, func() {
		if h.cancelled() {
			return
		}
		s.safeCall("pulse", fn)
	})

	s.mu.Lock()
	prev := s.pulses[coord]
	s.pulses[coord] = h
	s.mu.Unlock()
	prev.Cancel()
}

// CancelPress cancels the long-press timer and repeat cycle for coord.
// Macro runs and pulses survive a release.
func (s *Supervisor) CancelPress(coord device.Coordinate) {
	s.mu.Lock()
	lp := s.longPress[coord]
	rp := s.repeats[coord]
	delete(s.longPress, coord)
	delete(s.repeats, coord)
	s.mu.Unlock()
	lp.Cancel()
	rp.Cancel()
}

// CancelAll retires every handle for coord.
func (s *Supervisor) CancelAll(coord device.Coordinate) {
	s.mu.Lock()
	handles := []*Handle{s.longPress[coord], s.repeats[coord], s.pulses[coord]}
	var run *macroRun
	if r, ok := s.macros[coord]; ok {
		run = r
	}
	delete(s.longPress, coord)
	delete(s.repeats, coord)
	delete(s.pulses, coord)
	delete(s.macros, coord)
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	if run != nil {
		run.handle.Cancel()
	}
}

// CancelEverything retires all handles for all coordinates. Used on layer
// or profile switches and on engine stop.
func (s *Supervisor) CancelEverything() {
	s.mu.Lock()
	var handles []*Handle
	var runs []*macroRun
	for _, h := range s.longPress {
		handles = append(handles, h)
	}
	for _, h := range s.repeats {
		handles = append(handles, h)
	}
	for _, h := range s.pulses {
		handles = append(handles, h)
	}
	for _, r := range s.macros {
		runs = append(runs, r)
	}
	s.longPress = map[device.Coordinate]*Handle{}
	s.repeats = map[device.Coordinate]*Handle{}
	s.pulses = map[device.Coordinate]*Handle{}
	s.macros = map[device.Coordinate]*macroRun{}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	for _, r := range runs {
		r.handle.Cancel()
	}
}
