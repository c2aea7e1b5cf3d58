package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/dispatch"
	"github.com/padworks/padmapper/internal/profile"
)

// DefaultPulseDuration is how long a confirmation pulse stays bright.
const DefaultPulseDuration = 300 * time.Millisecond

// taskQueueSize bounds the background work queue. The event-receipt path
// drops work rather than block when the worker falls this far behind.
const taskQueueSize = 256

// LEDSink receives LED feedback. device.Adapter satisfies it; tests plug
// in fakes.
type LEDSink interface {
	SetPadColor(coord device.Coordinate, color string) error
	Repaint(colors map[device.Coordinate]string) error
	ClearAll() error
}

// phase is the lifecycle of one held pad.
type phase int

const (
	phasePressed phase = iota
	phaseLongFired
	phaseRepeating
)

// pressState is the engine-owned transient record of one held pad. The
// generation tag lets late timer callbacks detect that their press has
// been superseded and back off.
type pressState struct {
	gen      uint64
	at       time.Time
	velocity uint8
	phase    phase
	mapping  profile.PadMapping
}

// Engine is the pad resolution core: it consumes normalized events,
// decides what they mean against the active layer at the instant of the
// call, and drives per-pad timing state through the Supervisor.
//
// Two mutual-exclusion domains exist: the profile store guards layer
// structure, the engine mutex guards the press-state table. No event
// operation holds both beyond a short copy-out, and nothing that sleeps,
// writes to the device or injects keys runs under either lock.
//
// Key injection, bridge sends and LED writes run on a single background
// worker fed through the task queue; the event-receipt path only updates
// state and enqueues, so the MIDI driver callback never blocks on a sink.
type Engine struct {
	log   *zap.Logger
	store *profile.Store
	disp  *dispatch.Dispatcher
	sup   *Supervisor
	leds  LEDSink
	state *RunState

	pulseDuration time.Duration

	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	gen     uint64
	presses map[device.Coordinate]*pressState
}

func New(log *zap.Logger, store *profile.Store, disp *dispatch.Dispatcher, leds LEDSink) *Engine {
	e := &Engine{
		log:           log.Named("engine"),
		store:         store,
		disp:          disp,
		sup:           NewSupervisor(log),
		leds:          leds,
		state:         NewRunState(),
		pulseDuration: DefaultPulseDuration,
		tasks:         make(chan func(), taskQueueSize),
		done:          make(chan struct{}),
		presses:       map[device.Coordinate]*pressState{},
	}
	// A layer or profile switch invalidates every held pad: releases
	// after the switch must not fire actions resolved against the old
	// layer.
	store.OnLayerChange(e.Flush)
	store.OnRepaint(e.repaint)
	go e.worker()
	return e
}

// worker drains the task queue in order. Emission order between events
// follows receipt order because there is exactly one worker.
func (e *Engine) worker() {
	for {
		select {
		case <-e.done:
			return
		case fn := <-e.tasks:
			e.sup.safeCall("task", fn)
		}
	}
}

func (e *Engine) enqueue(what string, fn func()) {
	select {
	case e.tasks <- fn:
	default:
		e.log.Warn("task queue full, dropping work", zap.String("task", what))
	}
}

// Close stops resolution and retires the background worker. Pending queued
// work is discarded.
func (e *Engine) Close() {
	e.Stop()
	e.closeOnce.Do(func() { close(e.done) })
}

// State exposes the run-state object for lifecycle wiring.
func (e *Engine) State() *RunState { return e.state }

// Supervisor exposes the timing supervisor, mainly for tests.
func (e *Engine) Supervisor() *Supervisor { return e.sup }

// Start begins resolving events and paints the active layer.
func (e *Engine) Start() error {
	if err := e.state.Start(); err != nil {
		return err
	}
	e.repaint(e.store.ActiveColors())
	e.log.Info("engine started")
	return nil
}

// Stop halts resolution, discards all transient state and darkens the
// surface.
func (e *Engine) Stop() {
	e.state.Stop()
	e.Flush()
	if e.leds != nil {
		if err := e.leds.ClearAll(); err != nil {
			e.log.Debug("clear on stop failed", zap.Error(err))
		}
	}
	e.log.Info("engine stopped")
}

// Flush cancels every armed timer and discards every press state without
// emitting any action.
func (e *Engine) Flush() {
	e.mu.Lock()
	e.presses = map[device.Coordinate]*pressState{}
	e.mu.Unlock()
	e.sup.CancelEverything()
}

// OnNoteEvent is the single entry point for normalized device events. It
// never blocks beyond enqueuing work; all delays run on supervisor-owned
// background tasks.
func (e *Engine) OnNoteEvent(ev device.Event) {
	if !e.state.Running() {
		return
	}
	if ev.Press {
		e.handlePress(ev)
	} else {
		e.handleRelease(ev)
	}
}

func (e *Engine) handlePress(ev device.Event) {
	mapping, ok := e.store.GetActiveMapping(ev.Coord)
	if !ok || !mapping.Enabled {
		return
	}

	// Layer navigation resolves at press time. The switch flushes all
	// press state, so no release companion exists for these pads.
	switch mapping.Action {
	case profile.ActionLayer:
		e.store.PushLayer(mapping.TargetLayer)
		e.pulse(ev.Coord, mapping.Color)
		return
	case profile.ActionLayerUp:
		e.store.PopLayer()
		e.pulse(ev.Coord, mapping.Color)
		return
	}

	// A re-press cancels any macro run still in flight for this pad; the
	// replacement run starts at the next release.
	if len(mapping.MacroSteps) > 0 {
		e.sup.CancelMacro(ev.Coord)
	}

	e.mu.Lock()
	if _, held := e.presses[ev.Coord]; held {
		// Missed release; retire the stale press.
		delete(e.presses, ev.Coord)
	}
	e.gen++
	gen := e.gen
	e.presses[ev.Coord] = &pressState{
		gen:      gen,
		at:       time.Now(),
		velocity: ev.Velocity,
		mapping:  mapping,
	}
	e.mu.Unlock()

	if mapping.LongPress.Enabled {
		coord := ev.Coord
		e.sup.ArmLongPress(coord, mapping.LongPress.Threshold, func() {
			e.fireLongPress(coord, gen)
		})
		// Long press takes precedence: repeat is never armed on a
		// long-press-enabled mapping.
		return
	}

	if mapping.Repeat.Enabled && mapping.Action == profile.ActionKey && len(mapping.MacroSteps) == 0 {
		coord := ev.Coord
		e.sup.ArmRepeat(coord, mapping.Repeat.Delay, mapping.Repeat.Interval, func() bool {
			return e.fireRepeat(coord, gen)
		})
	}
}

func (e *Engine) handleRelease(ev device.Event) {
	e.mu.Lock()
	ps, ok := e.presses[ev.Coord]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.presses, ev.Coord)
	longFired := ps.phase == phaseLongFired
	mapping := ps.mapping
	velocity := ps.velocity
	e.mu.Unlock()

	e.sup.CancelPress(ev.Coord)

	if longFired {
		// The long-press path already emitted; the release is silent.
		return
	}

	switch {
	case mapping.Action == profile.ActionBridge:
		cmd := mapping.BridgeCmd
		e.enqueue("bridge", func() {
			e.disp.Dispatch(dispatch.BridgeAction(cmd))
		})
	case len(mapping.MacroSteps) > 0:
		e.sup.StartMacro(ev.Coord, mapping.MacroSteps, func(combo string) {
			e.disp.Dispatch(dispatch.KeyAction(combo))
		})
	default:
		combo := mapping.ResolveVelocity(int(velocity))
		if combo == "" {
			return
		}
		e.enqueue("key", func() {
			e.disp.Dispatch(dispatch.KeyAction(combo))
		})
	}
	e.pulse(ev.Coord, mapping.Color)
}

// fireLongPress runs on a supervisor timer. It is a no-op when the press
// it was armed for no longer exists.
func (e *Engine) fireLongPress(coord device.Coordinate, gen uint64) {
	e.mu.Lock()
	ps, ok := e.presses[coord]
	if !ok || ps.gen != gen || ps.phase == phaseLongFired {
		e.mu.Unlock()
		return
	}
	ps.phase = phaseLongFired
	combo := ps.mapping.LongPress.KeyCombo
	color := ps.mapping.Color
	e.mu.Unlock()

	e.disp.Dispatch(dispatch.KeyAction(combo))
	e.pulse(coord, color)
}

// fireRepeat runs on the supervisor's repeat cycle; returning false ends
// the cycle.
func (e *Engine) fireRepeat(coord device.Coordinate, gen uint64) bool {
	e.mu.Lock()
	ps, ok := e.presses[coord]
	if !ok || ps.gen != gen {
		e.mu.Unlock()
		return false
	}
	ps.phase = phaseRepeating
	combo := ps.mapping.ResolveVelocity(int(ps.velocity))
	e.mu.Unlock()

	if combo != "" {
		e.disp.Dispatch(dispatch.KeyAction(combo))
	}
	return true
}

// pulse brightens a pad briefly after an action fires, reverting to the
// layer's configured color.
func (e *Engine) pulse(coord device.Coordinate, color string) {
	if e.leds == nil || color == "" || color == "off" {
		return
	}
	name, err := device.ResolveColorName(color)
	if err != nil {
		return
	}
	e.enqueue("pulse", func() {
		if err := e.leds.SetPadColor(coord, device.BrightVariant(name)); err != nil {
			e.log.Debug("pulse write failed", zap.Error(err))
			return
		}
		e.sup.ArmPulse(coord, e.pulseDuration, func() {
			e.restoreColor(coord)
		})
	})
}

func (e *Engine) restoreColor(coord device.Coordinate) {
	colors := e.store.ActiveColors()
	color, lit := colors[coord]
	if !lit {
		color = "off"
	}
	if err := e.leds.SetPadColor(coord, color); err != nil {
		e.log.Debug("pulse revert failed", zap.Error(err))
	}
}

func (e *Engine) repaint(colors map[device.Coordinate]string) {
	if e.leds == nil || !e.state.Running() {
		return
	}
	e.enqueue("repaint", func() {
		if err := e.leds.Repaint(colors); err != nil {
			e.log.Debug("repaint failed", zap.Error(err))
		}
	})
}
