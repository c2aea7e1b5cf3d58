package bridge

import (
	"sync"
	"time"
)

// Throttler rate-limits per-parameter updates. Each parameter key sends at
// most once per minInterval; values arriving inside the window are
// coalesced and only the latest is delivered, either by a trailing
// debounce timer or by Flush.
type Throttler struct {
	minInterval time.Duration
	debounce    time.Duration
	send        func(command string)

	mu       sync.Mutex
	lastSent map[string]time.Time
	pending  map[string]string
	timers   map[string]*time.Timer
}

func NewThrottler(minInterval, debounce time.Duration, send func(command string)) *Throttler {
	return &Throttler{
		minInterval: minInterval,
		debounce:    debounce,
		send:        send,
		lastSent:    map[string]time.Time{},
		pending:     map[string]string{},
		timers:      map[string]*time.Timer{},
	}
}

// Update records a new value for param. It sends immediately when the
// parameter is outside its rate window, otherwise stores the value and
// schedules a trailing send.
func (t *Throttler) Update(param, command string) {
	t.mu.Lock()
	now := time.Now()
	if now.Sub(t.lastSent[param]) >= t.minInterval {
		t.lastSent[param] = now
		delete(t.pending, param)
		if timer, ok := t.timers[param]; ok {
			timer.Stop()
			delete(t.timers, param)
		}
		t.mu.Unlock()
		t.send(command)
		return
	}

	t.pending[param] = command
	if timer, ok := t.timers[param]; ok {
		timer.Reset(t.debounce)
		t.mu.Unlock()
		return
	}
	t.timers[param] = time.AfterFunc(t.debounce, func() {
		t.fire(param)
	})
	t.mu.Unlock()
}

func (t *Throttler) fire(param string) {
	t.mu.Lock()
	command, ok := t.pending[param]
	delete(t.pending, param)
	delete(t.timers, param)
	if ok {
		t.lastSent[param] = time.Now()
	}
	t.mu.Unlock()
	if ok {
		t.send(command)
	}
}

// Flush sends every pending value immediately.
func (t *Throttler) Flush() {
	t.mu.Lock()
	var commands []string
	for param, command := range t.pending {
		commands = append(commands, command)
		t.lastSent[param] = time.Now()
	}
	t.pending = map[string]string{}
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = map[string]*time.Timer{}
	t.mu.Unlock()

	for _, command := range commands {
		t.send(command)
	}
}

// Clear drops all pending values and timers without sending.
func (t *Throttler) Clear() {
	t.mu.Lock()
	t.pending = map[string]string{}
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = map[string]*time.Timer{}
	t.lastSent = map[string]time.Time{}
	t.mu.Unlock()
}
