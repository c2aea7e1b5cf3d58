package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/profile"
)

func TestHandleCancelIdempotent(t *testing.T) {
	h := &Handle{stop: make(chan struct{})}
	h.Cancel()
	h.Cancel()
	h.Cancel()

	var nilHandle *Handle
	nilHandle.Cancel()
}

func TestCancelUnarmedTimerIsNoop(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)

	// Nothing armed: both cancels are no-ops.
	s.CancelPress(pad)
	s.CancelPress(pad)
	s.CancelAll(pad)
	s.CancelEverything()
}

func TestCancelAfterFireIsNoop(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)

	var fired atomic.Int32
	s.ArmLongPress(pad, 10*time.Millisecond, func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	s.CancelPress(pad)
	s.CancelPress(pad)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestArmLongPressReplacesPrior(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)

	var first, second atomic.Int32
	s.ArmLongPress(pad, 30*time.Millisecond, func() { first.Add(1) })
	s.ArmLongPress(pad, 30*time.Millisecond, func() { second.Add(1) })
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestCancelledLongPressNeverFires(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)

	var fired atomic.Int32
	s.ArmLongPress(pad, 30*time.Millisecond, func() { fired.Add(1) })
	s.CancelPress(pad)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestRepeatStopsWhenTickDeclines(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)

	var ticks atomic.Int32
	s.ArmRepeat(pad, 10*time.Millisecond, 10*time.Millisecond, func() bool {
		return ticks.Add(1) < 3
	})
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(3), ticks.Load())
}

func TestMacroRunsNeverInterleave(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)
	steps := []profile.MacroStep{
		{KeyCombo: "a", DelayAfter: 40 * time.Millisecond},
		{KeyCombo: "b"},
	}

	ch := make(chan string, 16)
	emit := func(combo string) { ch <- combo }

	s.StartMacro(pad, steps, emit)
	time.Sleep(10 * time.Millisecond)
	s.StartMacro(pad, steps, emit)
	time.Sleep(200 * time.Millisecond)

	close(ch)
	var got []string
	for combo := range ch {
		got = append(got, combo)
	}
	// First run emits "a" and is cancelled in its delay; the replacement
	// starts only after the first fully retires.
	assert.Equal(t, []string{"a", "a", "b"}, got)
}

func TestCancelMacroStopsRunMidDelay(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)
	steps := []profile.MacroStep{
		{KeyCombo: "a", DelayAfter: 40 * time.Millisecond},
		{KeyCombo: "b"},
	}

	ch := make(chan string, 16)
	s.StartMacro(pad, steps, func(combo string) { ch <- combo })
	time.Sleep(10 * time.Millisecond)
	s.CancelMacro(pad)
	time.Sleep(100 * time.Millisecond)

	// Only the first step got out; a later run still retires the
	// cancelled one before emitting.
	s.StartMacro(pad, steps, func(combo string) { ch <- combo })
	time.Sleep(100 * time.Millisecond)

	close(ch)
	var got []string
	for combo := range ch {
		got = append(got, combo)
	}
	assert.Equal(t, []string{"a", "a", "b"}, got)
}

func TestCallbackPanicIsContained(t *testing.T) {
	s := NewSupervisor(zap.NewNop())
	pad := device.Grid(1, 1)

	s.ArmLongPress(pad, 5*time.Millisecond, func() { panic("boom") })
	time.Sleep(50 * time.Millisecond)

	// The supervisor survives and keeps scheduling.
	var fired atomic.Int32
	s.ArmLongPress(pad, 5*time.Millisecond, func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestCancelEverything(t *testing.T) {
	s := NewSupervisor(zap.NewNop())

	var fired atomic.Int32
	for row := 1; row <= 4; row++ {
		s.ArmLongPress(device.Grid(row, 1), 30*time.Millisecond, func() { fired.Add(1) })
		s.ArmRepeat(device.Grid(row, 2), 30*time.Millisecond, 30*time.Millisecond, func() bool {
			fired.Add(1)
			return true
		})
	}
	s.CancelEverything()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
