package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"
)

// ErrConnectTimeout is returned when a port did not open within the
// configured deadline.
var ErrConnectTimeout = errors.New("device: port open timed out")

// ErrNotConnected is returned for LED writes while no output port is open.
var ErrNotConnected = errors.New("device: not connected")

// DefaultConnectTimeout bounds how long a port-open attempt may block.
const DefaultConnectTimeout = 3 * time.Second

// Adapter owns the MIDI ports and translates between raw device messages
// and normalized events / LED writes. All translation goes through the
// Model selected at connect time.
type Adapter struct {
	log *zap.Logger

	mu     sync.Mutex
	model  Model
	in     drivers.In
	send   func(midi.Message) error
	stopFn func()

	connectTimeout time.Duration
}

func NewAdapter(log *zap.Logger) *Adapter {
	return &Adapter{
		log:            log.Named("device"),
		connectTimeout: DefaultConnectTimeout,
	}
}

// ListInputs returns the names of available MIDI input ports.
func (a *Adapter) ListInputs() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// ListOutputs returns the names of available MIDI output ports.
func (a *Adapter) ListOutputs() []string {
	outs := midi.GetOutPorts()
	names := make([]string, 0, len(outs))
	for _, out := range outs {
		names = append(names, out.String())
	}
	return names
}

var portKeywords = []string{"launchpad", "lpmini", "lpminimk", "lpmk", "lppro", "launchpadx", "novation"}

// AutoPick selects the most likely controller port from a list. DAW ports
// are skipped; a lone port qualifies regardless of name.
func AutoPick(names []string) (string, bool) {
	for _, name := range names {
		normalized := strings.ToLower(strings.ReplaceAll(name, " ", ""))
		if strings.Contains(normalized, "daw") {
			continue
		}
		for _, kw := range portKeywords {
			if strings.Contains(normalized, kw) {
				return name, true
			}
		}
	}
	if len(names) == 1 {
		return names[0], true
	}
	return "", false
}

// Connect opens the named input and output ports (auto-picking when empty)
// and runs the model setup sequence. The open is bounded by the adapter's
// connect timeout; on timeout the adapter stays disconnected.
func (a *Adapter) Connect(ctx context.Context, inName, outName string, model ModelName) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.in != nil {
		a.disconnectLocked()
	}

	if inName == "" {
		picked, ok := AutoPick(a.ListInputs())
		if !ok {
			return errors.New("device: no input port detected")
		}
		inName = picked
	}
	if outName == "" {
		if picked, ok := AutoPick(a.ListOutputs()); ok {
			outName = picked
		}
	}

	type opened struct {
		in   drivers.In
		send func(midi.Message) error
		err  error
	}
	done := make(chan opened, 1)

	// Port opens can block indefinitely on a wedged driver; run them on
	// the side and enforce the deadline here.
	go func() {
		var o opened
		o.in, o.err = findInPort(inName)
		if o.err != nil {
			done <- o
			return
		}
		if outName != "" {
			out, err := findOutPort(outName)
			if err != nil {
				o.err = err
				done <- o
				return
			}
			o.send, o.err = midi.SendTo(out)
		}
		done <- o
	}()

	timer := time.NewTimer(a.connectTimeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			return o.err
		}
		a.in = o.in
		a.send = o.send
		a.model = ModelFor(model)
		if a.send != nil {
			if err := a.model.Setup(a.send); err != nil {
				a.log.Warn("model setup failed", zap.Error(err))
			}
		}
		a.log.Info("connected",
			zap.String("input", inName),
			zap.String("output", outName),
			zap.String("model", string(a.model.Name())))
		return nil
	case <-timer.C:
		return ErrConnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Listen starts delivering normalized events to handler. The handler runs
// on the driver's callback goroutine and must only enqueue work.
func (a *Adapter) Listen(handler func(Event)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.in == nil {
		return ErrNotConnected
	}
	model := a.model

	stop, err := midi.ListenTo(a.in, func(msg midi.Message, timestampms int32) {
		if ev, ok := model.Decode(msg); ok {
			handler(ev)
		}
	})
	if err != nil {
		return fmt.Errorf("device: listen: %w", err)
	}
	a.stopFn = stop
	return nil
}

// SetPadColor lights one pad with a palette color or hex spec.
func (a *Adapter) SetPadColor(coord Coordinate, color string) error {
	name, err := ResolveColorName(color)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.send == nil {
		return ErrNotConnected
	}
	msg, ok := a.model.EncodeLED(coord, name)
	if !ok {
		return nil
	}
	if err := a.send(msg); err != nil {
		return fmt.Errorf("device: led write %s: %w", coord, err)
	}
	return nil
}

// Repaint clears the surface and lights every coordinate present in the
// map with its configured color.
func (a *Adapter) Repaint(colors map[Coordinate]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.send == nil {
		return ErrNotConnected
	}
	for _, msg := range a.model.Clear() {
		if err := a.send(msg); err != nil {
			return fmt.Errorf("device: clear: %w", err)
		}
	}
	for coord, color := range colors {
		name, err := ResolveColorName(color)
		if err != nil {
			a.log.Warn("skipping unknown color on repaint",
				zap.String("coord", coord.String()), zap.String("color", color))
			continue
		}
		msg, ok := a.model.EncodeLED(coord, name)
		if !ok {
			continue
		}
		if err := a.send(msg); err != nil {
			return fmt.Errorf("device: led write %s: %w", coord, err)
		}
	}
	return nil
}

// ClearAll switches every LED off.
func (a *Adapter) ClearAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.send == nil {
		return ErrNotConnected
	}
	for _, msg := range a.model.Clear() {
		if err := a.send(msg); err != nil {
			return fmt.Errorf("device: clear: %w", err)
		}
	}
	return nil
}

// Disconnect stops listening and releases the ports.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnectLocked()
}

func (a *Adapter) disconnectLocked() {
	if a.stopFn != nil {
		a.stopFn()
		a.stopFn = nil
	}
	a.in = nil
	a.send = nil
	a.log.Info("disconnected")
}

// Close releases the MIDI driver.
func (a *Adapter) Close() {
	a.Disconnect()
	midi.CloseDriver()
}

func findInPort(name string) (drivers.In, error) {
	for _, in := range midi.GetInPorts() {
		if in.String() == name {
			return in, nil
		}
	}
	return nil, fmt.Errorf("device: input port not found: %s", name)
}

func findOutPort(name string) (drivers.Out, error) {
	for _, out := range midi.GetOutPorts() {
		if out.String() == name {
			return out, nil
		}
	}
	return nil, fmt.Errorf("device: output port not found: %s", name)
}
