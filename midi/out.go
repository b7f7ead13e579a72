// Package midi is the hardware boundary: a SoundEngine backed by a
// system MIDI output port and a listener that feeds live input into the
// engine's free channels.
package midi

import (
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
	"go.uber.org/zap"

	"loopy/engine"
)

// Out sends note and control events to a system MIDI output port. It
// implements engine.SoundEngine. Safe for concurrent use; sends are
// direct port writes, fast enough for the tick path.
type Out struct {
	mu     sync.Mutex
	port   drivers.Out
	send   func(gomidi.Message) error
	logger *zap.Logger
	closed bool
}

// OpenOut opens the output port whose name matches (exactly, else by
// substring, case-insensitive). An empty name picks the first available
// port.
func OpenOut(name string, logger *zap.Logger) (*Out, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	port, err := findOutPort(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", port.String(), engine.ErrBackendUnavailable)
	}
	logger.Info("midi output open", zap.String("port", port.String()))
	return &Out{port: port, send: send, logger: logger}, nil
}

func findOutPort(name string) (drivers.Out, error) {
	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no midi output ports: %w", engine.ErrBackendUnavailable)
	}
	if name == "" {
		return ports[0], nil
	}
	for _, p := range ports {
		if p.String() == name {
			return p, nil
		}
	}
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("midi output port %q not found: %w", name, engine.ErrBackendUnavailable)
}

// Port returns the opened port name.
func (o *Out) Port() string {
	return o.port.String()
}

func (o *Out) message(msg gomidi.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("port %q closed: %w", o.port.String(), engine.ErrBackendUnavailable)
	}
	if err := o.send(msg); err != nil {
		return fmt.Errorf("send to %q: %w", o.port.String(), engine.ErrBackendUnavailable)
	}
	return nil
}

// NoteOn sends a note-on.
func (o *Out) NoteOn(channel, note, velocity uint8) error {
	return o.message(gomidi.NoteOn(channel, note, velocity))
}

// NoteOff sends a note-off.
func (o *Out) NoteOff(channel, note uint8) error {
	return o.message(gomidi.NoteOff(channel, note))
}

// ProgramChange selects a program on a channel.
func (o *Out) ProgramChange(channel, program uint8) error {
	return o.message(gomidi.ProgramChange(channel, program))
}

// Send forwards a raw message unmodified.
func (o *Out) Send(msg gomidi.Message) error {
	return o.message(msg)
}

// Close stops accepting events. Subsequent sends fail with
// ErrBackendUnavailable.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}
