package midi

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.uber.org/zap"

	"loopy/engine"
)

// Input listens on a system MIDI input port and forwards note and
// control events to a live channel. Events go straight from the driver
// callback to the channel, bypassing all sequencer bookkeeping.
type Input struct {
	port   drivers.In
	stopFn func()
	logger *zap.Logger
}

// OpenInput starts listening on the input port whose name matches
// (exactly, else by substring, case-insensitive; empty picks the first)
// and forwards its events to target.
func OpenInput(name string, target engine.LiveChannel, logger *zap.Logger) (*Input, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	port, err := findInPort(name)
	if err != nil {
		return nil, err
	}

	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, note, velocity uint8
		var controller, value uint8
		switch {
		case msg.GetNoteOn(&channel, &note, &velocity):
			target.OnLiveEvent(engine.LiveEvent{Type: engine.LiveNoteOn, Note: note, Velocity: velocity})
		case msg.GetNoteOff(&channel, &note, &velocity):
			target.OnLiveEvent(engine.LiveEvent{Type: engine.LiveNoteOff, Note: note})
		case msg.GetControlChange(&channel, &controller, &value):
			target.OnLiveEvent(engine.LiveEvent{Type: engine.LiveControl, Controller: controller, Value: value})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", port.String(), engine.ErrBackendUnavailable)
	}

	logger.Info("midi input open",
		zap.String("port", port.String()),
		zap.String("channel", target.Name()))
	return &Input{port: port, stopFn: stop, logger: logger}, nil
}

func findInPort(name string) (drivers.In, error) {
	ports := gomidi.GetInPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no midi input ports: %w", engine.ErrBackendUnavailable)
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
	return nil, fmt.Errorf("midi input port %q not found: %w", name, engine.ErrBackendUnavailable)
}

// Port returns the opened port name.
func (in *Input) Port() string {
	return in.port.String()
}

// Close stops listening.
func (in *Input) Close() error {
	if in.stopFn != nil {
		in.stopFn()
		in.stopFn = nil
	}
	return nil
}
