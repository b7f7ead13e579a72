package engine

import (
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// FreeMidiChannel forwards live input events straight to the sound
// engine. It ignores ticks entirely and never touches the sequencer's
// locks, so live playing feel is not perturbed by tick bookkeeping. It
// tracks which notes are down so Silence can release them.
type FreeMidiChannel struct {
	name   string
	inst   Instrument
	engine SoundEngine
	logger *zap.Logger

	muted atomic.Bool

	mu     sync.Mutex
	active map[uint8]struct{}
}

// NewFreeMidiChannel creates a live passthrough channel.
func NewFreeMidiChannel(name string, inst Instrument, engine SoundEngine, logger *zap.Logger) *FreeMidiChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FreeMidiChannel{
		name:   name,
		inst:   inst,
		engine: engine,
		logger: logger,
		active: make(map[uint8]struct{}),
	}
}

func (c *FreeMidiChannel) Name() string           { return c.name }
func (c *FreeMidiChannel) Instrument() Instrument { return c.inst }
func (c *FreeMidiChannel) Muted() bool            { return c.muted.Load() }
func (c *FreeMidiChannel) SetMuted(m bool)        { c.muted.Store(m) }

// OnTick is a no-op: this channel does not react to the clock.
func (c *FreeMidiChannel) OnTick(Tick) {}

// OnLiveEvent forwards the event to the engine. Note-ons with velocity 0
// count as note-offs, per the MIDI convention. Mute suppresses new
// note-ons but lets note-offs through so nothing sticks.
func (c *FreeMidiChannel) OnLiveEvent(ev LiveEvent) {
	switch {
	case ev.Type == LiveNoteOn && ev.Velocity > 0:
		if c.muted.Load() {
			return
		}
		if err := c.engine.NoteOn(c.inst.Channel, ev.Note, ev.Velocity); err != nil {
			c.logger.Warn("live note on failed",
				zap.String("channel", c.name),
				zap.Uint8("note", ev.Note),
				zap.Error(err))
			return
		}
		c.mu.Lock()
		c.active[ev.Note] = struct{}{}
		c.mu.Unlock()

	case ev.Type == LiveNoteOff || ev.Type == LiveNoteOn:
		c.mu.Lock()
		_, down := c.active[ev.Note]
		delete(c.active, ev.Note)
		c.mu.Unlock()
		if down {
			sendNoteOff(c.engine, c.logger, c.inst.Channel, ev.Note)
		}

	case ev.Type == LiveControl:
		if err := c.engine.Send(gomidi.ControlChange(c.inst.Channel, ev.Controller, ev.Value)); err != nil {
			c.logger.Warn("live control change failed",
				zap.String("channel", c.name),
				zap.Error(err))
		}
	}
}

// ActiveNotes returns how many notes are currently held.
func (c *FreeMidiChannel) ActiveNotes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Silence releases every held note.
func (c *FreeMidiChannel) Silence() {
	c.mu.Lock()
	notes := make([]uint8, 0, len(c.active))
	for n := range c.active {
		notes = append(notes, n)
	}
	c.active = make(map[uint8]struct{})
	c.mu.Unlock()

	for _, n := range notes {
		sendNoteOff(c.engine, c.logger, c.inst.Channel, n)
	}
}
