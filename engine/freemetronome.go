package engine

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Default click settings, matching a GM-style side-stick on C4.
const (
	DefaultClickNote          = 60
	DefaultClickVolume        = 100
	DefaultClickAccentVolume  = 127
	DefaultClickBeatsPerBar   = 4
	maxClickDuration          = 100 * time.Millisecond
)

// ClickOptions configures a FreeMetronomeChannel.
type ClickOptions struct {
	Note         uint8
	Volume       int // 0-100
	AccentVolume int // 0-127, velocity for beat 1 of each bar
	BeatsPerBar  int
	// EverySubdivision clicks on every tick instead of only on beat
	// boundaries.
	EverySubdivision bool
}

// DefaultClickOptions returns the standard quarter-note click with an
// accent on the downbeat.
func DefaultClickOptions() ClickOptions {
	return ClickOptions{
		Note:         DefaultClickNote,
		Volume:       DefaultClickVolume,
		AccentVolume: DefaultClickAccentVolume,
		BeatsPerBar:  DefaultClickBeatsPerBar,
	}
}

// FreeMetronomeChannel plays an audible click driven directly by ticks.
// By default it clicks on beat boundaries only, accenting the first beat
// of each bar; EverySubdivision makes it click on every tick.
type FreeMetronomeChannel struct {
	name   string
	inst   Instrument
	engine SoundEngine
	sched  Scheduler
	logger *zap.Logger

	opts    ClickOptions
	enabled atomic.Bool
	muted   atomic.Bool
}

// NewFreeMetronomeChannel creates a click channel. Enabled by default.
func NewFreeMetronomeChannel(name string, inst Instrument, opts ClickOptions, engine SoundEngine, sched Scheduler, logger *zap.Logger) *FreeMetronomeChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BeatsPerBar <= 0 {
		opts.BeatsPerBar = DefaultClickBeatsPerBar
	}
	c := &FreeMetronomeChannel{
		name:   name,
		inst:   inst,
		engine: engine,
		sched:  sched,
		logger: logger,
		opts:   opts,
	}
	c.enabled.Store(true)
	return c
}

func (c *FreeMetronomeChannel) Name() string           { return c.name }
func (c *FreeMetronomeChannel) Instrument() Instrument { return c.inst }
func (c *FreeMetronomeChannel) Muted() bool            { return c.muted.Load() }
func (c *FreeMetronomeChannel) SetMuted(m bool)        { c.muted.Store(m) }

// SetEnabled switches the click on or off without removing the channel.
func (c *FreeMetronomeChannel) SetEnabled(on bool) { c.enabled.Store(on) }

// Enabled reports whether the click is on.
func (c *FreeMetronomeChannel) Enabled() bool { return c.enabled.Load() }

// OnTick triggers the click. The first beat of each bar plays at the
// accent velocity scaled by the channel volume; other beats play at the
// plain volume.
func (c *FreeMetronomeChannel) OnTick(t Tick) {
	if !c.enabled.Load() || c.muted.Load() {
		return
	}
	spb := int64(t.StepsPerBeat)
	onBeat := t.Step%spb == 0
	if !c.opts.EverySubdivision && !onBeat {
		return
	}

	var vel uint8
	beat := (t.Step / spb) % int64(c.opts.BeatsPerBar)
	if onBeat && beat == 0 {
		vel = scaleVelocity(uint8(c.opts.AccentVolume), c.opts.Volume)
	} else {
		vel = scaleVelocity(uint8(c.opts.Volume), 100)
	}

	if err := c.engine.NoteOn(c.inst.Channel, c.opts.Note, vel); err != nil {
		c.logger.Warn("click failed", zap.Error(err))
		return
	}

	dur := t.Interval
	if dur > maxClickDuration {
		dur = maxClickDuration
	}
	engine, logger := c.engine, c.logger
	channel, note := c.inst.Channel, c.opts.Note
	c.sched.ScheduleAt(t.At.Add(dur), func() {
		sendNoteOff(engine, logger, channel, note)
	})
}

// Silence is a no-op: click note-offs are flushed with the scheduler.
func (c *FreeMetronomeChannel) Silence() {}
