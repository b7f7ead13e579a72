package engine

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StepSequencerChannel advances its Sequence on every tick and triggers
// the step landing under the playhead. Note-offs are scheduled on the
// playback loop, one per triggered note, capped so a note can never
// outlive its own retrigger.
type StepSequencerChannel struct {
	name   string
	inst   Instrument
	seq    *Sequence
	engine SoundEngine
	sched  Scheduler
	logger *zap.Logger

	muted  atomic.Bool
	volume atomic.Int64 // 0-100
}

// NewStepSequencerChannel creates a channel playing seq through the
// given instrument.
func NewStepSequencerChannel(name string, inst Instrument, seq *Sequence, engine SoundEngine, sched Scheduler, logger *zap.Logger) *StepSequencerChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &StepSequencerChannel{
		name:   name,
		inst:   inst,
		seq:    seq,
		engine: engine,
		sched:  sched,
		logger: logger,
	}
	c.volume.Store(DefaultVolume)
	return c
}

func (c *StepSequencerChannel) Name() string           { return c.name }
func (c *StepSequencerChannel) Instrument() Instrument { return c.inst }
func (c *StepSequencerChannel) Sequence() *Sequence    { return c.seq }
func (c *StepSequencerChannel) Muted() bool            { return c.muted.Load() }
func (c *StepSequencerChannel) SetMuted(m bool)        { c.muted.Store(m) }

// SetVolume sets the channel volume on the 0-100 scale.
func (c *StepSequencerChannel) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	c.volume.Store(int64(v))
}

// Volume returns the channel volume.
func (c *StepSequencerChannel) Volume() int { return int(c.volume.Load()) }

// OnTick advances the sequence and, if the step under the playhead is
// enabled, emits its note and schedules the matching note-off.
func (c *StepSequencerChannel) OnTick(t Tick) {
	step, ok := c.seq.Advance()
	if !ok || !step.Enabled || c.muted.Load() {
		return
	}

	vel := scaleVelocity(step.Velocity, int(c.volume.Load()))
	if err := c.engine.NoteOn(c.inst.Channel, step.Note, vel); err != nil {
		// Backend down: stay silent but keep the clock and the
		// sequence position moving so playback resumes cleanly.
		c.logger.Warn("note on failed",
			zap.String("channel", c.name),
			zap.Uint8("note", step.Note),
			zap.Error(err))
		return
	}

	dur := step.Duration
	if dur <= 0 {
		dur = t.Interval
	}
	// Cap at the loop interval: the next time this same step index
	// fires, its previous note must already be off.
	if loop := t.Interval * time.Duration(c.seq.Len()); loop > 0 && dur > loop {
		dur = loop
	}

	engine, logger := c.engine, c.logger
	channel, note := c.inst.Channel, step.Note
	c.sched.ScheduleAt(t.At.Add(dur), func() {
		sendNoteOff(engine, logger, channel, note)
	})
}

// Silence is a no-op: the channel's note-offs live in the scheduler and
// are flushed by the transport on stop.
func (c *StepSequencerChannel) Silence() {}
