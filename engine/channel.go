package engine

import (
	"time"

	"go.uber.org/zap"
)

// InstrumentChannel is the routing unit that decides what, if anything,
// reaches the sound engine. Distinct from a MIDI channel: each
// InstrumentChannel plays through the MIDI channel of its registry
// entry.
//
// OnTick runs on the metronome goroutine and must not block; variants
// that ignore ticks implement it as a no-op. Silence releases anything
// the channel itself keeps sounding (live notes); sequencer note-offs
// are owned by the scheduler, not the channel.
type InstrumentChannel interface {
	Name() string
	Instrument() Instrument
	OnTick(Tick)
	Silence()
	SetMuted(bool)
	Muted() bool
}

// LiveChannel additionally receives raw events from a MIDI input device.
type LiveChannel interface {
	InstrumentChannel
	OnLiveEvent(LiveEvent)
}

// Scheduler defers an action to an absolute time on the playback loop.
// The Metronome implements it.
type Scheduler interface {
	ScheduleAt(at time.Time, fn func())
}

// DefaultVolume matches the 0-100 channel volume scale; velocities are
// scaled by volume/100 before reaching the engine.
const DefaultVolume = 80

func scaleVelocity(v uint8, volume int) uint8 {
	scaled := int(v) * volume / 100
	if scaled > 127 {
		scaled = 127
	}
	if scaled < 0 {
		scaled = 0
	}
	return uint8(scaled)
}

// sendNoteOff delivers a note-off with a single retry. A dropped
// note-off means a stuck note, so the failure is logged loudly, but it
// never takes down the playback loop.
func sendNoteOff(e SoundEngine, logger *zap.Logger, channel, note uint8) {
	if err := e.NoteOff(channel, note); err != nil {
		if err = e.NoteOff(channel, note); err != nil {
			logger.Warn("note off dropped after retry",
				zap.Uint8("channel", channel),
				zap.Uint8("note", note),
				zap.Error(err))
		}
	}
}
