package engine

import gomidi "gitlab.com/gomidi/midi/v2"

// SoundEngine is the boundary to the synthesis backend. Implementations
// must be safe for concurrent use and must not block the caller: the tick
// path and the live-input path both call into it directly.
//
// An engine never silently drops a NoteOff for a note it accepted; a
// failed send is reported so the caller can retry or log it.
type SoundEngine interface {
	NoteOn(channel, note, velocity uint8) error
	NoteOff(channel, note uint8) error
	ProgramChange(channel, program uint8) error

	// Send forwards a raw MIDI message unmodified (pitch bend, CC,
	// aftertouch). Used by the live-input path for anything that is not
	// a plain note event.
	Send(msg gomidi.Message) error
}

// Live event types, matching the MIDI status nibble.
const (
	LiveNoteOn  uint8 = 0x90
	LiveNoteOff uint8 = 0x80
	LiveControl uint8 = 0xB0
)

// LiveEvent is a raw event from a MIDI input device, delivered to a
// FreeMidiChannel without sequencer involvement.
type LiveEvent struct {
	Type       uint8 // LiveNoteOn, LiveNoteOff, LiveControl
	Note       uint8
	Velocity   uint8
	Controller uint8
	Value      uint8
}
