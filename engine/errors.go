package engine

import "errors"

// Sentinel errors for the playback core. Callers match with errors.Is.
var (
	// ErrInvalidArgument rejects a configuration value (non-positive
	// tempo, out-of-range velocity or note, duplicate instrument name).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateChannel rejects an instrument registration whose MIDI
	// channel is already occupied.
	ErrDuplicateChannel = errors.New("midi channel already in use")

	// ErrIndexOutOfRange reports a step index outside the sequence. The
	// playback path never produces this; seeing it from Advance would
	// indicate a concurrency bug.
	ErrIndexOutOfRange = errors.New("step index out of range")

	// ErrBackendUnavailable reports that the synthesis backend cannot
	// accept events (closed port, disconnected device).
	ErrBackendUnavailable = errors.New("sound backend unavailable")
)
