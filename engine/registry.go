package engine

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// NumMIDIChannels is the standard MIDI channel count.
const NumMIDIChannels = 16

// Instrument maps a logical instrument name to a MIDI channel and
// program number. The name is the key the editing surface refers to;
// the channel is what the synthesis backend hears.
type Instrument struct {
	Name    string
	Channel uint8 // 0-15, unique per registry
	Program uint8 // 0-127
}

// InstrumentRegistry assigns instruments to MIDI channels. No two active
// entries ever share a channel. Registration issues the ProgramChange on
// the backend so the channel sounds right before anything plays on it.
type InstrumentRegistry struct {
	mu     sync.Mutex
	engine SoundEngine
	byName map[string]Instrument
	used   [NumMIDIChannels]bool
	logger *zap.Logger
}

// NewInstrumentRegistry creates an empty registry writing program
// changes to the given engine.
func NewInstrumentRegistry(engine SoundEngine, logger *zap.Logger) *InstrumentRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentRegistry{
		engine: engine,
		byName: make(map[string]Instrument),
		logger: logger,
	}
}

// Register assigns the instrument to the lowest free MIDI channel.
func (r *InstrumentRegistry) Register(name string, program uint8) (Instrument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := 0; ch < NumMIDIChannels; ch++ {
		if !r.used[ch] {
			return r.registerLocked(name, uint8(ch), program)
		}
	}
	return Instrument{}, fmt.Errorf("register %q: all %d midi channels occupied: %w",
		name, NumMIDIChannels, ErrDuplicateChannel)
}

// RegisterAt assigns the instrument to a specific MIDI channel, failing
// with ErrDuplicateChannel if that channel is occupied. The registry is
// unchanged on failure.
func (r *InstrumentRegistry) RegisterAt(name string, channel, program uint8) (Instrument, error) {
	if channel >= NumMIDIChannels {
		return Instrument{}, fmt.Errorf("register %q: channel %d: %w", name, channel, ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used[channel] {
		return Instrument{}, fmt.Errorf("register %q: channel %d: %w", name, channel, ErrDuplicateChannel)
	}
	return r.registerLocked(name, channel, program)
}

func (r *InstrumentRegistry) registerLocked(name string, channel, program uint8) (Instrument, error) {
	if name == "" {
		return Instrument{}, fmt.Errorf("empty instrument name: %w", ErrInvalidArgument)
	}
	if _, ok := r.byName[name]; ok {
		return Instrument{}, fmt.Errorf("instrument %q already registered: %w", name, ErrInvalidArgument)
	}
	if r.engine != nil {
		if err := r.engine.ProgramChange(channel, program); err != nil {
			return Instrument{}, fmt.Errorf("program change for %q: %w", name, err)
		}
	}
	inst := Instrument{Name: name, Channel: channel, Program: program}
	r.byName[name] = inst
	r.used[channel] = true
	r.logger.Debug("instrument registered",
		zap.String("name", name),
		zap.Uint8("channel", channel),
		zap.Uint8("program", program))
	return inst, nil
}

// Unregister removes the instrument and frees its channel. No-op for
// unknown names.
func (r *InstrumentRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	r.used[inst.Channel] = false
}

// Lookup returns the instrument registered under name.
func (r *InstrumentRegistry) Lookup(name string) (Instrument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byName[name]
	return inst, ok
}

// Instruments returns all registered instruments ordered by channel.
func (r *InstrumentRegistry) Instruments() []Instrument {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Instrument, 0, len(r.byName))
	for _, inst := range r.byName {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
