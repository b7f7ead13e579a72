package engine

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Default transport settings.
const (
	DefaultTempo        = 120.0
	DefaultStepsPerBeat = 4
)

// Project aggregates one Metronome, one InstrumentRegistry and an
// ordered collection of InstrumentChannels, and owns the transport
// state. Channels are evaluated in insertion order on each tick but must
// not depend on each other's trigger order.
type Project struct {
	metronome *Metronome
	registry  *InstrumentRegistry
	engine    SoundEngine
	logger    *zap.Logger

	mu       sync.Mutex
	channels []InstrumentChannel
	playing  bool
}

// ProjectOption configures a Project.
type ProjectOption func(*projectParams)

type projectParams struct {
	tempo        float64
	stepsPerBeat int
	logger       *zap.Logger
}

// WithTempo sets the initial tempo in BPM.
func WithTempo(bpm float64) ProjectOption {
	return func(p *projectParams) { p.tempo = bpm }
}

// WithStepsPerBeat sets the tick resolution.
func WithStepsPerBeat(n int) ProjectOption {
	return func(p *projectParams) { p.stepsPerBeat = n }
}

// WithLogger sets the logger for the project and everything it creates.
func WithLogger(l *zap.Logger) ProjectOption {
	return func(p *projectParams) { p.logger = l }
}

// NewProject creates a stopped project playing through the given engine.
func NewProject(engine SoundEngine, opts ...ProjectOption) (*Project, error) {
	params := projectParams{
		tempo:        DefaultTempo,
		stepsPerBeat: DefaultStepsPerBeat,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	m, err := NewMetronome(params.tempo, params.stepsPerBeat, WithMetronomeLogger(params.logger))
	if err != nil {
		return nil, err
	}

	p := &Project{
		metronome: m,
		registry:  NewInstrumentRegistry(engine, params.logger),
		engine:    engine,
		logger:    params.logger,
	}
	m.Subscribe(p.dispatch)
	return p, nil
}

// Metronome returns the project's time source.
func (p *Project) Metronome() *Metronome { return p.metronome }

// Registry returns the project's instrument registry.
func (p *Project) Registry() *InstrumentRegistry { return p.registry }

// Engine returns the sound engine the project plays through.
func (p *Project) Engine() SoundEngine { return p.engine }

// RegisterInstrument assigns an instrument to a specific MIDI channel,
// failing with ErrDuplicateChannel if the channel is occupied.
func (p *Project) RegisterInstrument(name string, channel, program uint8) (Instrument, error) {
	return p.registry.RegisterAt(name, channel, program)
}

// AddStepChannel registers a step sequencer channel of the given pattern
// length, playing the named instrument.
func (p *Project) AddStepChannel(name, instrument string, length int) (*StepSequencerChannel, error) {
	inst, ok := p.registry.Lookup(instrument)
	if !ok {
		return nil, fmt.Errorf("instrument %q not registered: %w", instrument, ErrInvalidArgument)
	}
	ch := NewStepSequencerChannel(name, inst, NewSequence(length), p.engine, p.metronome, p.logger)
	p.AddChannel(ch)
	return ch, nil
}

// AddFreeMidiChannel registers a live passthrough channel playing the
// named instrument. Wire a MIDI input to its OnLiveEvent.
func (p *Project) AddFreeMidiChannel(name, instrument string) (*FreeMidiChannel, error) {
	inst, ok := p.registry.Lookup(instrument)
	if !ok {
		return nil, fmt.Errorf("instrument %q not registered: %w", instrument, ErrInvalidArgument)
	}
	ch := NewFreeMidiChannel(name, inst, p.engine, p.logger)
	p.AddChannel(ch)
	return ch, nil
}

// AddClickChannel registers an audible metronome click playing the named
// instrument.
func (p *Project) AddClickChannel(name, instrument string, opts ClickOptions) (*FreeMetronomeChannel, error) {
	inst, ok := p.registry.Lookup(instrument)
	if !ok {
		return nil, fmt.Errorf("instrument %q not registered: %w", instrument, ErrInvalidArgument)
	}
	ch := NewFreeMetronomeChannel(name, inst, opts, p.engine, p.metronome, p.logger)
	p.AddChannel(ch)
	return ch, nil
}

// AddChannel appends a channel. Safe while playing; the channel starts
// receiving ticks from the next dispatch.
func (p *Project) AddChannel(ch InstrumentChannel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, ch)
}

// RemoveChannel removes a channel by identity. Safe while playing; any
// note-offs the channel already scheduled still fire.
func (p *Project) RemoveChannel(ch InstrumentChannel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.channels {
		if c == ch {
			p.channels = append(p.channels[:i], p.channels[i+1:]...)
			return
		}
	}
}

// Channels returns the channels in evaluation order.
func (p *Project) Channels() []InstrumentChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]InstrumentChannel, len(p.channels))
	copy(out, p.channels)
	return out
}

// Playing reports the transport state.
func (p *Project) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// SetTempo changes the tempo, effective for the next scheduled tick.
func (p *Project) SetTempo(bpm float64) error {
	return p.metronome.SetTempo(bpm)
}

// Tempo returns the current tempo in BPM.
func (p *Project) Tempo() float64 {
	return p.metronome.Tempo()
}

// Start rewinds every sequence and starts the metronome. No-op while
// playing.
func (p *Project) Start() {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = true
	channels := make([]InstrumentChannel, len(p.channels))
	copy(channels, p.channels)
	p.mu.Unlock()

	for _, ch := range channels {
		if sc, ok := ch.(*StepSequencerChannel); ok {
			sc.Sequence().Reset()
		}
	}
	p.logger.Info("transport start", zap.Float64("bpm", p.metronome.Tempo()))
	p.metronome.Start()
}

// Stop halts the metronome, then fires every pending scheduled note-off
// immediately and silences live channels (panic-off). When Stop returns,
// no note is sounding and no scheduled note-off remains: each
// outstanding one has resolved exactly once.
func (p *Project) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	channels := make([]InstrumentChannel, len(p.channels))
	copy(channels, p.channels)
	p.mu.Unlock()

	// Order matters: the loop must be down before the flush so a job
	// cannot fire twice.
	p.metronome.Stop()
	p.metronome.Flush()
	for _, ch := range channels {
		ch.Silence()
	}
	p.logger.Info("transport stop")
}

// dispatch fans a tick out to every channel, on the metronome goroutine.
func (p *Project) dispatch(t Tick) {
	p.mu.Lock()
	channels := make([]InstrumentChannel, len(p.channels))
	copy(channels, p.channels)
	p.mu.Unlock()

	for _, ch := range channels {
		ch.OnTick(t)
	}
}
