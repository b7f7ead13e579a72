// Package synth is a small polyphonic software synthesizer so the
// sequencer is audible without external MIDI gear. It implements
// engine.SoundEngine on top of the system audio output.
package synth

import (
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	gomidi "gitlab.com/gomidi/midi/v2"

	"loopy/engine"
)

const (
	sampleRate   = 44100
	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit
	maxVoices    = 64

	attackPerSample  = 1.0 / (0.005 * sampleRate) // 5ms attack
	releasePerSample = 1.0 / (0.100 * sampleRate) // 100ms release
)

// waveType selects the oscillator shape for a voice.
type waveType int

const (
	waveSine waveType = iota
	waveTriangle
	waveSawtooth
	waveSquare
)

// waveForProgram maps a General-MIDI-ish program number to an
// oscillator shape: keyboards sound round, strings and brass buzz,
// leads bite.
func waveForProgram(program uint8) waveType {
	switch {
	case program < 24: // pianos, chromatic percussion, organs
		return waveSine
	case program < 40: // guitars, basses
		return waveTriangle
	case program < 72: // strings, ensemble, brass
		return waveSawtooth
	case program < 80: // reeds, pipes
		return waveTriangle
	default: // synth leads and everything after
		return waveSquare
	}
}

// voice is one sounding note.
type voice struct {
	channel   uint8
	note      uint8
	velocity  uint8
	frequency float64
	phase     float64
	envelope  float64
	releasing bool
	active    bool
}

// Synth mixes up to maxVoices oscillator voices into the system audio
// output. One oscillator shape per MIDI channel, chosen by the last
// ProgramChange on that channel.
type Synth struct {
	mu       sync.Mutex
	player   *oto.Player
	voices   [maxVoices]voice
	waves    [engine.NumMIDIChannels]waveType
	volume   float64
	running  bool
}

// New opens the audio device and starts the output stream.
func New() (*Synth, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", engine.ErrBackendUnavailable)
	}
	<-ready

	s := &Synth{
		volume:  0.3,
		running: true,
	}
	s.player = otoCtx.NewPlayer(&streamReader{synth: s})
	s.player.Play()
	return s, nil
}

// NoteOn starts a voice for the note. A retrigger of a note already
// sounding on the channel releases the old voice first.
func (s *Synth) NoteOn(channel, note, velocity uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("synth closed: %w", engine.ErrBackendUnavailable)
	}

	s.releaseLocked(channel, note)
	for i := range s.voices {
		v := &s.voices[i]
		if v.active {
			continue
		}
		*v = voice{
			channel:   channel,
			note:      note,
			velocity:  velocity,
			frequency: noteToFreq(note),
			active:    true,
		}
		return nil
	}
	// Voice pool exhausted: steal the quietest.
	steal := 0
	for i := range s.voices {
		if s.voices[i].envelope < s.voices[steal].envelope {
			steal = i
		}
	}
	s.voices[steal] = voice{
		channel:   channel,
		note:      note,
		velocity:  velocity,
		frequency: noteToFreq(note),
		active:    true,
	}
	return nil
}

// NoteOff releases the note's voice into its envelope tail.
func (s *Synth) NoteOff(channel, note uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("synth closed: %w", engine.ErrBackendUnavailable)
	}
	s.releaseLocked(channel, note)
	return nil
}

func (s *Synth) releaseLocked(channel, note uint8) {
	for i := range s.voices {
		v := &s.voices[i]
		if v.active && v.channel == channel && v.note == note && !v.releasing {
			v.releasing = true
		}
	}
}

// ProgramChange selects the oscillator shape for the channel.
func (s *Synth) ProgramChange(channel, program uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("synth closed: %w", engine.ErrBackendUnavailable)
	}
	s.waves[channel%engine.NumMIDIChannels] = waveForProgram(program)
	return nil
}

// Send accepts raw MIDI and plays what it understands; anything else
// (pitch bend, aftertouch) is ignored rather than rejected.
func (s *Synth) Send(msg gomidi.Message) error {
	var channel, note, velocity uint8
	var program uint8
	switch {
	case msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0:
		return s.NoteOn(channel, note, velocity)
	case msg.GetNoteOff(&channel, &note, &velocity), msg.GetNoteOn(&channel, &note, &velocity):
		return s.NoteOff(channel, note)
	case msg.GetProgramChange(&channel, &program):
		return s.ProgramChange(channel, program)
	}
	return nil
}

// SetVolume sets the master volume, clamped to [0,1].
func (s *Synth) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = math.Max(0, math.Min(1, v))
}

// AllNotesOff releases every sounding voice.
func (s *Synth) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.voices {
		if s.voices[i].active {
			s.voices[i].releasing = true
		}
	}
}

// Close stops accepting events and silences the stream.
func (s *Synth) Close() error {
	s.mu.Lock()
	s.running = false
	for i := range s.voices {
		s.voices[i].active = false
	}
	s.mu.Unlock()
	return nil
}

// streamReader generates samples for the audio stream.
type streamReader struct {
	synth *Synth
}

func (r *streamReader) Read(buf []byte) (int, error) {
	s := r.synth
	s.mu.Lock()
	defer s.mu.Unlock()

	numSamples := len(buf) / (channelCount * bitDepth)
	for i := 0; i < numSamples; i++ {
		var sample float64
		for j := range s.voices {
			v := &s.voices[j]
			if !v.active {
				continue
			}

			osc := oscillate(s.waves[v.channel%engine.NumMIDIChannels], v.phase)
			sample += osc * (float64(v.velocity) / 127.0) * v.envelope * 0.2

			v.phase += v.frequency / sampleRate
			if v.phase >= 1.0 {
				v.phase -= 1.0
			}

			if v.releasing {
				v.envelope -= releasePerSample
				if v.envelope <= 0 {
					v.active = false
				}
			} else if v.envelope < 1.0 {
				v.envelope += attackPerSample
				if v.envelope > 1.0 {
					v.envelope = 1.0
				}
			}
		}

		sample *= s.volume
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}

		out := int16(sample * math.MaxInt16)
		for c := 0; c < channelCount; c++ {
			idx := (i*channelCount + c) * bitDepth
			buf[idx] = byte(out)
			buf[idx+1] = byte(out >> 8)
		}
	}
	return numSamples * channelCount * bitDepth, nil
}

func oscillate(w waveType, phase float64) float64 {
	switch w {
	case waveSquare:
		if phase < 0.5 {
			return 1.0
		}
		return -1.0
	case waveSawtooth:
		return 2.0*phase - 1.0
	case waveTriangle:
		if phase < 0.5 {
			return 4.0*phase - 1.0
		}
		return 3.0 - 4.0*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// noteToFreq converts a MIDI note number to Hz. A4 (note 69) is 440Hz.
func noteToFreq(note uint8) float64 {
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}
