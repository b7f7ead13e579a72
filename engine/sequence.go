package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Step is one slot in a Sequence: a potential note event at one tick
// position within the loop. A zero Duration means "hold for one step
// interval".
type Step struct {
	Note     uint8
	Velocity uint8
	Duration time.Duration
	Enabled  bool
}

// Sequence is a repeating, fixed-length pattern of Steps. The backing
// storage is an immutable slice swapped atomically on edit, so the
// playback path always sees either the pre-edit or the fully post-edit
// pattern, never a half-written step. Edits may run concurrently with
// playback.
type Sequence struct {
	mu    sync.Mutex // serializes editors only; playback never takes it
	steps atomic.Pointer[[]Step]
	pos   atomic.Int64 // last played index, -1 before the first advance
}

// NewSequence creates a sequence of the given length with all steps
// disabled. Length 0 is legal: the sequence plays nothing.
func NewSequence(length int) *Sequence {
	if length < 0 {
		length = 0
	}
	s := &Sequence{}
	steps := make([]Step, length)
	s.steps.Store(&steps)
	s.pos.Store(-1)
	return s
}

// Len returns the current pattern length.
func (s *Sequence) Len() int {
	return len(*s.steps.Load())
}

// Pos returns the last played index, -1 if nothing has played yet.
func (s *Sequence) Pos() int {
	return int(s.pos.Load())
}

// StepAt returns the step at index i.
func (s *Sequence) StepAt(i int) (Step, error) {
	steps := *s.steps.Load()
	if i < 0 || i >= len(steps) {
		return Step{}, fmt.Errorf("step %d of %d: %w", i, len(steps), ErrIndexOutOfRange)
	}
	return steps[i], nil
}

// Advance moves the position forward by one, wrapping at the pattern
// length, and returns the step now at that position. Returns ok=false
// when the sequence is empty. Called exactly once per tick by the owning
// channel; this is the only writer of the position.
func (s *Sequence) Advance() (Step, bool) {
	steps := *s.steps.Load()
	if len(steps) == 0 {
		s.pos.Store(-1)
		return Step{}, false
	}
	// Modulo clamps the position back into range after a concurrent
	// shrink, so a resize can never make this read out of bounds.
	next := (s.pos.Load() + 1) % int64(len(steps))
	s.pos.Store(next)
	return steps[next], true
}

// Reset rewinds the position so the next Advance plays index 0.
func (s *Sequence) Reset() {
	s.pos.Store(-1)
}

// SetStep writes the step at index i, growing the pattern with disabled
// steps when i is past the end.
func (s *Sequence) SetStep(i int, step Step) error {
	if i < 0 {
		return fmt.Errorf("step %d: %w", i, ErrIndexOutOfRange)
	}
	if step.Velocity > 127 || step.Note > 127 {
		return fmt.Errorf("note %d velocity %d: %w", step.Note, step.Velocity, ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.steps.Load()
	n := len(old)
	if i >= n {
		n = i + 1
	}
	steps := make([]Step, n)
	copy(steps, old)
	steps[i] = step
	s.steps.Store(&steps)
	return nil
}

// ClearStep disables the step at index i, keeping its note data.
func (s *Sequence) ClearStep(i int) error {
	return s.mutateStep(i, func(st *Step) { st.Enabled = false })
}

// ToggleStep flips the enabled flag of the step at index i.
func (s *Sequence) ToggleStep(i int) error {
	return s.mutateStep(i, func(st *Step) { st.Enabled = !st.Enabled })
}

func (s *Sequence) mutateStep(i int, f func(*Step)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.steps.Load()
	if i < 0 || i >= len(old) {
		return fmt.Errorf("step %d of %d: %w", i, len(old), ErrIndexOutOfRange)
	}
	steps := make([]Step, len(old))
	copy(steps, old)
	f(&steps[i])
	s.steps.Store(&steps)
	return nil
}

// SetLength resizes the pattern, truncating or padding with disabled
// steps. Safe while playing: the swap is atomic and Advance wraps the
// position into the new range.
func (s *Sequence) SetLength(n int) error {
	if n < 0 {
		return fmt.Errorf("length %d: %w", n, ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.steps.Load()
	steps := make([]Step, n)
	copy(steps, old)
	s.steps.Store(&steps)
	return nil
}

// Steps returns a copy of the current pattern for display.
func (s *Sequence) Steps() []Step {
	steps := *s.steps.Load()
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
