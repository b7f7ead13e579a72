package engine

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tick is one indivisible time unit at the finest configured subdivision
// of a beat. Step counts up monotonically from zero at Start.
type Tick struct {
	Step         int64
	At           time.Time     // scheduled fire time, not wall-clock jitter
	Interval     time.Duration // step interval at the time of firing
	StepsPerBeat int
}

// TickHandler receives ticks on the metronome goroutine. Handlers must
// return quickly; the same goroutine services scheduled note-offs.
type TickHandler func(Tick)

// Metronome is the master time source. It emits ticks at
// tempo * stepsPerBeat per minute, computed from an absolute time base so
// scheduling jitter never accumulates into tempo drift, and it runs
// deferred jobs (pending note-offs) keyed by absolute fire time on the
// same loop.
type Metronome struct {
	mu           sync.Mutex
	bpm          float64
	stepsPerBeat int
	running      bool

	// Tick k fires at anchor + (k-anchorStep)*interval. SetTempo moves
	// the anchor to the next scheduled tick so a tempo change never
	// shifts the phase.
	anchor     time.Time
	anchorStep int64
	step       int64

	subs   []TickHandler
	jobs   jobQueue
	jobSeq int64

	now    func() time.Time
	logger *zap.Logger

	stopChan chan struct{}
	doneChan chan struct{}
	wakeChan chan struct{}
}

// MetronomeOption configures a Metronome.
type MetronomeOption func(*Metronome)

// WithMetronomeLogger sets the logger. Defaults to a no-op logger.
func WithMetronomeLogger(l *zap.Logger) MetronomeOption {
	return func(m *Metronome) { m.logger = l }
}

// NewMetronome creates a stopped metronome. Tempo and resolution must be
// positive.
func NewMetronome(bpm float64, stepsPerBeat int, opts ...MetronomeOption) (*Metronome, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("tempo %v bpm: %w", bpm, ErrInvalidArgument)
	}
	if stepsPerBeat <= 0 {
		return nil, fmt.Errorf("steps per beat %d: %w", stepsPerBeat, ErrInvalidArgument)
	}
	m := &Metronome{
		bpm:          bpm,
		stepsPerBeat: stepsPerBeat,
		now:          time.Now,
		logger:       zap.NewNop(),
		wakeChan:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Subscribe adds a tick handler. Handlers run in subscription order on
// the metronome goroutine.
func (m *Metronome) Subscribe(h TickHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, h)
}

// Tempo returns the current tempo in beats per minute.
func (m *Metronome) Tempo() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bpm
}

// StepsPerBeat returns the configured subdivision.
func (m *Metronome) StepsPerBeat() int {
	return m.stepsPerBeat
}

// Interval returns the current step interval.
func (m *Metronome) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intervalLocked()
}

// Running reports whether ticks are being generated.
func (m *Metronome) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Step returns the next step number to fire.
func (m *Metronome) Step() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// SetTempo changes the interval between ticks without resetting phase:
// the next tick still fires at its previously scheduled time (or
// immediately if that time has passed) and the new interval applies from
// there. Usable while running. Rejects non-positive values.
func (m *Metronome) SetTempo(bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("tempo %v bpm: %w", bpm, ErrInvalidArgument)
	}
	m.mu.Lock()
	if m.running {
		m.anchor = m.nextTickLocked()
		m.anchorStep = m.step
	}
	m.bpm = bpm
	m.mu.Unlock()
	m.logger.Debug("tempo changed", zap.Float64("bpm", bpm))
	m.wake()
	return nil
}

// Start begins tick generation with phase reset to zero: step 0 fires
// immediately. No-op if already running.
func (m *Metronome) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.anchor = m.now()
	m.anchorStep = 0
	m.step = 0
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})
	stop, done := m.stopChan, m.doneChan
	m.mu.Unlock()

	m.logger.Debug("metronome started", zap.Float64("bpm", m.Tempo()))
	go m.run(stop, done)
}

// Stop halts tick generation, interrupting any in-progress wait, and
// returns once the loop has exited. Idempotent. Pending scheduled jobs
// are kept; Flush runs them.
func (m *Metronome) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	done := m.doneChan
	m.mu.Unlock()

	<-done
	m.logger.Debug("metronome stopped")
}

// ScheduleAt queues fn to run at the given absolute time on the
// metronome goroutine. Jobs due at the same instant run in scheduling
// order. While stopped, jobs accumulate until Flush or the next Start.
func (m *Metronome) ScheduleAt(at time.Time, fn func()) {
	m.mu.Lock()
	m.jobSeq++
	heap.Push(&m.jobs, &job{at: at, seq: m.jobSeq, fn: fn})
	m.mu.Unlock()
	m.wake()
}

// PendingJobs returns the number of scheduled jobs not yet run.
func (m *Metronome) PendingJobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Flush runs every pending scheduled job immediately on the calling
// goroutine. Each job still runs exactly once: the queue pop is the
// claim. Call after Stop to fire outstanding note-offs early.
func (m *Metronome) Flush() {
	for {
		m.mu.Lock()
		if len(m.jobs) == 0 {
			m.mu.Unlock()
			return
		}
		j := heap.Pop(&m.jobs).(*job)
		m.mu.Unlock()
		j.fn()
	}
}

func (m *Metronome) intervalLocked() time.Duration {
	return time.Duration(60 / (m.bpm * float64(m.stepsPerBeat)) * float64(time.Second))
}

func (m *Metronome) nextTickLocked() time.Time {
	return m.anchor.Add(time.Duration(m.step-m.anchorStep) * m.intervalLocked())
}

func (m *Metronome) wake() {
	select {
	case m.wakeChan <- struct{}{}:
	default:
	}
}

// run is the playback loop: the only writer to tick state and the only
// goroutine that fires jobs while running. Its wait is the single
// blocking point and is interrupted by Stop and by schedule changes.
func (m *Metronome) run(stop, done chan struct{}) {
	defer close(done)
	for {
		m.mu.Lock()
		wakeAt := m.nextTickLocked()
		if len(m.jobs) > 0 && m.jobs[0].at.Before(wakeAt) {
			wakeAt = m.jobs[0].at
		}
		m.mu.Unlock()

		if d := wakeAt.Sub(m.now()); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-stop:
				timer.Stop()
				return
			case <-m.wakeChan:
				timer.Stop()
				continue
			case <-timer.C:
			}
		}

		select {
		case <-stop:
			return
		default:
		}

		now := m.now()

		// Due note-offs run before the tick so a retriggered note is
		// released before it fires again.
		m.runDueJobs(now)

		m.mu.Lock()
		next := m.nextTickLocked()
		if now.Before(next) {
			m.mu.Unlock()
			continue
		}
		tick := Tick{
			Step:         m.step,
			At:           next,
			Interval:     m.intervalLocked(),
			StepsPerBeat: m.stepsPerBeat,
		}
		m.step++
		subs := make([]TickHandler, len(m.subs))
		copy(subs, m.subs)
		m.mu.Unlock()

		for _, h := range subs {
			h(tick)
		}
	}
}

func (m *Metronome) runDueJobs(now time.Time) {
	for {
		m.mu.Lock()
		if len(m.jobs) == 0 || m.jobs[0].at.After(now) {
			m.mu.Unlock()
			return
		}
		j := heap.Pop(&m.jobs).(*job)
		m.mu.Unlock()
		j.fn()
	}
}

// job is a deferred action keyed by absolute fire time.
type job struct {
	at  time.Time
	seq int64 // insertion order, breaks ties
	fn  func()
}

type jobQueue []*job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) { *q = append(*q, x.(*job)) }

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return j
}
