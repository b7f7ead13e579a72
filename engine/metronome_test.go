package engine

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func TestNewMetronomeRejectsBadArguments(t *testing.T) {
	cases := []struct {
		name         string
		bpm          float64
		stepsPerBeat int
	}{
		{"zero tempo", 0, 4},
		{"negative tempo", -120, 4},
		{"zero steps", 120, 0},
		{"negative steps", 120, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMetronome(tc.bpm, tc.stepsPerBeat); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("NewMetronome(%v, %d) = %v, want ErrInvalidArgument", tc.bpm, tc.stepsPerBeat, err)
			}
		})
	}
}

func TestSetTempoRejectsNonPositiveAndKeepsRunning(t *testing.T) {
	m, err := NewMetronome(120, 4)
	if err != nil {
		t.Fatal(err)
	}
	m.Start()
	defer m.Stop()

	if err := m.SetTempo(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetTempo(0) = %v, want ErrInvalidArgument", err)
	}
	if !m.Running() {
		t.Error("metronome stopped after rejected SetTempo")
	}
	if got := m.Tempo(); got != 120 {
		t.Errorf("tempo changed to %v after rejected SetTempo", got)
	}
}

// The tick schedule is computed from the absolute start time, so the
// error at tick k is only Duration rounding, never accumulated sleep
// jitter: even tick 10000 stays within a microsecond of ideal.
func TestTickScheduleHasNoCumulativeDrift(t *testing.T) {
	const bpm, stepsPerBeat = 118, 3 // interval has a fractional nanosecond
	m, err := NewMetronome(bpm, stepsPerBeat)
	if err != nil {
		t.Fatal(err)
	}

	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m.anchor = t0
	m.anchorStep = 0

	idealNs := 60.0 / (bpm * float64(stepsPerBeat)) * 1e9
	for k := int64(0); k <= 10000; k += 100 {
		m.step = k
		got := m.nextTickLocked()
		ideal := float64(k) * idealNs
		diff := math.Abs(float64(got.Sub(t0).Nanoseconds()) - ideal)
		if diff > float64(time.Millisecond) {
			t.Fatalf("tick %d drifted %.0fns from ideal schedule", k, diff)
		}
	}
}

func collectTicks(t *testing.T, m *Metronome, n int) []Tick {
	t.Helper()
	var mu sync.Mutex
	var ticks []Tick
	done := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(tick Tick) {
		mu.Lock()
		ticks = append(ticks, tick)
		got := len(ticks)
		mu.Unlock()
		if got >= n {
			once.Do(func() { close(done) })
		}
	})
	m.Start()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ticks")
	}
	m.Stop()
	mu.Lock()
	defer mu.Unlock()
	out := make([]Tick, len(ticks))
	copy(out, ticks)
	return out
}

func TestTicksAreSequentialAndEvenlySpaced(t *testing.T) {
	m, err := NewMetronome(600, 4) // 25ms interval, fast enough to test
	if err != nil {
		t.Fatal(err)
	}
	ticks := collectTicks(t, m, 8)

	interval := time.Duration(60.0 / (600 * 4) * float64(time.Second))
	for i, tick := range ticks[:8] {
		if tick.Step != int64(i) {
			t.Errorf("tick %d has step %d", i, tick.Step)
		}
		if i == 0 {
			continue
		}
		if d := tick.At.Sub(ticks[i-1].At); d != interval {
			t.Errorf("tick %d scheduled %v after previous, want %v", i, d, interval)
		}
	}
}

func TestSetTempoKeepsPhase(t *testing.T) {
	const oldBPM, newBPM = 600, 1200
	m, err := NewMetronome(oldBPM, 4)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var ticks []Tick
	done := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(tick Tick) {
		mu.Lock()
		ticks = append(ticks, tick)
		n := len(ticks)
		mu.Unlock()
		if n == 4 {
			// On the metronome goroutine, so the change lands between
			// ticks deterministically.
			if err := m.SetTempo(newBPM); err != nil {
				t.Error(err)
			}
		}
		if n >= 8 {
			once.Do(func() { close(done) })
		}
	})
	m.Start()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ticks")
	}
	m.Stop()

	oldInterval := time.Duration(60.0 / (oldBPM * 4) * float64(time.Second))
	newInterval := time.Duration(60.0 / (newBPM * 4) * float64(time.Second))

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < 8; i++ {
		d := ticks[i].At.Sub(ticks[i-1].At)
		// Tick 4 was already scheduled when the tempo changed, so the
		// boundary gap is still one old interval; from there on every
		// gap is one new interval. Nothing shorter than the new
		// minimum, no gap beyond old+new.
		if d < newInterval-time.Microsecond {
			t.Errorf("gap %d is %v, shorter than new interval %v", i, d, newInterval)
		}
		if d > oldInterval+newInterval {
			t.Errorf("gap %d is %v, longer than old+new interval", i, d)
		}
		if i > 5 && d != newInterval {
			t.Errorf("gap %d after tempo change is %v, want %v", i, d, newInterval)
		}
	}
}

func TestStopInterruptsLongWait(t *testing.T) {
	m, err := NewMetronome(1, 1) // 60s interval
	if err != nil {
		t.Fatal(err)
	}
	m.Start()
	time.Sleep(20 * time.Millisecond) // let tick 0 fire and the wait begin

	start := time.Now()
	m.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %v, want prompt cancellation of the wait", elapsed)
	}
	m.Stop() // idempotent
}

func TestScheduledJobsRunInTimeOrder(t *testing.T) {
	m, err := NewMetronome(120, 4)
	if err != nil {
		t.Fatal(err)
	}

	var order []int
	now := time.Now()
	m.ScheduleAt(now.Add(3*time.Hour), func() { order = append(order, 3) })
	m.ScheduleAt(now.Add(1*time.Hour), func() { order = append(order, 1) })
	m.ScheduleAt(now.Add(2*time.Hour), func() { order = append(order, 2) })

	if got := m.PendingJobs(); got != 3 {
		t.Fatalf("PendingJobs = %d, want 3", got)
	}
	m.Flush()
	if got := m.PendingJobs(); got != 0 {
		t.Errorf("PendingJobs after Flush = %d, want 0", got)
	}
	for i, want := range []int{1, 2, 3} {
		if order[i] != want {
			t.Fatalf("jobs ran in order %v, want [1 2 3]", order)
		}
	}
}

func TestScheduledJobsTieBreakByInsertion(t *testing.T) {
	m, err := NewMetronome(120, 4)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Now().Add(time.Hour)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		m.ScheduleAt(at, func() { order = append(order, i) })
	}
	m.Flush()
	for i, got := range order {
		if got != i {
			t.Fatalf("same-instant jobs ran in order %v, want insertion order", order)
		}
	}
}

func TestScheduledJobFiresDuringRun(t *testing.T) {
	m, err := NewMetronome(600, 4)
	if err != nil {
		t.Fatal(err)
	}
	fired := make(chan struct{})
	m.Start()
	defer m.Stop()
	m.ScheduleAt(time.Now().Add(10*time.Millisecond), func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job did not fire on the running loop")
	}
}
