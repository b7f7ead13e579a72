package engine

import (
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// captureEngine records every call for assertions. failSends makes all
// sends fail, simulating a disconnected backend.
type captureEngine struct {
	mu        sync.Mutex
	events    []capturedEvent
	failSends bool
}

type capturedEvent struct {
	kind     string // "on", "off", "pc", "raw"
	channel  uint8
	note     uint8
	velocity uint8
	at       time.Time
}

func (e *captureEngine) record(ev capturedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failSends {
		return ErrBackendUnavailable
	}
	ev.at = time.Now()
	e.events = append(e.events, ev)
	return nil
}

func (e *captureEngine) NoteOn(channel, note, velocity uint8) error {
	return e.record(capturedEvent{kind: "on", channel: channel, note: note, velocity: velocity})
}

func (e *captureEngine) NoteOff(channel, note uint8) error {
	return e.record(capturedEvent{kind: "off", channel: channel, note: note})
}

func (e *captureEngine) ProgramChange(channel, program uint8) error {
	return e.record(capturedEvent{kind: "pc", channel: channel, note: program})
}

func (e *captureEngine) Send(msg gomidi.Message) error {
	return e.record(capturedEvent{kind: "raw"})
}

func (e *captureEngine) setFail(fail bool) {
	e.mu.Lock()
	e.failSends = fail
	e.mu.Unlock()
}

func (e *captureEngine) all() []capturedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]capturedEvent, len(e.events))
	copy(out, e.events)
	return out
}

func (e *captureEngine) ofKind(kind string) []capturedEvent {
	var out []capturedEvent
	for _, ev := range e.all() {
		if ev.kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (e *captureEngine) count(kind string) int {
	return len(e.ofKind(kind))
}

// fakeScheduler collects scheduled jobs so tests can fire them by hand.
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []fakeJob
}

type fakeJob struct {
	at time.Time
	fn func()
}

func (s *fakeScheduler) ScheduleAt(at time.Time, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, fakeJob{at: at, fn: fn})
}

func (s *fakeScheduler) runAll() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	for _, j := range jobs {
		j.fn()
	}
}

func (s *fakeScheduler) pending() []fakeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fakeJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}
