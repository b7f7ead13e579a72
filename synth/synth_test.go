package synth

import (
	"math"
	"testing"
)

func TestNoteToFreq(t *testing.T) {
	cases := []struct {
		note uint8
		want float64
	}{
		{69, 440.0},  // A4
		{57, 220.0},  // A3
		{81, 880.0},  // A5
		{60, 261.63}, // middle C
	}
	for _, c := range cases {
		got := noteToFreq(c.note)
		if math.Abs(got-c.want) > 0.01 {
			t.Errorf("noteToFreq(%d) = %.3f, want %.3f", c.note, got, c.want)
		}
	}
}

func TestWaveForProgram(t *testing.T) {
	cases := []struct {
		program uint8
		want    waveType
	}{
		{0, waveSine},      // acoustic grand
		{19, waveSine},     // church organ
		{33, waveTriangle}, // electric bass
		{48, waveSawtooth}, // string ensemble
		{73, waveTriangle}, // flute
		{80, waveSquare},   // square lead
		{127, waveSquare},
	}
	for _, c := range cases {
		if got := waveForProgram(c.program); got != c.want {
			t.Errorf("waveForProgram(%d) = %d, want %d", c.program, got, c.want)
		}
	}
}

func TestOscillateStaysInRange(t *testing.T) {
	waves := []waveType{waveSine, waveTriangle, waveSawtooth, waveSquare}
	for _, w := range waves {
		for i := 0; i < 100; i++ {
			phase := float64(i) / 100.0
			v := oscillate(w, phase)
			if v < -1.0 || v > 1.0 {
				t.Fatalf("oscillate(%d, %.2f) = %f out of range", w, phase, v)
			}
		}
	}
}

func TestOscillateSquareEdges(t *testing.T) {
	if v := oscillate(waveSquare, 0.25); v != 1.0 {
		t.Errorf("square first half = %f, want 1", v)
	}
	if v := oscillate(waveSquare, 0.75); v != -1.0 {
		t.Errorf("square second half = %f, want -1", v)
	}
}
