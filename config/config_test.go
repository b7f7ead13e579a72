package config

import (
	"testing"
)

func TestDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tempo != 120 || cfg.StepsPerBeat != 4 {
		t.Errorf("defaults = %v bpm, %d steps/beat, want 120/4", cfg.Tempo, cfg.StepsPerBeat)
	}
	if !cfg.Click.Enabled || cfg.Click.BeatsPerBar != 4 {
		t.Errorf("default click = %+v", cfg.Click)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Tempo = 97.5
	cfg.StepsPerBeat = 3
	cfg.Click.Enabled = false
	cfg.MIDI.OutPort = "FluidSynth virtual port"

	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Tempo != 97.5 || loaded.StepsPerBeat != 3 {
		t.Errorf("loaded %v bpm, %d steps/beat", loaded.Tempo, loaded.StepsPerBeat)
	}
	if loaded.Click.Enabled {
		t.Error("click enabled flag did not round-trip")
	}
	if loaded.MIDI.OutPort != "FluidSynth virtual port" {
		t.Errorf("out port = %q", loaded.MIDI.OutPort)
	}
}
