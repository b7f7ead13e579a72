package engine

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRegisterAtRejectsOccupiedChannel(t *testing.T) {
	eng := &captureEngine{}
	r := NewInstrumentRegistry(eng, zap.NewNop())

	if _, err := r.RegisterAt("piano", 3, 0); err != nil {
		t.Fatal(err)
	}
	_, err := r.RegisterAt("organ", 3, 19)
	if !errors.Is(err, ErrDuplicateChannel) {
		t.Fatalf("second registration on channel 3 = %v, want ErrDuplicateChannel", err)
	}

	// Registry unchanged by the failed registration.
	insts := r.Instruments()
	if len(insts) != 1 || insts[0].Name != "piano" {
		t.Errorf("registry changed after rejected registration: %+v", insts)
	}
	if _, ok := r.Lookup("organ"); ok {
		t.Error("rejected instrument is present in the registry")
	}
}

func TestRegisterAssignsLowestFreeChannel(t *testing.T) {
	r := NewInstrumentRegistry(&captureEngine{}, nil)

	if _, err := r.RegisterAt("drums", 0, 118); err != nil {
		t.Fatal(err)
	}
	inst, err := r.Register("bass", 33)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Channel != 1 {
		t.Errorf("auto-assigned channel %d, want 1", inst.Channel)
	}

	r.Unregister("drums")
	inst, err = r.Register("lead", 81)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Channel != 0 {
		t.Errorf("channel %d after freeing 0, want 0", inst.Channel)
	}
}

func TestRegisterFailsWhenAllChannelsOccupied(t *testing.T) {
	r := NewInstrumentRegistry(&captureEngine{}, nil)
	for i := 0; i < NumMIDIChannels; i++ {
		if _, err := r.Register(string(rune('a'+i)), 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.Register("overflow", 0); !errors.Is(err, ErrDuplicateChannel) {
		t.Errorf("17th registration = %v, want ErrDuplicateChannel", err)
	}
}

func TestRegisterIssuesProgramChange(t *testing.T) {
	eng := &captureEngine{}
	r := NewInstrumentRegistry(eng, nil)

	if _, err := r.RegisterAt("strings", 5, 48); err != nil {
		t.Fatal(err)
	}
	pcs := eng.ofKind("pc")
	if len(pcs) != 1 {
		t.Fatalf("got %d program changes, want 1", len(pcs))
	}
	if pcs[0].channel != 5 || pcs[0].note != 48 {
		t.Errorf("program change = channel %d program %d, want 5/48", pcs[0].channel, pcs[0].note)
	}
}

func TestRegisterLeavesRegistryIntactOnBackendFailure(t *testing.T) {
	eng := &captureEngine{failSends: true}
	r := NewInstrumentRegistry(eng, nil)

	if _, err := r.RegisterAt("piano", 0, 0); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("register with dead backend = %v, want ErrBackendUnavailable", err)
	}
	if len(r.Instruments()) != 0 {
		t.Error("failed registration left an entry behind")
	}

	// The freed channel is usable once the backend returns.
	eng.setFail(false)
	if _, err := r.RegisterAt("piano", 0, 0); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterRejectsBadArguments(t *testing.T) {
	r := NewInstrumentRegistry(&captureEngine{}, nil)
	if _, err := r.RegisterAt("late", 16, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("channel 16 = %v, want ErrInvalidArgument", err)
	}
	if _, err := r.Register("", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty name = %v, want ErrInvalidArgument", err)
	}
	if _, err := r.Register("piano", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register("piano", 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("duplicate name = %v, want ErrInvalidArgument", err)
	}
}
