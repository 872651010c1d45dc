package orchestrator

import (
	"math/rand"
	"testing"
)

func TestReadLefScenario(t *testing.T) {
	r, _, _ := newRuntime(t)
	obs := &recordingObserver{}
	if err := r.AddObserver(obs); err != nil {
		t.Fatalf("AddObserver() error = %v", err)
	}

	if err := r.ReadLef(writeFile(t, "lib.tf", sampleLEF), "", true, true); err != nil {
		t.Fatalf("ReadLef() error = %v", err)
	}
	if obs.lef != 1 {
		t.Fatalf("PostReadLef fired %d times, want 1", obs.lef)
	}
	if obs.tech == nil || obs.lib == nil {
		t.Fatalf("PostReadLef got tech=%v lib=%v, want both", obs.tech, obs.lib)
	}
	if r.Db().Tech() == nil {
		t.Error("Db().Tech() is nil after reading a technology")
	}
	if obs.tech != r.Db().Tech() {
		t.Error("observer received a different technology than the database holds")
	}
	if obs.lib.Name != "lib" {
		t.Errorf("library name = %q, want the file base name", obs.lib.Name)
	}
}

func TestReadLefLibraryOnlyPassesNilTech(t *testing.T) {
	r, _, _ := newRuntime(t)
	if err := r.ReadLef(writeFile(t, "tech.lef", sampleLEF), "tech", true, false); err != nil {
		t.Fatalf("ReadLef(tech) error = %v", err)
	}

	obs := &recordingObserver{}
	_ = r.AddObserver(obs)
	if err := r.ReadLef(writeFile(t, "cells.lef", sampleLEF), "cells", false, true); err != nil {
		t.Fatalf("ReadLef(lib) error = %v", err)
	}
	if obs.tech != nil || obs.lib == nil {
		t.Errorf("PostReadLef got tech=%v lib=%v, want nil tech and a library", obs.tech, obs.lib)
	}
}

func TestAddObserverIsIdempotent(t *testing.T) {
	r, _, _ := newRuntime(t)
	obs := &recordingObserver{}
	for i := 0; i < 3; i++ {
		if err := r.AddObserver(obs); err != nil {
			t.Fatalf("AddObserver() error = %v", err)
		}
	}
	loadDesign(t, r)

	if obs.lef != 1 || obs.def != 1 {
		t.Errorf("notifications lef=%d def=%d, want 1 each", obs.lef, obs.def)
	}
	if obs.block != r.Db().Block() {
		t.Error("PostReadDef did not receive the database block")
	}
}

func TestRemoveObserver(t *testing.T) {
	r, _, _ := newRuntime(t)
	obs := &recordingObserver{}
	_ = r.AddObserver(obs)
	if err := r.RemoveObserver(obs); err != nil {
		t.Fatalf("RemoveObserver() error = %v", err)
	}
	if err := r.RemoveObserver(&recordingObserver{}); err != nil {
		t.Fatalf("RemoveObserver(unknown) error = %v", err)
	}
	loadDesign(t, r)

	if obs.total() != 0 {
		t.Errorf("removed observer notified %d times", obs.total())
	}
}

func TestObserverMutatesSetDuringNotification(t *testing.T) {
	r, _, _ := newRuntime(t)
	late := &recordingObserver{}
	self := &recordingObserver{}
	self.onLef = func() {
		_ = r.RemoveObserver(self)
		_ = r.AddObserver(late)
	}
	_ = r.AddObserver(self)

	if err := r.ReadLef(writeFile(t, "cells.lef", sampleLEF), "", true, true); err != nil {
		t.Fatalf("ReadLef() error = %v", err)
	}
	if self.lef != 1 {
		t.Errorf("self-removing observer fired %d times, want 1", self.lef)
	}
	if late.lef != 0 {
		t.Errorf("observer added during notification fired %d times in the same event", late.lef)
	}

	if err := r.ReadDef(writeFile(t, "top.def", sampleDEF), false, false, false); err != nil {
		t.Fatalf("ReadDef() error = %v", err)
	}
	if self.def != 0 || late.def != 1 {
		t.Errorf("after mutation: self.def=%d late.def=%d, want 0 and 1", self.def, late.def)
	}
}

// For any add/remove sequence, an observer receives an event exactly when
// it is registered at the time the event fires.
func TestObserverRegistrationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		r, _, _ := newRuntime(t)
		observers := make([]*recordingObserver, 4)
		for i := range observers {
			observers[i] = &recordingObserver{}
		}
		registered := make(map[*recordingObserver]bool)

		for step := 0; step < 10; step++ {
			o := observers[rng.Intn(len(observers))]
			if rng.Intn(2) == 0 {
				_ = r.AddObserver(o)
				registered[o] = true
			} else {
				_ = r.RemoveObserver(o)
				delete(registered, o)
			}
		}

		if err := r.ReadLef(writeFile(t, "cells.lef", sampleLEF), "", true, true); err != nil {
			t.Fatalf("ReadLef() error = %v", err)
		}
		for i, o := range observers {
			want := 0
			if registered[o] {
				want = 1
			}
			if o.lef != want {
				t.Errorf("trial %d observer %d: lef=%d, want %d", trial, i, o.lef, want)
			}
		}
		if got := r.ObserverCount(); got != len(registered)+1 {
			// Sta registers itself during Init
			t.Errorf("trial %d: ObserverCount() = %d, want %d", trial, got, len(registered)+1)
		}
	}
}

func TestStaObservesReads(t *testing.T) {
	r, _, _ := newRuntime(t)
	sta := r.Sta()
	if !sta.NetworkStale() {
		t.Fatal("Sta should start stale")
	}
	loadDesign(t, r)

	if sta.NetworkStale() {
		t.Error("Sta still stale after ReadDef")
	}
	if got := sta.InstanceCount(); got != 2 {
		t.Errorf("Sta InstanceCount() = %d, want 2", got)
	}
}
