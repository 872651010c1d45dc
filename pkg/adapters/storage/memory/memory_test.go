package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/ordo/pkg/ports"
)

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore()

	data := []byte("snapshot")
	if err := s.Save(ctx, "b", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data[0] = 'X'

	got, err := s.Load(ctx, "b")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "snapshot" {
		t.Errorf("Load() = %q, stored data aliased the caller's slice", got)
	}

	s.Save(ctx, "a", nil)
	keys, _ := s.List(ctx)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("List() = %v", keys)
	}

	s.Delete(ctx, "b")
	if _, err := s.Load(ctx, "b"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Load() after Delete error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "a"); !ok {
		t.Error("Exists(a) = false")
	}
}
