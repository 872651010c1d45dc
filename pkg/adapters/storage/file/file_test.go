package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/aescanero/ordo/pkg/ports"
)

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewSnapshotStore(dir)

	if err := s.Save(ctx, "a.odb", []byte("one")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "a.odb", []byte("two")); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	got, err := s.Load(ctx, filepath.Join(dir, "a.odb"))
	if err != nil || string(got) != "two" {
		t.Errorf("Load(abs) = %q, %v", got, err)
	}

	keys, err := s.List(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "a.odb" {
		t.Errorf("List() = %v, %v (temporary files must not remain)", keys, err)
	}

	if err := s.Delete(ctx, "a.odb"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "a.odb"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
	_, err = s.Load(ctx, "a.odb")
	if !errors.Is(err, ports.ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	s := NewSnapshotStore(filepath.Join(t.TempDir(), "absent"))
	err := s.Save(context.Background(), "x.odb", []byte("x"))
	var pe *fs.PathError
	if !errors.As(err, &pe) {
		t.Fatalf("Save() error = %v, want *fs.PathError", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir, "x.odb")); err == nil {
		t.Error("file written into missing directory")
	}
}
