package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aescanero/ordo/pkg/adapters/storage"
	"github.com/aescanero/ordo/pkg/adapters/storage/file"
	"github.com/aescanero/ordo/pkg/adapters/storage/memory"
	"github.com/aescanero/ordo/pkg/odb"
)

func TestWriteReadDbRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _, _ := newRuntime(t)
	loadDesign(t, src)
	path := filepath.Join(t.TempDir(), "design.odb")

	if err := src.WriteDb(ctx, path); err != nil {
		t.Fatalf("WriteDb() error = %v", err)
	}

	dst, _, _ := newRuntime(t)
	db := dst.Db()
	obs := &recordingObserver{}
	_ = dst.AddObserver(obs)
	if err := dst.ReadDb(ctx, path); err != nil {
		t.Fatalf("ReadDb() error = %v", err)
	}

	if dst.Db() != db {
		t.Fatal("ReadDb replaced the database object")
	}
	if obs.db != 1 || obs.gotDb != db {
		t.Errorf("PostReadDb fired %d times with %p, want once with %p", obs.db, obs.gotDb, db)
	}

	want, _ := src.Db().Snapshot()
	got, _ := dst.Db().Snapshot()
	if diff := odb.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if dst.Sta().InstanceCount() != 2 {
		t.Errorf("Sta not refreshed by ReadDb: %d insts", dst.Sta().InstanceCount())
	}
}

func TestReadDbReplacesPopulatedDatabase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	router := storage.NewRouter(file.NewSnapshotStore(t.TempDir())).Handle(storage.SchemeMemory, store)

	a, _, _ := newRuntime(t, WithSnapshotStore(router))
	if err := a.ReadLef(writeFile(t, "cells.lef", sampleLEF), "", true, true); err != nil {
		t.Fatalf("ReadLef() error = %v", err)
	}
	if err := a.WriteDb(ctx, "mem:lib-only"); err != nil {
		t.Fatalf("WriteDb() error = %v", err)
	}

	b, _, _ := newRuntime(t, WithSnapshotStore(router))
	loadDesign(t, b)
	if err := b.ReadDb(ctx, "mem:lib-only"); err != nil {
		t.Fatalf("ReadDb() error = %v", err)
	}
	if b.Db().Block() != nil {
		t.Error("block from the previous design survived ReadDb")
	}
	if b.Db().Tech().ID != a.Db().Tech().ID {
		t.Error("technology identity not preserved")
	}
	if ok, _ := store.Exists(ctx, "lib-only"); !ok {
		t.Error("mem: path not routed to the memory store")
	}
}

func TestReadDbErrors(t *testing.T) {
	ctx := context.Background()
	r, logs, _ := newRuntime(t)
	loadDesign(t, r)
	before, _ := r.Db().Snapshot()

	if err := r.ReadDb(ctx, filepath.Join(t.TempDir(), "missing.odb")); !errors.Is(err, ErrResource) {
		t.Errorf("ReadDb(missing) error = %v, want resource error", err)
	}
	if err := r.ReadDb(ctx, writeFile(t, "bad.odb", "{not json")); !errors.Is(err, ErrFormat) {
		t.Errorf("ReadDb(corrupt) error = %v, want format error", err)
	}
	if err := r.ReadDb(ctx, writeFile(t, "v9.odb", `{"version": 9}`)); !errors.Is(err, ErrFormat) {
		t.Errorf("ReadDb(version) error = %v, want format error", err)
	}
	if err := r.ReadDb(ctx, "redis:design"); !errors.Is(err, ErrResource) {
		t.Errorf("ReadDb(unconfigured backend) error = %v, want resource error", err)
	}

	after, _ := r.Db().Snapshot()
	if diff := odb.Diff(before, after); diff != "" {
		t.Errorf("failed ReadDb changed the database:\n%s", diff)
	}
	if errorLogs(logs) != 4 {
		t.Errorf("error logs = %d, want 4", errorLogs(logs))
	}
}

func TestDiffDbs(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newRuntime(t)
	loadDesign(t, r)
	dir := t.TempDir()

	a := filepath.Join(dir, "a.odb")
	b := filepath.Join(dir, "b.odb")
	if err := r.WriteDb(ctx, a); err != nil {
		t.Fatalf("WriteDb(a) error = %v", err)
	}
	if err := r.WriteDb(ctx, b); err != nil {
		t.Fatalf("WriteDb(b) error = %v", err)
	}

	report := filepath.Join(dir, "same.txt")
	if err := r.DiffDbs(ctx, a, b, report); err != nil {
		t.Fatalf("DiffDbs() error = %v", err)
	}
	data, _ := os.ReadFile(report)
	if string(data) != NoDifferences {
		t.Errorf("report for equal databases = %q", data)
	}

	r.Db().Block().FindInst("u1").Location.X = 9999
	if err := r.WriteDb(ctx, b); err != nil {
		t.Fatalf("WriteDb(b) error = %v", err)
	}
	live, _ := r.Db().Snapshot()

	report = filepath.Join(dir, "diff.txt")
	if err := r.DiffDbs(ctx, a, b, report); err != nil {
		t.Fatalf("DiffDbs() error = %v", err)
	}
	data, _ = os.ReadFile(report)
	if string(data) == NoDifferences || !strings.Contains(string(data), "9999") {
		t.Errorf("report does not show the moved instance:\n%s", data)
	}

	after, _ := r.Db().Snapshot()
	if diff := odb.Diff(live, after); diff != "" {
		t.Errorf("DiffDbs mutated the live database:\n%s", diff)
	}

	if err := r.DiffDbs(ctx, a, filepath.Join(dir, "missing.odb"), report); !errors.Is(err, ErrResource) {
		t.Errorf("DiffDbs(missing) error = %v, want resource error", err)
	}
}
