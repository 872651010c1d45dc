package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/ordo/pkg/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB keeps rows in a map and recognizes the store's statements
type fakeDB struct {
	rows  map[string][]byte
	execs []string
	fail  error
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.vals[i].([]byte)
		case *bool:
			*p = r.vals[i].(bool)
		}
	}
	return nil
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.fail != nil {
		return pgconn.CommandTag{}, f.fail
	}
	f.execs = append(f.execs, sql)
	switch {
	case strings.Contains(sql, "INSERT INTO ordo_snapshots"):
		f.rows[args[0].(string)] = args[1].([]byte)
	case strings.Contains(sql, "DELETE FROM ordo_snapshots"):
		delete(f.rows, args[0].(string))
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.fail != nil {
		return fakeRow{err: f.fail}
	}
	data, ok := f.rows[args[0].(string)]
	if strings.Contains(sql, "EXISTS") {
		return fakeRow{vals: []any{ok}}
	}
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{vals: []any{data}}
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported by fake")
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: make(map[string][]byte)}
	s := NewSnapshotStore(db)
	s.now = func() time.Time { return time.Unix(0, 0) }

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if !strings.Contains(db.execs[0], "CREATE TABLE IF NOT EXISTS ordo_snapshots") {
		t.Errorf("schema statement = %q", db.execs[0])
	}

	if _, err := s.Load(ctx, "a"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.Save(ctx, "a", []byte("one")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx, "a")
	if err != nil || string(got) != "one" {
		t.Errorf("Load() = %q, %v", got, err)
	}
	if ok, err := s.Exists(ctx, "a"); err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Error("snapshot still exists after Delete")
	}
}

func TestSnapshotStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	s := NewSnapshotStore(&fakeDB{rows: map[string][]byte{}, fail: boom})

	if err := s.Save(ctx, "a", nil); !errors.Is(err, boom) {
		t.Errorf("Save() error = %v", err)
	}
	_, err := s.Load(ctx, "a")
	if !errors.Is(err, boom) || errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Load() error = %v", err)
	}
}
