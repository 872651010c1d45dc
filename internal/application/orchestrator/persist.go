package orchestrator

import (
	"bytes"
	"context"
	"os"

	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// NoDifferences is the report DiffDbs writes for equal databases
const NoDifferences = "No differences found.\n"

// ReadDb replaces the database contents with the snapshot at path. The
// database object itself is kept, so every collaborator still sees it.
func (r *Runtime) ReadDb(ctx context.Context, path string) error {
	const op = "read_db"
	return r.run(op, func() error {
		snap, err := r.loadSnapshot(ctx, op, path)
		if err != nil {
			return err
		}

		r.db.Restore(snap)
		r.logger.Info(utl.ORD, 20, "database read", zap.String("path", path))

		r.notifyDb(r.db)
		return nil
	})
}

// WriteDb saves the database contents to path
func (r *Runtime) WriteDb(ctx context.Context, path string) error {
	const op = "write_db"
	return r.run(op, func() error {
		var buf bytes.Buffer
		if err := odb.Encode(&buf, r.db); err != nil {
			return r.fail(op, ErrFormat, err)
		}
		if err := r.store.Save(ctx, path, buf.Bytes()); err != nil {
			return r.fail(op, ErrResource, err)
		}
		r.logger.Info(utl.ORD, 21, "database written",
			zap.String("path", path), zap.Int("bytes", buf.Len()))
		return nil
	})
}

// DiffDbs compares two persisted databases and writes a report to the
// local file diffs. The live database is not touched.
func (r *Runtime) DiffDbs(ctx context.Context, path1, path2, diffs string) error {
	const op = "diff_dbs"
	return r.run(op, func() error {
		a, err := r.loadSnapshot(ctx, op, path1)
		if err != nil {
			return err
		}
		b, err := r.loadSnapshot(ctx, op, path2)
		if err != nil {
			return err
		}

		report := odb.Diff(a, b)
		if report == "" {
			report = NoDifferences
		}
		if err := os.WriteFile(diffs, []byte(report), 0o644); err != nil {
			return r.fail(op, ErrResource, err)
		}

		r.logger.Info(utl.ORD, 22, "databases compared",
			zap.String("a", path1),
			zap.String("b", path2),
			zap.Bool("equal", report == NoDifferences))
		return nil
	})
}

func (r *Runtime) loadSnapshot(ctx context.Context, op, path string) (*odb.Snapshot, error) {
	data, err := r.store.Load(ctx, path)
	if err != nil {
		return nil, r.fail(op, ErrResource, err)
	}
	snap, err := odb.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, r.fail(op, ErrFormat, err)
	}
	return snap, nil
}
