package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aescanero/ordo/internal/tools"
	"github.com/aescanero/ordo/pkg/adapters/formats/cdl"
	"github.com/aescanero/ordo/pkg/adapters/formats/def"
	"github.com/aescanero/ordo/pkg/adapters/formats/lef"
	"github.com/aescanero/ordo/pkg/adapters/formats/verilog"
	"github.com/aescanero/ordo/pkg/adapters/storage"
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// preconditionErrors are collaborator errors that mean the call was made in
// a state that does not allow it
var preconditionErrors = []error{
	lef.ErrNoTech, lef.ErrTechExists, lef.ErrLibExists,
	def.ErrNoTech, def.ErrNoBlock, def.ErrBlockExists, def.ErrVersion,
	cdl.ErrNoBlock,
	verilog.ErrNoModule, verilog.ErrUnresolved,
}

// classify maps a collaborator error onto the runtime error classes
func classify(err error) error {
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &pathErr),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, ports.ErrNotFound),
		errors.Is(err, storage.ErrNoBackend):
		return ErrResource
	}
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return ErrPreconditionFailure
		}
	}
	return ErrFormat
}

// run guards an operation with the lifecycle check and records its outcome
func (r *Runtime) run(op string, fn func() error) error {
	if err := r.requireInit(op); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil {
		status = "failed"
	}
	r.metrics.RecordOperation(op, status, time.Since(start))
	return err
}

// precondition logs and returns a PreconditionFailure
func (r *Runtime) precondition(op, msg string) error {
	r.logger.Error(utl.ORD, 10, msg, zap.String("op", op))
	return fmt.Errorf("%w: %s: %s", ErrPreconditionFailure, op, msg)
}

// fail logs a collaborator failure and returns it wrapped with class
func (r *Runtime) fail(op string, class, err error) error {
	r.logger.Error(utl.ORD, 11, "operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", class, op, err)
}

// ReadLef reads a library description, creating a technology and/or a
// library. Observers receive whichever records the read produced.
func (r *Runtime) ReadLef(file, libName string, makeTech, makeLibrary bool) error {
	const op = "read_lef"
	return r.run(op, func() error {
		if makeTech && r.db.Tech() != nil {
			return r.precondition(op, "technology already loaded")
		}
		if !makeTech && r.db.Tech() == nil {
			return r.precondition(op, "no technology loaded")
		}

		tech, lib, err := r.lef.ReadLibrary(r.db, file, libName, makeTech, makeLibrary)
		if err != nil {
			return r.fail(op, classify(err), err)
		}

		fields := []zap.Field{zap.String("file", file)}
		if tech != nil {
			fields = append(fields, zap.Int("layers", len(tech.Layers)))
		}
		if lib != nil {
			fields = append(fields, zap.String("library", lib.Name), zap.Int("macros", len(lib.Masters)))
		}
		r.logger.Info(utl.ORD, 12, "library read", fields...)

		r.notifyLef(tech, lib)
		return nil
	})
}

// ReadDef reads a layout description. A plain read creates the block;
// floorplanInit and incremental merge into the existing one. With
// continueOnErrors, bad records are logged as warnings and skipped.
func (r *Runtime) ReadDef(file string, continueOnErrors, floorplanInit, incremental bool) error {
	const op = "read_def"
	return r.run(op, func() error {
		if r.db.Tech() == nil {
			return r.precondition(op, "no technology loaded")
		}
		merge := floorplanInit || incremental
		if merge && r.db.Block() == nil {
			return r.precondition(op, "no block to merge into")
		}
		if !merge && r.db.Block() != nil {
			return r.precondition(op, "block already exists")
		}

		res, err := r.def.ReadLayout(r.db, file, ports.LayoutOptions{
			ContinueOnErrors: continueOnErrors,
			FloorplanInit:    floorplanInit,
			Incremental:      incremental,
		})
		if err != nil {
			return r.fail(op, classify(err), err)
		}

		for _, skipped := range res.Skipped {
			r.logger.Warn(utl.ORD, 13, "skipped layout record", zap.Error(skipped))
		}
		r.logger.Info(utl.ORD, 14, "layout read",
			zap.String("file", file),
			zap.String("block", res.Block.Name),
			zap.Int("insts", len(res.Block.Insts)),
			zap.Int("nets", len(res.Block.Nets)),
			zap.Int("skipped", len(res.Skipped)))

		r.notifyDef(res.Block)
		return nil
	})
}

// WriteLef writes the technology and libraries
func (r *Runtime) WriteLef(file string) error {
	const op = "write_lef"
	return r.run(op, func() error {
		if r.db.Tech() == nil {
			return r.precondition(op, "no technology loaded")
		}
		if err := r.lef.WriteLibrary(r.db, file); err != nil {
			return r.fail(op, classify(err), err)
		}
		return nil
	})
}

// WriteDef writes the block tagged with version
func (r *Runtime) WriteDef(file, version string) error {
	const op = "write_def"
	return r.run(op, func() error {
		if r.db.Block() == nil {
			return r.precondition(op, "no block loaded")
		}
		if !def.ValidVersion(version) {
			return r.precondition(op, fmt.Sprintf("unsupported version %q", version))
		}
		if err := r.def.WriteLayout(r.db, file, version); err != nil {
			return r.fail(op, classify(err), err)
		}
		return nil
	})
}

// WriteCdl writes a flattened circuit netlist. Every black-box file in
// masters must be readable.
func (r *Runtime) WriteCdl(file string, masters []string, includeFillers bool) error {
	const op = "write_cdl"
	return r.run(op, func() error {
		if r.db.Block() == nil {
			return r.precondition(op, "no block loaded")
		}
		if err := r.cdl.WriteCircuit(r.db, file, masters, includeFillers); err != nil {
			return r.fail(op, classify(err), err)
		}
		return nil
	})
}

// ReadVerilog imports a structural netlist. The database is untouched
// until LinkDesign.
func (r *Runtime) ReadVerilog(file string) error {
	const op = "read_verilog"
	return r.run(op, func() error {
		nl, err := r.vlog.ReadNetlist(file)
		if err != nil {
			return r.fail(op, classify(err), err)
		}
		r.vnet.SetNetlist(nl)
		r.logger.Info(utl.ORD, 15, "netlist read",
			zap.String("file", file), zap.Strings("modules", nl.Modules()))
		return nil
	})
}

// LinkDesign elaborates top into the block, replacing its netlist
func (r *Runtime) LinkDesign(top string) error {
	const op = "link_design"
	return r.run(op, func() error {
		nl := r.vnet.Netlist()
		if nl == nil {
			return r.precondition(op, "no structural netlist imported")
		}
		if !nl.HasModule(top) {
			return r.precondition(op, fmt.Sprintf("module %s not found", top))
		}
		if err := r.vlog.Link(r.db, nl, top); err != nil {
			return r.fail(op, classify(err), err)
		}
		r.vnet.SetLinked(top)

		block := r.db.Block()
		r.logger.Info(utl.ORD, 16, "design linked",
			zap.String("top", top),
			zap.Int("insts", len(block.Insts)),
			zap.Int("nets", len(block.Nets)))

		r.designChanged(block)
		return nil
	})
}

// DesignCreated tells dependent tools that a block was built in process.
// Observers are not notified.
func (r *Runtime) DesignCreated() error {
	const op = "design_created"
	return r.run(op, func() error {
		if r.db.Block() == nil {
			return r.precondition(op, "no block loaded")
		}
		r.designChanged(r.db.Block())
		return nil
	})
}

func (r *Runtime) designChanged(block *odb.Block) {
	for _, t := range r.order {
		if l, ok := t.(tools.DesignListener); ok {
			l.DesignChanged(block)
		}
	}
}
