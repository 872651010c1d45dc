package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const sampleLEF = `VERSION 5.8 ;
UNITS
  DATABASE MICRONS 1000 ;
END UNITS

LAYER metal1
  TYPE ROUTING ;
  DIRECTION HORIZONTAL ;
  PITCH 0.2 ;
END metal1

SITE core
  CLASS CORE ;
  SIZE 0.2 BY 2 ;
END core

MACRO INV_X1
  CLASS CORE ;
  SIZE 0.6 BY 2 ;
  PIN A
    DIRECTION INPUT ;
  END A
  PIN Y
    DIRECTION OUTPUT ;
  END Y
END INV_X1

MACRO FILL1
  CLASS CORE SPACER ;
  SIZE 0.2 BY 2 ;
END FILL1

END LIBRARY
`

const sampleDEF = `VERSION 5.8 ;
DESIGN top ;
UNITS DISTANCE MICRONS 1000 ;
DIEAREA ( 0 0 ) ( 20000 10000 ) ;
ROW ROW_0 core 0 0 N DO 100 BY 1 STEP 200 0 ;
ROW ROW_1 core 0 2000 FS DO 100 BY 1 STEP 200 0 ;
COMPONENTS 2 ;
  - u1 INV_X1 + PLACED ( 1000 0 ) N ;
  - u2 INV_X1 + PLACED ( 3000 0 ) N ;
END COMPONENTS
PINS 2 ;
  - in + NET in + DIRECTION INPUT + PLACED ( 0 5000 ) N ;
  - out + NET out + DIRECTION OUTPUT ;
END PINS
NETS 3 ;
  - in ( PIN in ) ( u1 A ) ;
  - mid ( u1 Y ) ( u2 A ) ;
  - out ( u2 Y ) ( PIN out ) ;
END NETS
END DESIGN
`

// badRecordDEF has one component with an unknown master and one net that
// references it
const badRecordDEF = `VERSION 5.8 ;
DESIGN top ;
UNITS DISTANCE MICRONS 1000 ;
DIEAREA ( 0 0 ) ( 20000 10000 ) ;
COMPONENTS 2 ;
  - u1 INV_X1 + PLACED ( 1000 0 ) N ;
  - u9 NAND9 + PLACED ( 3000 0 ) N ;
END COMPONENTS
NETS 1 ;
  - mid ( u1 Y ) ( u9 A ) ;
END NETS
END DESIGN
`

const sampleVerilog = `module top (in, out);
  input in;
  output out;
  wire n;
  INV_X1 u1 (.A(in), .Y(n));
  INV_X1 u2 (.A(n), .Y(out));
endmodule
`

type recordingObserver struct {
	lef, def, db int

	tech  *odb.Tech
	lib   *odb.Lib
	block *odb.Block
	gotDb *odb.Database

	onLef func()
}

func (o *recordingObserver) PostReadLef(tech *odb.Tech, lib *odb.Lib) {
	o.lef++
	o.tech, o.lib = tech, lib
	if o.onLef != nil {
		o.onLef()
	}
}

func (o *recordingObserver) PostReadDef(block *odb.Block) {
	o.def++
	o.block = block
}

func (o *recordingObserver) PostReadDb(db *odb.Database) {
	o.db++
	o.gotDb = db
}

func (o *recordingObserver) total() int {
	return o.lef + o.def + o.db
}

type namedInterp string

func (n namedInterp) Name() string { return string(n) }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newRuntime returns an initialized runtime whose fatal messages do not exit
func newRuntime(t *testing.T, opts ...Option) (*Runtime, *observer.ObservedLogs, *utl.ContinueHook) {
	t.Helper()
	r, logs, hook := newUninitialized(t, opts...)
	if err := r.Init(namedInterp("test")); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		if r.Initialized() {
			if err := r.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		}
	})
	return r, logs, hook
}

func newUninitialized(t *testing.T, opts ...Option) (*Runtime, *observer.ObservedLogs, *utl.ContinueHook) {
	t.Helper()
	logger, logs, hook := utl.NewObserved()
	opts = append([]Option{WithLogger(logger), WithThreads(2)}, opts...)
	return New(opts...), logs, hook
}

// loadDesign reads the sample library and layout
func loadDesign(t *testing.T, r *Runtime) {
	t.Helper()
	if err := r.ReadLef(writeFile(t, "cells.lef", sampleLEF), "cells", true, true); err != nil {
		t.Fatalf("ReadLef() error = %v", err)
	}
	if err := r.ReadDef(writeFile(t, "top.def", sampleDEF), false, false, false); err != nil {
		t.Fatalf("ReadDef() error = %v", err)
	}
}

func errorLogs(logs *observer.ObservedLogs) int {
	return logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}
