package flow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/aescanero/ordo/pkg/utl"
)

const cellsLEF = `VERSION 5.8 ;
UNITS
  DATABASE MICRONS 1000 ;
END UNITS

LAYER metal1
  TYPE ROUTING ;
  DIRECTION HORIZONTAL ;
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

END LIBRARY
`

const topDEF = `VERSION 5.8 ;
DESIGN top ;
UNITS DISTANCE MICRONS 1000 ;
DIEAREA ( 0 0 ) ( 20000 10000 ) ;
COMPONENTS 1 ;
  - u1 INV_X1 + PLACED ( 1000 0 ) N ;
END COMPONENTS
END DESIGN
`

// writeDir writes files into a fresh directory and returns it
func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newRuntime(t *testing.T, interp orchestrator.Interpreter) *orchestrator.Runtime {
	t.Helper()
	logger, _, _ := utl.NewObserved()
	r := orchestrator.New(orchestrator.WithLogger(logger), orchestrator.WithThreads(1))
	if err := r.Init(interp); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `step "read_lef" {`},
		{"unknown step", `step "place_everything" {}`},
		{"unknown attribute", `speed = "fast"`},
		{"unknown block", `stage "a" {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "flow.hcl")
			if !errors.Is(err, ErrScript) {
				t.Errorf("Parse() error = %v, want ErrScript", err)
			}
		})
	}
}

func TestParseKeepsStepOrder(t *testing.T) {
	s, err := Parse([]byte(`
threads = 4

step "read_lef" {
  file = "a.lef"
}
step "read_def" {
  file = "a.def"
}
step "write_db" {
  file = "mem:a"
}
`), "/work/flow.hcl")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if s.Threads != "4" {
		t.Errorf("Threads = %q, want 4", s.Threads)
	}
	var ops []string
	for _, st := range s.Steps {
		ops = append(ops, st.Op)
	}
	if got := strings.Join(ops, ","); got != "read_lef,read_def,write_db" {
		t.Errorf("steps = %s", got)
	}
	if s.resolve("a.lef") != filepath.Join("/work", "a.lef") {
		t.Errorf("resolve(a.lef) = %s", s.resolve("a.lef"))
	}
	if s.resolve("/abs/a.lef") != "/abs/a.lef" {
		t.Errorf("absolute path rewritten to %s", s.resolve("/abs/a.lef"))
	}
}

func TestRunFlow(t *testing.T) {
	dir := writeDir(t, map[string]string{
		"cells.lef": cellsLEF,
		"top.def":   topDEF,
		"flow.hcl": `
threads = 2

variables {
  design = upper(env.DESIGN)
  out    = format("%s_out.def", env.DESIGN)
}

step "read_lef" {
  file = "cells.lef"
  lib  = "cells"
}

step "read_def" {
  file = "${env.DESIGN}.def"
}

step "set_thread_count" {
  count = threads + 1
}

step "write_def" {
  file = out
}

step "write_db" {
  file = "mem:${lower(design)}"
}

step "read_db" {
  file = "mem:top"
}
`,
	})

	interp := NewInterpreter(nil).WithEnviron([]string{"DESIGN=top"})
	s, err := Load(filepath.Join(dir, "flow.hcl"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	r := newRuntime(t, interp)
	if r.Interp().Name() != "hcl" {
		t.Errorf("Interp().Name() = %q", r.Interp().Name())
	}

	if err := interp.Run(context.Background(), r, s); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r.ThreadCount() != 3 {
		t.Errorf("ThreadCount() = %d, want 3", r.ThreadCount())
	}
	if r.Db().Block() == nil || r.Db().Block().Name != "top" {
		t.Error("design not loaded by the flow")
	}
	if _, err := os.Stat(filepath.Join(dir, "top_out.def")); err != nil {
		t.Errorf("write_def output missing: %v", err)
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	dir := writeDir(t, map[string]string{
		"top.def": topDEF,
		"flow.hcl": `
step "read_def" {
  file = "top.def"
}

step "write_def" {
  file = "never.def"
}
`,
	})

	interp := NewInterpreter(nil)
	s, err := Load(filepath.Join(dir, "flow.hcl"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	r := newRuntime(t, interp)

	err = interp.Run(context.Background(), r, s)
	if !errors.Is(err, orchestrator.ErrPreconditionFailure) {
		t.Fatalf("Run() error = %v, want precondition failure", err)
	}
	if !strings.Contains(err.Error(), "step 1 (read_def)") {
		t.Errorf("error does not name the failing step: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "never.def")); !os.IsNotExist(err) {
		t.Error("step after the failure was executed")
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing file", `step "read_def" {}`},
		{"unknown argument", `step "link_design" {
  top  = "top"
  flat = true
}`},
		{"undefined env", `step "read_verilog" {
  file = env.NOT_SET
}`},
		{"arguments on design_created", `step "design_created" {
  now = true
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.src), filepath.Join(t.TempDir(), "flow.hcl"))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			interp := NewInterpreter(nil).WithEnviron(nil)
			r := newRuntime(t, interp)
			if err := interp.Run(context.Background(), r, s); !errors.Is(err, ErrScript) {
				t.Errorf("Run() error = %v, want ErrScript", err)
			}
		})
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	s, err := Parse([]byte(`step "design_created" {}`), "flow.hcl")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	interp := NewInterpreter(nil)
	r := newRuntime(t, interp)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := interp.Run(ctx, r, s); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestVariablesCannotShadowBuiltins(t *testing.T) {
	s, err := Parse([]byte(`
variables {
  threads = 8
}
step "design_created" {}
`), "flow.hcl")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	interp := NewInterpreter(nil)
	r := newRuntime(t, interp)
	if err := interp.Run(context.Background(), r, s); !errors.Is(err, ErrScript) {
		t.Errorf("Run() error = %v, want ErrScript", err)
	}
}
