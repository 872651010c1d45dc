package lef

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
	"github.com/aescanero/ordo/pkg/odb"
)

const sampleLEF = `VERSION 5.8 ;
BUSBITCHARS "[]" ;
UNITS
  DATABASE MICRONS 1000 ;
END UNITS
MANUFACTURINGGRID 0.005 ;

LAYER metal1
  TYPE ROUTING ;
  DIRECTION HORIZONTAL ;
  PITCH 0.2 ;
  WIDTH 0.1 ;
  SPACING 0.1 ;
END metal1

LAYER via1
  TYPE CUT ;
END via1

VIA via1_def DEFAULT
  LAYER metal1 ;
    RECT -0.1 -0.1 0.1 0.1 ;
END via1_def

SITE core
  CLASS CORE ;
  SIZE 0.2 BY 2 ;
END core

MACRO INV_X1
  CLASS CORE ;
  FOREIGN INV_X1 0 0 ;
  SIZE 0.6 BY 2 ;
  SITE core ;
  PIN A
    DIRECTION INPUT ;
    USE SIGNAL ;
    PORT
      LAYER metal1 ;
        RECT 0 0 0.1 0.1 ;
    END
  END A
  PIN Y
    DIRECTION OUTPUT ;
  END Y
  OBS
    LAYER metal1 ;
      RECT 0 0 0.6 2 ;
  END
END INV_X1

MACRO FILL1
  CLASS CORE SPACER ;
  SIZE 0.2 BY 2 ;
END FILL1

END LIBRARY
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleLEF), "sample.lef")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if f.DbUnitsPerMicron != 1000 {
		t.Errorf("DbUnitsPerMicron = %d, want 1000", f.DbUnitsPerMicron)
	}
	if len(f.Layers) != 2 || f.Layers[0].Direction != "HORIZONTAL" {
		t.Errorf("Layers = %+v", f.Layers)
	}
	if len(f.Macros) != 2 {
		t.Fatalf("Macros = %d, want 2", len(f.Macros))
	}
	if got := f.Macros[1].Class; got != "CORE SPACER" {
		t.Errorf("FILL1 class = %q, want CORE SPACER", got)
	}
	if pins := f.Macros[0].Pins; len(pins) != 2 || pins[0].Use != "SIGNAL" || pins[1].Direction != "OUTPUT" {
		t.Errorf("INV_X1 pins = %+v", pins)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad units", "UNITS\n DATABASE MICRONS abc ;\nEND UNITS\n"},
		{"layer without type", "LAYER m1\n WIDTH 0.1 ;\nEND m1\n"},
		{"macro without size", "MACRO A\n CLASS CORE ;\nEND A\n"},
		{"unterminated macro", "MACRO A\n SIZE 1 BY 1 ;\n"},
		{"mismatched end", "SITE s\n SIZE 1 BY 1 ;\nEND t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), "bad.lef")
			var pe *token.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse() error = %v, want *token.ParseError", err)
			}
			if pe.File != "bad.lef" {
				t.Errorf("File = %q, want bad.lef", pe.File)
			}
		})
	}
}

func TestReadLibraryTechAndLib(t *testing.T) {
	path := writeFile(t, "cells.lef", sampleLEF)
	db := odb.NewDatabase()

	tech, lib, err := NewCodec().ReadLibrary(db, path, "", true, true)
	if err != nil {
		t.Fatalf("ReadLibrary() error = %v", err)
	}
	if tech == nil || lib == nil {
		t.Fatalf("ReadLibrary() = %v, %v, want both non-nil", tech, lib)
	}
	if db.Tech() != tech {
		t.Error("technology not installed")
	}
	if lib.Name != "cells" {
		t.Errorf("lib name = %q, want file base name", lib.Name)
	}
	if tech.ManufacturingGrid != 5 {
		t.Errorf("ManufacturingGrid = %d, want 5", tech.ManufacturingGrid)
	}
	if l := tech.FindLayer("metal1"); l == nil || l.Pitch != 200 || l.Width != 100 {
		t.Errorf("metal1 = %+v", l)
	}
	m := lib.FindMaster("INV_X1")
	if m == nil || m.Width != 600 || m.Height != 2000 {
		t.Fatalf("INV_X1 = %+v", m)
	}
	if _, fill := db.FindMaster("FILL1"); fill == nil || !fill.IsFiller() {
		t.Error("FILL1 should be a filler")
	}
}

func TestReadLibraryModes(t *testing.T) {
	path := writeFile(t, "cells.lef", sampleLEF)

	t.Run("tech only", func(t *testing.T) {
		db := odb.NewDatabase()
		tech, lib, err := NewCodec().ReadLibrary(db, path, "tlib", true, false)
		if err != nil {
			t.Fatalf("ReadLibrary() error = %v", err)
		}
		if tech == nil || lib != nil {
			t.Errorf("got tech=%v lib=%v, want tech only", tech, lib)
		}
		if len(db.Libs()) != 0 {
			t.Errorf("libs = %d, want 0", len(db.Libs()))
		}
	})

	t.Run("lib only needs tech", func(t *testing.T) {
		db := odb.NewDatabase()
		_, _, err := NewCodec().ReadLibrary(db, path, "l", false, true)
		if !errors.Is(err, ErrNoTech) {
			t.Fatalf("error = %v, want ErrNoTech", err)
		}
	})

	t.Run("lib only uses existing units", func(t *testing.T) {
		db := odb.NewDatabase()
		db.SetTech(odb.NewTech("t", 2000))
		tech, lib, err := NewCodec().ReadLibrary(db, path, "l", false, true)
		if err != nil {
			t.Fatalf("ReadLibrary() error = %v", err)
		}
		if tech != nil {
			t.Error("tech should be nil for a library-only read")
		}
		if m := lib.FindMaster("INV_X1"); m.Width != 1200 {
			t.Errorf("width = %d, want 1200 at 2000 dbu", m.Width)
		}
	})

	t.Run("second tech rejected", func(t *testing.T) {
		db := odb.NewDatabase()
		db.SetTech(odb.NewTech("t", 1000))
		if _, _, err := NewCodec().ReadLibrary(db, path, "l", true, true); !errors.Is(err, ErrTechExists) {
			t.Fatalf("error = %v, want ErrTechExists", err)
		}
	})
}

func TestReadLibraryFailureLeavesDatabaseUntouched(t *testing.T) {
	bad := strings.Replace(sampleLEF, "END FILL1", "END FILL2", 1)
	path := writeFile(t, "bad.lef", bad)
	db := odb.NewDatabase()

	if _, _, err := NewCodec().ReadLibrary(db, path, "", true, true); err == nil {
		t.Fatal("expected a parse error")
	}
	if db.Tech() != nil || len(db.Libs()) != 0 {
		t.Error("failed read mutated the database")
	}
}

func TestReadLibraryMissingFile(t *testing.T) {
	_, _, err := NewCodec().ReadLibrary(odb.NewDatabase(), filepath.Join(t.TempDir(), "nope.lef"), "", true, true)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want not-exist", err)
	}
}

func TestWriteLibraryRoundTrip(t *testing.T) {
	src := writeFile(t, "cells.lef", sampleLEF)
	db := odb.NewDatabase()
	codec := NewCodec()
	if _, _, err := codec.ReadLibrary(db, src, "cells", true, true); err != nil {
		t.Fatalf("ReadLibrary() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.lef")
	if err := codec.WriteLibrary(db, out); err != nil {
		t.Fatalf("WriteLibrary() error = %v", err)
	}

	again := odb.NewDatabase()
	if _, _, err := codec.ReadLibrary(again, out, "cells", true, true); err != nil {
		t.Fatalf("re-read error = %v", err)
	}

	a := &odb.Snapshot{Tech: db.Tech(), Libs: db.Libs()}
	b := &odb.Snapshot{Tech: again.Tech(), Libs: again.Libs()}
	if d := odb.DiffContent(a, b); d != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", d)
	}
}

func TestWriteLibraryWithoutTech(t *testing.T) {
	err := NewCodec().WriteLibrary(odb.NewDatabase(), filepath.Join(t.TempDir(), "x.lef"))
	if !errors.Is(err, ErrNoTech) {
		t.Fatalf("error = %v, want ErrNoTech", err)
	}
}
