package lef

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aescanero/ordo/pkg/odb"
)

var (
	// ErrNoTech is returned when a library-only read finds no technology
	ErrNoTech = errors.New("no technology loaded")
	// ErrTechExists is returned when a technology read would replace an existing one
	ErrTechExists = errors.New("technology already loaded")
	// ErrLibExists is returned when the target library name is taken
	ErrLibExists = errors.New("library already exists")
)

// Codec reads and writes LEF files
type Codec struct{}

// NewCodec creates a LEF codec
func NewCodec() *Codec {
	return &Codec{}
}

// ReadLibrary parses path and creates a technology and/or library in db.
// Nothing is committed to db unless the whole file resolves.
func (c *Codec) ReadLibrary(db *odb.Database, path, libName string, makeTech, makeLibrary bool) (*odb.Tech, *odb.Lib, error) {
	if makeTech && db.Tech() != nil {
		return nil, nil, ErrTechExists
	}
	if !makeTech && db.Tech() == nil {
		return nil, nil, ErrNoTech
	}
	if libName == "" {
		libName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if makeLibrary && db.FindLib(libName) != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrLibExists, libName)
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer fh.Close()

	f, err := Parse(fh, path)
	if err != nil {
		return nil, nil, err
	}

	var tech *odb.Tech
	dbu := db.DbUnitsPerMicron()
	if makeTech {
		dbu = f.DbUnitsPerMicron
		if dbu == 0 {
			dbu = odb.DefaultDbUnitsPerMicron
		}
		tech, err = buildTech(f, libName, dbu)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var lib *odb.Lib
	if makeLibrary {
		lib, err = buildLib(f, libName, dbu)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if tech != nil {
		db.SetTech(tech)
	}
	if lib != nil {
		db.AddLib(lib)
	}
	return tech, lib, nil
}

func buildTech(f *File, name string, dbu int) (*odb.Tech, error) {
	t := odb.NewTech(name, dbu)
	t.ManufacturingGrid = toDBU(f.ManufacturingGrid, dbu)
	for _, l := range f.Layers {
		if t.FindLayer(l.Name) != nil {
			return nil, fmt.Errorf("duplicate layer %s", l.Name)
		}
		t.Layers = append(t.Layers, &odb.Layer{
			Name:      l.Name,
			Type:      l.Type,
			Direction: l.Direction,
			Pitch:     toDBU(l.Pitch, dbu),
			Width:     toDBU(l.Width, dbu),
		})
	}
	return t, nil
}

func buildLib(f *File, name string, dbu int) (*odb.Lib, error) {
	lib := odb.NewLib(name)
	for _, s := range f.Sites {
		if lib.FindSite(s.Name) != nil {
			return nil, fmt.Errorf("duplicate site %s", s.Name)
		}
		lib.Sites = append(lib.Sites, &odb.Site{
			Name:   s.Name,
			Class:  s.Class,
			Width:  toDBU(s.Width, dbu),
			Height: toDBU(s.Height, dbu),
		})
	}
	for _, m := range f.Macros {
		if lib.FindMaster(m.Name) != nil {
			return nil, fmt.Errorf("duplicate macro %s", m.Name)
		}
		master := &odb.Master{
			Name:   m.Name,
			Class:  m.Class,
			Width:  toDBU(m.Width, dbu),
			Height: toDBU(m.Height, dbu),
		}
		for i := range m.Pins {
			pin := m.Pins[i]
			if master.FindMTerm(pin.Name) != nil {
				return nil, fmt.Errorf("macro %s: duplicate pin %s", m.Name, pin.Name)
			}
			master.Pins = append(master.Pins, &pin)
		}
		lib.Masters = append(lib.Masters, master)
	}
	return lib, nil
}

// WriteLibrary writes the technology and every library of db to path
func (c *Codec) WriteLibrary(db *odb.Database, path string) error {
	if db.Tech() == nil {
		return ErrNoTech
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fh)
	if err := Write(w, db.Tech(), db.Libs()); err != nil {
		fh.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Write serializes tech and libs as LEF
func Write(w io.Writer, tech *odb.Tech, libs []*odb.Lib) error {
	dbu := tech.DbUnitsPerMicron
	um := func(v int) string {
		return strconv.FormatFloat(float64(v)/float64(dbu), 'f', -1, 64)
	}

	ew := &errWriter{w: w}
	ew.printf("VERSION 5.8 ;\nBUSBITCHARS \"[]\" ;\nDIVIDERCHAR \"/\" ;\n\n")
	ew.printf("UNITS\n  DATABASE MICRONS %d ;\nEND UNITS\n\n", dbu)
	if tech.ManufacturingGrid > 0 {
		ew.printf("MANUFACTURINGGRID %s ;\n\n", um(tech.ManufacturingGrid))
	}

	for _, l := range tech.Layers {
		ew.printf("LAYER %s\n  TYPE %s ;\n", l.Name, l.Type)
		if l.Direction != "" {
			ew.printf("  DIRECTION %s ;\n", l.Direction)
		}
		if l.Pitch > 0 {
			ew.printf("  PITCH %s ;\n", um(l.Pitch))
		}
		if l.Width > 0 {
			ew.printf("  WIDTH %s ;\n", um(l.Width))
		}
		ew.printf("END %s\n\n", l.Name)
	}

	for _, lib := range libs {
		for _, s := range lib.Sites {
			ew.printf("SITE %s\n", s.Name)
			if s.Class != "" {
				ew.printf("  CLASS %s ;\n", s.Class)
			}
			ew.printf("  SIZE %s BY %s ;\nEND %s\n\n", um(s.Width), um(s.Height), s.Name)
		}
		for _, m := range lib.Masters {
			ew.printf("MACRO %s\n", m.Name)
			if m.Class != "" {
				ew.printf("  CLASS %s ;\n", m.Class)
			}
			ew.printf("  SIZE %s BY %s ;\n", um(m.Width), um(m.Height))
			for _, p := range m.Pins {
				ew.printf("  PIN %s\n", p.Name)
				if p.Direction != "" {
					ew.printf("    DIRECTION %s ;\n", p.Direction)
				}
				if p.Use != "" {
					ew.printf("    USE %s ;\n", p.Use)
				}
				ew.printf("  END %s\n", p.Name)
			}
			ew.printf("END %s\n\n", m.Name)
		}
	}

	ew.printf("END LIBRARY\n")
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
