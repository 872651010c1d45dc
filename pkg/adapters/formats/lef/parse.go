// Package lef reads and writes technology/library descriptions in a LEF subset:
// UNITS, MANUFACTURINGGRID, LAYER, SITE and MACRO (with PIN direction/use).
// VIA, VIARULE, PROPERTYDEFINITIONS and pin geometry are skipped.
package lef

import (
	"io"
	"math"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
	"github.com/aescanero/ordo/pkg/odb"
)

// File is a parsed LEF file. Dimensions are kept in microns until they are
// bound to a technology's database units.
type File struct {
	DbUnitsPerMicron  int
	ManufacturingGrid float64
	Layers            []Layer
	Sites             []Site
	Macros            []Macro
}

// Layer is a parsed LAYER block
type Layer struct {
	Name      string
	Type      string
	Direction string
	Pitch     float64
	Width     float64
}

// Site is a parsed SITE block
type Site struct {
	Name          string
	Class         string
	Width, Height float64
}

// Macro is a parsed MACRO block
type Macro struct {
	Name          string
	Class         string
	Width, Height float64
	Pins          []odb.MTerm
}

// Parse reads a LEF file
func Parse(r io.Reader, name string) (*File, error) {
	s, err := token.NewStream(r, name)
	if err != nil {
		return nil, err
	}

	f := &File{}
	for !s.EOF() {
		kw, _ := s.Next()
		switch kw {
		case "UNITS":
			if err := parseUnits(s, f); err != nil {
				return nil, err
			}
		case "MANUFACTURINGGRID":
			if f.ManufacturingGrid, err = s.Float(); err != nil {
				return nil, err
			}
			if err := s.Expect(";"); err != nil {
				return nil, err
			}
		case "LAYER":
			l, err := parseLayer(s)
			if err != nil {
				return nil, err
			}
			f.Layers = append(f.Layers, l)
		case "SITE":
			site, err := parseSite(s)
			if err != nil {
				return nil, err
			}
			f.Sites = append(f.Sites, site)
		case "MACRO":
			m, err := parseMacro(s)
			if err != nil {
				return nil, err
			}
			f.Macros = append(f.Macros, m)
		case "VIA", "VIARULE", "NONDEFAULTRULE":
			name, err := s.Next()
			if err != nil {
				return nil, err
			}
			if err := s.SkipBlock(name); err != nil {
				return nil, err
			}
		case "PROPERTYDEFINITIONS", "SPACING":
			if err := s.SkipBlock(kw); err != nil {
				return nil, err
			}
		case "END":
			if s.Peek() == "LIBRARY" {
				return f, nil
			}
			return nil, s.Errorf("unexpected END %s", s.Peek())
		default:
			if err := s.SkipStatement(); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

func parseUnits(s *token.Stream, f *File) error {
	for {
		kw, err := s.Next()
		if err != nil {
			return err
		}
		switch kw {
		case "END":
			return s.Expect("UNITS")
		case "DATABASE":
			if err := s.Expect("MICRONS"); err != nil {
				return err
			}
			if f.DbUnitsPerMicron, err = s.Int(); err != nil {
				return err
			}
			if f.DbUnitsPerMicron <= 0 {
				return s.Errorf("DATABASE MICRONS must be positive")
			}
			if err := s.Expect(";"); err != nil {
				return err
			}
		default:
			if err := s.SkipStatement(); err != nil {
				return err
			}
		}
	}
}

func parseLayer(s *token.Stream) (Layer, error) {
	name, err := s.Next()
	if err != nil {
		return Layer{}, err
	}
	l := Layer{Name: name}

	for {
		kw, err := s.Next()
		if err != nil {
			return l, err
		}
		switch kw {
		case "END":
			if err := s.Expect(name); err != nil {
				return l, err
			}
			if l.Type == "" {
				return l, s.Errorf("layer %s has no TYPE", name)
			}
			return l, nil
		case "TYPE":
			if l.Type, err = s.Next(); err != nil {
				return l, err
			}
			err = s.Expect(";")
		case "DIRECTION":
			if l.Direction, err = s.Next(); err != nil {
				return l, err
			}
			err = s.Expect(";")
		case "PITCH":
			if l.Pitch, err = s.Float(); err != nil {
				return l, err
			}
			err = s.SkipStatement()
		case "WIDTH":
			if l.Width, err = s.Float(); err != nil {
				return l, err
			}
			err = s.Expect(";")
		default:
			err = s.SkipStatement()
		}
		if err != nil {
			return l, err
		}
	}
}

func parseSite(s *token.Stream) (Site, error) {
	name, err := s.Next()
	if err != nil {
		return Site{}, err
	}
	site := Site{Name: name}

	for {
		kw, err := s.Next()
		if err != nil {
			return site, err
		}
		switch kw {
		case "END":
			return site, s.Expect(name)
		case "CLASS":
			if site.Class, err = s.Next(); err != nil {
				return site, err
			}
			err = s.Expect(";")
		case "SIZE":
			site.Width, site.Height, err = parseSize(s)
		default:
			err = s.SkipStatement()
		}
		if err != nil {
			return site, err
		}
	}
}

func parseMacro(s *token.Stream) (Macro, error) {
	name, err := s.Next()
	if err != nil {
		return Macro{}, err
	}
	m := Macro{Name: name}

	for {
		kw, err := s.Next()
		if err != nil {
			return m, err
		}
		switch kw {
		case "END":
			if err := s.Expect(name); err != nil {
				return m, err
			}
			if m.Width <= 0 || m.Height <= 0 {
				return m, s.Errorf("macro %s has no SIZE", name)
			}
			return m, nil
		case "CLASS":
			m.Class, err = parseClass(s)
		case "SIZE":
			m.Width, m.Height, err = parseSize(s)
		case "PIN":
			var pin odb.MTerm
			pin, err = parsePin(s)
			m.Pins = append(m.Pins, pin)
		case "OBS":
			err = skipGeometry(s)
		default:
			err = s.SkipStatement()
		}
		if err != nil {
			return m, err
		}
	}
}

func parseClass(s *token.Stream) (string, error) {
	class, err := s.Next()
	if err != nil {
		return "", err
	}
	for s.Peek() != ";" {
		sub, err := s.Next()
		if err != nil {
			return "", err
		}
		class += " " + sub
	}
	return class, s.Expect(";")
}

func parseSize(s *token.Stream) (float64, float64, error) {
	w, err := s.Float()
	if err != nil {
		return 0, 0, err
	}
	if err := s.Expect("BY"); err != nil {
		return 0, 0, err
	}
	h, err := s.Float()
	if err != nil {
		return 0, 0, err
	}
	return w, h, s.Expect(";")
}

func parsePin(s *token.Stream) (odb.MTerm, error) {
	name, err := s.Next()
	if err != nil {
		return odb.MTerm{}, err
	}
	pin := odb.MTerm{Name: name}

	for {
		kw, err := s.Next()
		if err != nil {
			return pin, err
		}
		switch kw {
		case "END":
			return pin, s.Expect(name)
		case "DIRECTION":
			if pin.Direction, err = s.Next(); err != nil {
				return pin, err
			}
			err = s.SkipStatement()
		case "USE":
			if pin.Use, err = s.Next(); err != nil {
				return pin, err
			}
			err = s.Expect(";")
		case "PORT":
			err = skipGeometry(s)
		default:
			err = s.SkipStatement()
		}
		if err != nil {
			return pin, err
		}
	}
}

// skipGeometry consumes a PORT or OBS body, which ends with a bare END
func skipGeometry(s *token.Stream) error {
	for {
		kw, err := s.Next()
		if err != nil {
			return err
		}
		if kw == "END" {
			return nil
		}
		if err := s.SkipStatement(); err != nil {
			return err
		}
	}
}

func toDBU(microns float64, dbu int) int {
	return int(math.Round(microns * float64(dbu)))
}
