// Package def reads and writes layout descriptions in a DEF subset:
// VERSION, DESIGN, UNITS, DIEAREA, ROW, COMPONENTS, PINS and NETS.
// TRACKS, GCELLGRID, VIAS, SPECIALNETS and the other sections are skipped.
package def

import (
	"io"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
	"github.com/aescanero/ordo/pkg/odb"
)

// File is a parsed DEF file in file units
type File struct {
	Version          string
	Design           string
	DbUnitsPerMicron int
	DieArea          *odb.Rect
	Rows             []Row
	Components       []Component
	Pins             []Pin
	Nets             []Net

	// Skipped holds record errors tolerated by a continue-on-errors parse
	Skipped []error
}

// Row is a ROW statement
type Row struct {
	odb.Row
	Line int
}

// Component is one COMPONENTS record
type Component struct {
	Name     string
	Master   string
	Status   string
	Location odb.Point
	Orient   string
	Line     int
}

// Pin is one PINS record
type Pin struct {
	Name      string
	Net       string
	Direction string
	Status    string
	Location  odb.Point
	Line      int
}

// Net is one NETS record
type Net struct {
	Name   string
	Use    string
	ITerms []odb.ITermRef
	BTerms []string
	Line   int
}

// Parse reads a DEF file. With continueOnErrors a malformed record is
// appended to File.Skipped instead of failing the parse.
func Parse(r io.Reader, name string, continueOnErrors bool) (*File, error) {
	s, err := token.NewStream(r, name)
	if err != nil {
		return nil, err
	}

	p := &parser{s: s, f: &File{}, continueOnErrors: continueOnErrors}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.f, nil
}

type parser struct {
	s                *token.Stream
	f                *File
	continueOnErrors bool
}

// recordErr decides whether a record failure aborts the parse
func (p *parser) recordErr(err error) error {
	if p.continueOnErrors {
		p.f.Skipped = append(p.f.Skipped, err)
		return nil
	}
	return err
}

func (p *parser) parse() error {
	s := p.s
	for !s.EOF() {
		kw, _ := s.Next()
		var err error
		switch kw {
		case "VERSION":
			p.f.Version, err = p.word()
		case "DESIGN":
			p.f.Design, err = p.word()
		case "UNITS":
			err = p.units()
		case "DIEAREA":
			err = p.dieArea()
		case "ROW":
			err = p.row()
		case "COMPONENTS":
			err = p.section("COMPONENTS", p.component)
		case "PINS":
			err = p.section("PINS", p.pin)
		case "NETS":
			err = p.section("NETS", p.net)
		case "VIAS", "SPECIALNETS", "PROPERTYDEFINITIONS", "BLOCKAGES", "REGIONS",
			"GROUPS", "NONDEFAULTRULES", "FILLS", "STYLES", "SCANCHAINS", "PINPROPERTIES":
			err = s.SkipBlock(kw)
		case "END":
			if s.Peek() == "DESIGN" {
				return nil
			}
			return s.Errorf("unexpected END %s", s.Peek())
		default:
			err = s.SkipStatement()
		}
		if err != nil {
			return err
		}
	}

	return p.s.Errorf("missing END DESIGN")
}

func (p *parser) word() (string, error) {
	st, err := p.s.Statement()
	if err != nil {
		return "", err
	}
	w, err := st.Next()
	if err != nil {
		return "", err
	}
	if !st.EOF() {
		return "", st.Errorf("unexpected %q", st.Peek())
	}
	return w, nil
}

func (p *parser) units() error {
	st, err := p.s.Statement()
	if err != nil {
		return err
	}
	if err := st.Expect("DISTANCE"); err != nil {
		return err
	}
	if err := st.Expect("MICRONS"); err != nil {
		return err
	}
	if p.f.DbUnitsPerMicron, err = st.Int(); err != nil {
		return err
	}
	if p.f.DbUnitsPerMicron <= 0 {
		return st.Errorf("DISTANCE MICRONS must be positive")
	}
	return nil
}

func (p *parser) dieArea() error {
	st, err := p.s.Statement()
	if err != nil {
		return err
	}

	var area odb.Rect
	first := true
	for !st.EOF() {
		pt, err := point(st)
		if err != nil {
			return err
		}
		if first {
			area = odb.Rect{XMin: pt.X, YMin: pt.Y, XMax: pt.X, YMax: pt.Y}
			first = false
			continue
		}
		area.XMin, area.YMin = min(area.XMin, pt.X), min(area.YMin, pt.Y)
		area.XMax, area.YMax = max(area.XMax, pt.X), max(area.YMax, pt.Y)
	}
	if first {
		return st.Errorf("empty DIEAREA")
	}
	p.f.DieArea = &area
	return nil
}

func (p *parser) row() error {
	st, err := p.s.Statement()
	if err != nil {
		return err
	}
	line := st.Line()

	var r odb.Row
	if r.Name, err = st.Next(); err != nil {
		return err
	}
	if r.Site, err = st.Next(); err != nil {
		return err
	}
	if r.Origin.X, err = st.Int(); err != nil {
		return err
	}
	if r.Origin.Y, err = st.Int(); err != nil {
		return err
	}
	if r.Orient, err = st.Next(); err != nil {
		return err
	}
	r.NumX, r.NumY = 1, 1
	if st.Peek() == "DO" {
		st.Next()
		if r.NumX, err = st.Int(); err != nil {
			return err
		}
		if err := st.Expect("BY"); err != nil {
			return err
		}
		if r.NumY, err = st.Int(); err != nil {
			return err
		}
	}
	if st.Peek() == "STEP" {
		st.Next()
		if r.StepX, err = st.Int(); err != nil {
			return err
		}
		if r.StepY, err = st.Int(); err != nil {
			return err
		}
	}
	p.f.Rows = append(p.f.Rows, Row{Row: r, Line: line})
	return nil
}

// section parses "NAME n ; records... END NAME"
func (p *parser) section(name string, record func(*token.Stream) error) error {
	if err := p.s.SkipStatement(); err != nil {
		return err
	}
	for {
		if p.s.Peek() == "END" {
			p.s.Next()
			return p.s.Expect(name)
		}
		st, err := p.s.Statement()
		if err != nil {
			return err
		}
		if err := record(st); err != nil {
			if err := p.recordErr(err); err != nil {
				return err
			}
		}
	}
}

func (p *parser) component(st *token.Stream) error {
	c := Component{Line: st.Line(), Status: odb.StatusNone}
	if err := st.Expect("-"); err != nil {
		return err
	}
	var err error
	if c.Name, err = st.Next(); err != nil {
		return err
	}
	if c.Master, err = st.Next(); err != nil {
		return err
	}

	for !st.EOF() {
		if err := st.Expect("+"); err != nil {
			return err
		}
		kw, err := st.Next()
		if err != nil {
			return err
		}
		switch kw {
		case odb.StatusPlaced, odb.StatusFixed, odb.StatusCover:
			c.Status = kw
			if c.Location, err = point(st); err != nil {
				return err
			}
			if c.Orient, err = st.Next(); err != nil {
				return err
			}
		case odb.StatusUnplaced:
			c.Status = kw
		default:
			skipOption(st)
		}
	}

	p.f.Components = append(p.f.Components, c)
	return nil
}

func (p *parser) pin(st *token.Stream) error {
	pin := Pin{Line: st.Line(), Status: odb.StatusNone}
	if err := st.Expect("-"); err != nil {
		return err
	}
	var err error
	if pin.Name, err = st.Next(); err != nil {
		return err
	}

	for !st.EOF() {
		if err := st.Expect("+"); err != nil {
			return err
		}
		kw, err := st.Next()
		if err != nil {
			return err
		}
		switch kw {
		case "NET":
			pin.Net, err = st.Next()
		case "DIRECTION":
			pin.Direction, err = st.Next()
		case odb.StatusPlaced, odb.StatusFixed, odb.StatusCover:
			pin.Status = kw
			if pin.Location, err = point(st); err != nil {
				return err
			}
			_, err = st.Next()
		default:
			skipOption(st)
		}
		if err != nil {
			return err
		}
	}
	if pin.Net == "" {
		return st.Errorf("pin %s has no NET", pin.Name)
	}

	p.f.Pins = append(p.f.Pins, pin)
	return nil
}

func (p *parser) net(st *token.Stream) error {
	n := Net{Line: st.Line()}
	if err := st.Expect("-"); err != nil {
		return err
	}
	var err error
	if n.Name, err = st.Next(); err != nil {
		return err
	}

	for st.Peek() == "(" {
		st.Next()
		inst, err := st.Next()
		if err != nil {
			return err
		}
		pin, err := st.Next()
		if err != nil {
			return err
		}
		if err := st.Expect(")"); err != nil {
			return err
		}
		switch inst {
		case "PIN":
			n.BTerms = append(n.BTerms, pin)
		case "*":
			// wildcard connections are a special-net construct
		default:
			n.ITerms = append(n.ITerms, odb.ITermRef{Inst: inst, Pin: pin})
		}
	}

	for !st.EOF() {
		if err := st.Expect("+"); err != nil {
			return err
		}
		kw, err := st.Next()
		if err != nil {
			return err
		}
		if kw == "USE" {
			if n.Use, err = st.Next(); err != nil {
				return err
			}
			continue
		}
		skipOption(st)
	}

	p.f.Nets = append(p.f.Nets, n)
	return nil
}

// skipOption consumes the tokens of a "+ KEYWORD ..." option
func skipOption(st *token.Stream) {
	for !st.EOF() && st.Peek() != "+" {
		st.Next()
	}
}

func point(st *token.Stream) (odb.Point, error) {
	var pt odb.Point
	if err := st.Expect("("); err != nil {
		return pt, err
	}
	var err error
	if pt.X, err = st.Int(); err != nil {
		return pt, err
	}
	if pt.Y, err = st.Int(); err != nil {
		return pt, err
	}
	return pt, st.Expect(")")
}
