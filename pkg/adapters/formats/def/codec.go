package def

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
)

var (
	// ErrNoTech is returned when reading a layout without a technology
	ErrNoTech = errors.New("no technology loaded")
	// ErrNoBlock is returned when a merge or write finds no block
	ErrNoBlock = errors.New("no block loaded")
	// ErrBlockExists is returned when a fresh read would replace a block
	ErrBlockExists = errors.New("block already exists")
	// ErrVersion is returned for an unsupported output version
	ErrVersion = errors.New("unsupported DEF version")
)

// Versions lists the DEF versions the writer accepts
var Versions = []string{"5.3", "5.4", "5.5", "5.6", "5.7", "5.8"}

// ValidVersion reports whether v is an accepted output version
func ValidVersion(v string) bool {
	for _, s := range Versions {
		if s == v {
			return true
		}
	}
	return false
}

// Codec reads and writes DEF files
type Codec struct{}

// NewCodec creates a DEF codec
func NewCodec() *Codec {
	return &Codec{}
}

// ReadLayout parses path and resolves it against db. Merges work on a copy
// of the current block which is swapped in only once the read completes.
//
// A fresh read requires that no block exists. FloorplanInit applies die area,
// rows, pins and component placement to the existing block and ignores nets.
// Incremental adds new records, lets incoming placement win for existing
// components and unions the connections of existing nets. FloorplanInit
// takes precedence when both are set.
func (c *Codec) ReadLayout(db *odb.Database, path string, opts ports.LayoutOptions) (*ports.LayoutResult, error) {
	if db.Tech() == nil {
		return nil, ErrNoTech
	}
	merge := opts.FloorplanInit || opts.Incremental
	if merge && db.Block() == nil {
		return nil, ErrNoBlock
	}
	if !merge && db.Block() != nil {
		return nil, ErrBlockExists
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Parse(fh, path, opts.ContinueOnErrors)
	if err != nil {
		return nil, err
	}

	var blk *odb.Block
	if merge {
		if blk, err = db.Block().Clone(); err != nil {
			return nil, err
		}
	} else {
		blk = odb.NewBlock(f.Design, db.DbUnitsPerMicron())
	}

	r := newResolver(db, blk, f, path, opts.ContinueOnErrors)
	if opts.FloorplanInit {
		err = r.floorplan()
	} else {
		err = r.merge()
	}
	if err != nil {
		return nil, err
	}

	db.SetBlock(blk)
	return &ports.LayoutResult{Block: blk, Skipped: r.skipped}, nil
}

type resolver struct {
	db               *odb.Database
	blk              *odb.Block
	f                *File
	path             string
	continueOnErrors bool
	skipped          []error

	num, den int

	insts  map[string]*odb.Inst
	nets   map[string]*odb.Net
	bterms map[string]*odb.BTerm
}

func newResolver(db *odb.Database, blk *odb.Block, f *File, path string, continueOnErrors bool) *resolver {
	r := &resolver{
		db:               db,
		blk:              blk,
		f:                f,
		path:             path,
		continueOnErrors: continueOnErrors,
		skipped:          f.Skipped,
		num:              blk.DbUnitsPerMicron,
		den:              f.DbUnitsPerMicron,
		insts:            make(map[string]*odb.Inst, len(blk.Insts)),
		nets:             make(map[string]*odb.Net, len(blk.Nets)),
		bterms:           make(map[string]*odb.BTerm, len(blk.BTerms)),
	}
	if r.den == 0 {
		r.den = r.num
	}
	for _, i := range blk.Insts {
		r.insts[i.Name] = i
	}
	for _, n := range blk.Nets {
		r.nets[n.Name] = n
	}
	for _, t := range blk.BTerms {
		r.bterms[t.Name] = t
	}
	return r
}

// fail records a record-level error, or aborts in strict mode
func (r *resolver) fail(line int, format string, args ...interface{}) error {
	err := &token.ParseError{File: r.path, Line: line, Msg: fmt.Sprintf(format, args...)}
	if r.continueOnErrors {
		r.skipped = append(r.skipped, err)
		return nil
	}
	return err
}

func (r *resolver) scale(v int) int {
	if r.num == r.den {
		return v
	}
	return int(math.Round(float64(v) * float64(r.num) / float64(r.den)))
}

func (r *resolver) scalePoint(p odb.Point) odb.Point {
	return odb.Point{X: r.scale(p.X), Y: r.scale(p.Y)}
}

func (r *resolver) merge() error {
	if err := r.floorplanRecords(); err != nil {
		return err
	}
	if err := r.components(true); err != nil {
		return err
	}
	if err := r.pins(); err != nil {
		return err
	}
	return r.netRecords()
}

func (r *resolver) floorplan() error {
	if err := r.floorplanRecords(); err != nil {
		return err
	}
	if err := r.components(false); err != nil {
		return err
	}
	return r.pins()
}

func (r *resolver) floorplanRecords() error {
	if r.f.DieArea != nil {
		a := *r.f.DieArea
		r.blk.DieArea = odb.Rect{
			XMin: r.scale(a.XMin), YMin: r.scale(a.YMin),
			XMax: r.scale(a.XMax), YMax: r.scale(a.YMax),
		}
	}

	for _, row := range r.f.Rows {
		if r.db.FindSite(row.Site) == nil {
			if err := r.fail(row.Line, "row %s: unknown site %s", row.Name, row.Site); err != nil {
				return err
			}
			continue
		}
		nr := row.Row
		nr.Origin = r.scalePoint(nr.Origin)
		nr.StepX, nr.StepY = r.scale(nr.StepX), r.scale(nr.StepY)
		if old := r.blk.FindRow(nr.Name); old != nil {
			*old = nr
		} else {
			r.blk.Rows = append(r.blk.Rows, &nr)
		}
	}
	return nil
}

func (r *resolver) components(create bool) error {
	for _, c := range r.f.Components {
		if inst, ok := r.insts[c.Name]; ok {
			if inst.Master != c.Master {
				if err := r.fail(c.Line, "component %s: master %s conflicts with %s", c.Name, c.Master, inst.Master); err != nil {
					return err
				}
				continue
			}
			r.place(inst, c)
			continue
		}

		if !create {
			if err := r.fail(c.Line, "component %s not found in block", c.Name); err != nil {
				return err
			}
			continue
		}
		if _, m := r.db.FindMaster(c.Master); m == nil {
			if err := r.fail(c.Line, "component %s: unknown master %s", c.Name, c.Master); err != nil {
				return err
			}
			continue
		}

		inst := &odb.Inst{Name: c.Name, Master: c.Master}
		r.place(inst, c)
		r.blk.Insts = append(r.blk.Insts, inst)
		r.insts[inst.Name] = inst
	}
	return nil
}

func (r *resolver) place(inst *odb.Inst, c Component) {
	inst.Status = c.Status
	inst.Location = r.scalePoint(c.Location)
	inst.Orient = c.Orient
}

func (r *resolver) pins() error {
	for _, p := range r.f.Pins {
		bt, ok := r.bterms[p.Name]
		if !ok {
			bt = &odb.BTerm{Name: p.Name}
			r.blk.BTerms = append(r.blk.BTerms, bt)
			r.bterms[bt.Name] = bt
		}
		if bt.Net != "" && bt.Net != p.Net {
			if n := r.nets[bt.Net]; n != nil {
				n.BTerms = remove(n.BTerms, bt.Name)
			}
		}
		bt.Net = p.Net
		if p.Direction != "" {
			bt.Direction = p.Direction
		}
		bt.Status = p.Status
		bt.Location = r.scalePoint(p.Location)

		n := r.net(p.Net)
		if !n.HasBTerm(bt.Name) {
			n.BTerms = append(n.BTerms, bt.Name)
		}
	}
	return nil
}

func (r *resolver) net(name string) *odb.Net {
	n, ok := r.nets[name]
	if !ok {
		n = &odb.Net{Name: name}
		r.blk.Nets = append(r.blk.Nets, n)
		r.nets[name] = n
	}
	return n
}

func (r *resolver) netRecords() error {
	for _, rec := range r.f.Nets {
		if err := r.checkNet(rec); err != nil {
			if err := r.fail(rec.Line, "net %s: %v", rec.Name, err); err != nil {
				return err
			}
			continue
		}

		n := r.net(rec.Name)
		if rec.Use != "" {
			n.Use = rec.Use
		}
		for _, it := range rec.ITerms {
			if !n.HasITerm(it) {
				n.ITerms = append(n.ITerms, it)
			}
		}
		for _, bt := range rec.BTerms {
			if !n.HasBTerm(bt) {
				n.BTerms = append(n.BTerms, bt)
			}
		}
	}
	return nil
}

func (r *resolver) checkNet(rec Net) error {
	for _, it := range rec.ITerms {
		inst, ok := r.insts[it.Inst]
		if !ok {
			return fmt.Errorf("unknown component %s", it.Inst)
		}
		if _, m := r.db.FindMaster(inst.Master); m == nil || m.FindMTerm(it.Pin) == nil {
			return fmt.Errorf("unknown pin %s/%s", it.Inst, it.Pin)
		}
	}
	for _, bt := range rec.BTerms {
		if _, ok := r.bterms[bt]; !ok {
			return fmt.Errorf("unknown pin %s", bt)
		}
	}
	return nil
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// WriteLayout writes the block of db to path
func (c *Codec) WriteLayout(db *odb.Database, path, version string) error {
	if !ValidVersion(version) {
		return fmt.Errorf("%w: %q", ErrVersion, version)
	}
	if db.Block() == nil {
		return ErrNoBlock
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fh)
	if err := Write(w, db.Block(), version); err != nil {
		fh.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Write serializes blk as DEF tagged with version
func Write(w io.Writer, blk *odb.Block, version string) error {
	ew := &errWriter{w: w}
	ew.printf("VERSION %s ;\nDIVIDERCHAR \"/\" ;\nBUSBITCHARS \"[]\" ;\n", version)
	ew.printf("DESIGN %s ;\n", blk.Name)
	ew.printf("UNITS DISTANCE MICRONS %d ;\n\n", blk.DbUnitsPerMicron)

	a := blk.DieArea
	ew.printf("DIEAREA ( %d %d ) ( %d %d ) ;\n\n", a.XMin, a.YMin, a.XMax, a.YMax)

	for _, r := range blk.Rows {
		ew.printf("ROW %s %s %d %d %s DO %d BY %d", r.Name, r.Site, r.Origin.X, r.Origin.Y, orient(r.Orient), r.NumX, r.NumY)
		if r.StepX != 0 || r.StepY != 0 {
			ew.printf(" STEP %d %d", r.StepX, r.StepY)
		}
		ew.printf(" ;\n")
	}
	if len(blk.Rows) > 0 {
		ew.printf("\n")
	}

	ew.printf("COMPONENTS %d ;\n", len(blk.Insts))
	for _, i := range blk.Insts {
		ew.printf("  - %s %s", i.Name, i.Master)
		switch i.Status {
		case odb.StatusPlaced, odb.StatusFixed, odb.StatusCover:
			ew.printf(" + %s ( %d %d ) %s", i.Status, i.Location.X, i.Location.Y, orient(i.Orient))
		case odb.StatusUnplaced:
			ew.printf(" + UNPLACED")
		}
		ew.printf(" ;\n")
	}
	ew.printf("END COMPONENTS\n\n")

	ew.printf("PINS %d ;\n", len(blk.BTerms))
	for _, t := range blk.BTerms {
		ew.printf("  - %s + NET %s", t.Name, t.Net)
		if t.Direction != "" {
			ew.printf(" + DIRECTION %s", t.Direction)
		}
		switch t.Status {
		case odb.StatusPlaced, odb.StatusFixed, odb.StatusCover:
			ew.printf(" + %s ( %d %d ) N", t.Status, t.Location.X, t.Location.Y)
		}
		ew.printf(" ;\n")
	}
	ew.printf("END PINS\n\n")

	ew.printf("NETS %d ;\n", len(blk.Nets))
	for _, n := range blk.Nets {
		ew.printf("  - %s", n.Name)
		for _, t := range n.BTerms {
			ew.printf(" ( PIN %s )", t)
		}
		for _, it := range n.ITerms {
			ew.printf(" ( %s %s )", it.Inst, it.Pin)
		}
		if n.Use != "" {
			ew.printf(" + USE %s", n.Use)
		}
		ew.printf(" ;\n")
	}
	ew.printf("END NETS\n\nEND DESIGN\n")

	return ew.err
}

func orient(o string) string {
	if o == "" {
		return "N"
	}
	return o
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
