package verilog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
)

var (
	// ErrNoModule is returned when the top module is not defined
	ErrNoModule = errors.New("module not found")
	// ErrUnresolved is returned for a leaf cell with no library master
	ErrUnresolved = errors.New("unresolved cell")
)

// Codec implements ports.NetlistReader for structural Verilog
type Codec struct{}

// NewCodec creates a Verilog reader
func NewCodec() *Codec {
	return &Codec{}
}

// ReadNetlist parses path into a Netlist
func (c *Codec) ReadNetlist(path string) (ports.Netlist, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return Parse(fh, path)
}

// Link flattens top into the block of db. Instance and net names of nested
// modules are prefixed with their hierarchical path joined by "/". An
// existing block keeps its identity and floorplan; its instances, nets and
// terminals are replaced.
func (c *Codec) Link(db *odb.Database, nl ports.Netlist, top string) error {
	netlist, ok := nl.(*Netlist)
	if !ok {
		return fmt.Errorf("unsupported netlist type %T", nl)
	}
	m := netlist.Module(top)
	if m == nil {
		return fmt.Errorf("%w: %s", ErrNoModule, top)
	}

	var blk *odb.Block
	if old := db.Block(); old != nil {
		var err error
		if blk, err = old.Clone(); err != nil {
			return err
		}
		blk.Name = top
		blk.Insts, blk.Nets, blk.BTerms = nil, nil, nil
	} else {
		dbu := db.DbUnitsPerMicron()
		if dbu == 0 {
			dbu = odb.DefaultDbUnitsPerMicron
		}
		blk = odb.NewBlock(top, dbu)
	}

	e := &elaborator{
		db:     db,
		nl:     netlist,
		blk:    blk,
		nets:   make(map[string]*odb.Net),
		insts:  make(map[string]bool),
		active: make(map[string]bool),
	}

	bind := make(map[string]string)
	for _, p := range m.Ports {
		for _, bit := range p.Bits(p.Name) {
			n := e.net(bit)
			n.BTerms = append(n.BTerms, bit)
			blk.BTerms = append(blk.BTerms, &odb.BTerm{
				Name:      bit,
				Net:       bit,
				Direction: strings.ToUpper(p.Direction),
				Status:    odb.StatusNone,
			})
			bind[bit] = bit
		}
	}

	if err := e.module(m, "", bind); err != nil {
		return err
	}

	db.SetBlock(blk)
	return nil
}

type elaborator struct {
	db     *odb.Database
	nl     *Netlist
	blk    *odb.Block
	nets   map[string]*odb.Net
	insts  map[string]bool
	active map[string]bool
}

func (e *elaborator) net(name string) *odb.Net {
	n, ok := e.nets[name]
	if !ok {
		n = &odb.Net{Name: name}
		e.blk.Nets = append(e.blk.Nets, n)
		e.nets[name] = n
	}
	return n
}

// scope resolves the signals of one module instance
type scope struct {
	m      *Module
	prefix string
	bind   map[string]string
}

// netOf maps a local bit to its flat net name; "" stays unconnected
func (e *elaborator) netOf(sc scope, bit string) string {
	if bit == "" {
		return ""
	}
	if n, ok := sc.bind[bit]; ok {
		return n
	}
	name := sc.prefix + bit
	e.net(name)
	return name
}

// bits expands an expression into local bit names, most significant first
func (e *elaborator) bits(sc scope, x Expr) ([]string, error) {
	var out []string
	for _, t := range x {
		if t.Name == "" {
			for i := 0; i < t.Width; i++ {
				out = append(out, "")
			}
			continue
		}

		rng, declared := sc.m.decl(t.Name)
		switch t.Select {
		case 0:
			out = append(out, rng.Bits(t.Name)...)
		case 1:
			if declared && !rng.Contains(t.MSB) {
				return nil, fmt.Errorf("%s[%d] is out of range", t.Name, t.MSB)
			}
			out = append(out, fmt.Sprintf("%s[%d]", t.Name, t.MSB))
		case 2:
			if declared && (!rng.Contains(t.MSB) || !rng.Contains(t.LSB)) {
				return nil, fmt.Errorf("%s[%d:%d] is out of range", t.Name, t.MSB, t.LSB)
			}
			out = append(out, sliceBits(t.Name, t.MSB, t.LSB)...)
		}
	}
	return out, nil
}

func (e *elaborator) module(m *Module, prefix string, bind map[string]string) error {
	if e.active[m.Name] {
		return fmt.Errorf("module %s instantiates itself", m.Name)
	}
	e.active[m.Name] = true
	defer delete(e.active, m.Name)

	sc := scope{m: m, prefix: prefix, bind: bind}
	for _, w := range m.wireOrder {
		for _, bit := range m.Wires[w].Bits(w) {
			e.netOf(sc, bit)
		}
	}

	for _, inst := range m.Insts {
		var err error
		if child := e.nl.Module(inst.Cell); child != nil {
			err = e.hierInst(sc, inst, child)
		} else {
			err = e.leafInst(sc, inst)
		}
		if err != nil {
			return fmt.Errorf("%s: instance %s%s: %w", m.Name, prefix, inst.Name, err)
		}
	}
	return nil
}

func (e *elaborator) hierInst(sc scope, inst *Instance, child *Module) error {
	conns := make(map[*Port]Expr)
	if inst.Positional != nil {
		if len(inst.Positional) > len(child.Ports) {
			return fmt.Errorf("%d connections for %d ports", len(inst.Positional), len(child.Ports))
		}
		for i, x := range inst.Positional {
			conns[child.Ports[i]] = x
		}
	}
	for _, nc := range inst.Named {
		p := child.FindPort(nc.Pin)
		if p == nil {
			return fmt.Errorf("module %s has no port %s", child.Name, nc.Pin)
		}
		conns[p] = nc.Expr
	}

	bind := make(map[string]string)
	for _, p := range child.Ports {
		x, ok := conns[p]
		if !ok || len(x) == 0 {
			continue
		}
		actual, err := e.bits(sc, x)
		if err != nil {
			return err
		}
		formal := p.Bits(p.Name)
		if len(actual) != len(formal) {
			return fmt.Errorf("port %s is %d bits wide, connection is %d", p.Name, len(formal), len(actual))
		}
		for i, bit := range formal {
			if n := e.netOf(sc, actual[i]); n != "" {
				bind[bit] = n
			}
		}
	}

	return e.module(child, sc.prefix+inst.Name+"/", bind)
}

func (e *elaborator) leafInst(sc scope, inst *Instance) error {
	_, master := e.db.FindMaster(inst.Cell)
	if master == nil {
		return fmt.Errorf("%w: %s", ErrUnresolved, inst.Cell)
	}
	name := sc.prefix + inst.Name
	if e.insts[name] {
		return fmt.Errorf("duplicate instance %s", name)
	}
	e.insts[name] = true
	e.blk.Insts = append(e.blk.Insts, &odb.Inst{Name: name, Master: master.Name, Status: odb.StatusNone})

	connect := func(pin, bit string) error {
		if master.FindMTerm(pin) == nil {
			return fmt.Errorf("cell %s has no pin %s", master.Name, pin)
		}
		if n := e.netOf(sc, bit); n != "" {
			net := e.nets[n]
			net.ITerms = append(net.ITerms, odb.ITermRef{Inst: name, Pin: pin})
		}
		return nil
	}

	if inst.Positional != nil {
		if len(inst.Positional) > len(master.Pins) {
			return fmt.Errorf("%d connections for %d pins", len(inst.Positional), len(master.Pins))
		}
		for i, x := range inst.Positional {
			bits, err := e.bits(sc, x)
			if err != nil {
				return err
			}
			if len(bits) > 1 {
				return fmt.Errorf("positional connection %d is %d bits wide", i, len(bits))
			}
			if len(bits) == 1 {
				if err := connect(master.Pins[i].Name, bits[0]); err != nil {
					return err
				}
			}
		}
	}

	for _, nc := range inst.Named {
		bits, err := e.bits(sc, nc.Expr)
		if err != nil {
			return err
		}
		if len(bits) == 0 {
			if master.FindMTerm(nc.Pin) == nil {
				return fmt.Errorf("cell %s has no pin %s", master.Name, nc.Pin)
			}
			continue
		}
		if len(bits) == 1 {
			if err := connect(nc.Pin, bits[0]); err != nil {
				return err
			}
			continue
		}
		for i, bit := range bits {
			if err := connect(fmt.Sprintf("%s[%d]", nc.Pin, len(bits)-1-i), bit); err != nil {
				return err
			}
		}
	}
	return nil
}
