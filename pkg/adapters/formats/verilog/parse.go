// Package verilog imports gate-level structural Verilog and elaborates a top
// module into a database block. Behavioural constructs (assign, always,
// parameters, generate) are rejected.
package verilog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aescanero/ordo/pkg/adapters/formats/token"
)

// Netlist is a set of parsed modules
type Netlist struct {
	modules []*Module
	byName  map[string]*Module
}

// Modules returns the module names in file order
func (n *Netlist) Modules() []string {
	names := make([]string, len(n.modules))
	for i, m := range n.modules {
		names[i] = m.Name
	}
	return names
}

// HasModule reports whether a module is defined
func (n *Netlist) HasModule(name string) bool {
	_, ok := n.byName[name]
	return ok
}

// Module returns a module by name, or nil
func (n *Netlist) Module(name string) *Module {
	return n.byName[name]
}

// Range is a declared bit range; a scalar has Bus false
type Range struct {
	Bus      bool
	MSB, LSB int
}

// Width returns the number of bits
func (r Range) Width() int {
	if !r.Bus {
		return 1
	}
	if r.MSB >= r.LSB {
		return r.MSB - r.LSB + 1
	}
	return r.LSB - r.MSB + 1
}

// Contains reports whether index i lies in the range
func (r Range) Contains(i int) bool {
	return r.Bus && i >= min(r.MSB, r.LSB) && i <= max(r.MSB, r.LSB)
}

// Bits expands name into its bit names, most significant first
func (r Range) Bits(name string) []string {
	if !r.Bus {
		return []string{name}
	}
	return sliceBits(name, r.MSB, r.LSB)
}

func sliceBits(name string, from, to int) []string {
	step := 1
	if from > to {
		step = -1
	}
	var bits []string
	for i := from; ; i += step {
		bits = append(bits, fmt.Sprintf("%s[%d]", name, i))
		if i == to {
			return bits
		}
	}
}

// Port is a module port
type Port struct {
	Name      string
	Direction string
	Range
}

// Module is a structural module definition
type Module struct {
	Name  string
	Ports []*Port
	Wires map[string]Range
	Insts []*Instance
	Line  int

	wireOrder []string
}

// FindPort looks a port up by name
func (m *Module) FindPort(name string) *Port {
	for _, p := range m.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// decl returns the declared range of a signal
func (m *Module) decl(name string) (Range, bool) {
	if p := m.FindPort(name); p != nil {
		return p.Range, true
	}
	r, ok := m.Wires[name]
	return r, ok
}

// Instance is a cell or module instantiation
type Instance struct {
	Cell       string
	Name       string
	Named      []NamedConn
	Positional []Expr
	Line       int
}

// NamedConn is a .pin(expr) connection; an empty Expr leaves the pin open
type NamedConn struct {
	Pin  string
	Expr Expr
}

// Expr is a concatenation of terms, most significant first
type Expr []Term

// Term is an identifier, a bit or part select, or a constant
type Term struct {
	Name     string
	Select   int // 0 none, 1 bit, 2 part
	MSB, LSB int
	// Width is set for constants, which leave their bits unconnected
	Width int
}

// Parse reads structural Verilog
func Parse(r io.Reader, file string) (*Netlist, error) {
	toks, err := lex(r, file)
	if err != nil {
		return nil, err
	}

	p := &parser{s: token.FromTokens(toks, file)}
	nl := &Netlist{byName: make(map[string]*Module)}
	for !p.s.EOF() {
		line := p.s.Line()
		kw, _ := p.s.Next()
		if kw != "module" {
			return nil, p.s.Errorf("expected module, got %q", kw)
		}
		m, err := p.module()
		if err != nil {
			return nil, err
		}
		m.Line = line
		if _, dup := nl.byName[m.Name]; dup {
			return nil, &token.ParseError{File: file, Line: line, Msg: "duplicate module " + m.Name}
		}
		nl.modules = append(nl.modules, m)
		nl.byName[m.Name] = m
	}

	return nl, nil
}

type parser struct {
	s *token.Stream
}

var unsupported = map[string]bool{
	"assign": true, "always": true, "initial": true, "reg": true,
	"parameter": true, "localparam": true, "generate": true, "function": true,
	"task": true, "defparam": true, "specify": true, "integer": true,
	"supply0": true, "supply1": true,
}

func (p *parser) module() (*Module, error) {
	s := p.s
	name, err := s.Next()
	if err != nil {
		return nil, err
	}
	m := &Module{Name: name, Wires: make(map[string]Range)}

	if s.Peek() == "(" {
		s.Next()
		if err := p.header(m); err != nil {
			return nil, err
		}
	}
	if err := s.Expect(";"); err != nil {
		return nil, err
	}

	for {
		line := s.Line()
		kw, err := s.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case kw == "endmodule":
			for _, port := range m.Ports {
				if port.Direction == "" {
					return nil, &token.ParseError{File: s.File(), Line: m.Line, Msg: fmt.Sprintf("module %s: port %s has no direction", m.Name, port.Name)}
				}
			}
			return m, nil
		case kw == "input" || kw == "output" || kw == "inout":
			err = p.portDecl(m, kw)
		case kw == "wire" || kw == "tri":
			err = p.wireDecl(m)
		case unsupported[kw]:
			return nil, &token.ParseError{File: s.File(), Line: line, Msg: "unsupported construct " + kw}
		case isIdentStart(kw[0]) || kw[0] == '\\':
			err = p.instances(m, kw, line)
		default:
			return nil, &token.ParseError{File: s.File(), Line: line, Msg: fmt.Sprintf("unexpected %q", kw)}
		}
		if err != nil {
			return nil, err
		}
	}
}

// header parses the port list after "module name ("
func (p *parser) header(m *Module) error {
	s := p.s
	if s.Peek() == ")" {
		s.Next()
		return nil
	}

	dir := ""
	rng := Range{}
	for {
		t, err := s.Next()
		if err != nil {
			return err
		}
		switch t {
		case "input", "output", "inout":
			dir = t
			rng = Range{}
			if s.Peek() == "wire" {
				s.Next()
			}
			if s.Peek() == "[" {
				if rng, err = p.rangeDecl(); err != nil {
					return err
				}
			}
			if t, err = s.Next(); err != nil {
				return err
			}
		}
		if m.FindPort(t) != nil {
			return s.Errorf("duplicate port %s", t)
		}
		m.Ports = append(m.Ports, &Port{Name: t, Direction: dir, Range: rng})

		sep, err := s.Next()
		if err != nil {
			return err
		}
		if sep == ")" {
			return nil
		}
		if sep != "," {
			return s.Errorf("expected ',' or ')', got %q", sep)
		}
	}
}

func (p *parser) rangeDecl() (Range, error) {
	s := p.s
	if err := s.Expect("["); err != nil {
		return Range{}, err
	}
	msb, err := s.Int()
	if err != nil {
		return Range{}, err
	}
	if err := s.Expect(":"); err != nil {
		return Range{}, err
	}
	lsb, err := s.Int()
	if err != nil {
		return Range{}, err
	}
	return Range{Bus: true, MSB: msb, LSB: lsb}, s.Expect("]")
}

// names parses "[range] a, b, c ;"
func (p *parser) names() (Range, []string, error) {
	s := p.s
	var rng Range
	var err error
	if s.Peek() == "wire" {
		s.Next()
	}
	if s.Peek() == "[" {
		if rng, err = p.rangeDecl(); err != nil {
			return rng, nil, err
		}
	}

	var names []string
	for {
		n, err := s.Next()
		if err != nil {
			return rng, nil, err
		}
		names = append(names, n)
		sep, err := s.Next()
		if err != nil {
			return rng, nil, err
		}
		if sep == ";" {
			return rng, names, nil
		}
		if sep != "," {
			return rng, nil, s.Errorf("expected ',' or ';', got %q", sep)
		}
	}
}

func (p *parser) portDecl(m *Module, dir string) error {
	rng, names, err := p.names()
	if err != nil {
		return err
	}
	for _, n := range names {
		port := m.FindPort(n)
		if port == nil {
			return p.s.Errorf("%s %s is not in the port list of %s", dir, n, m.Name)
		}
		if port.Direction != "" {
			return p.s.Errorf("port %s declared twice", n)
		}
		port.Direction = dir
		port.Range = rng
	}
	return nil
}

func (p *parser) wireDecl(m *Module) error {
	rng, names, err := p.names()
	if err != nil {
		return err
	}
	for _, n := range names {
		if m.FindPort(n) != nil {
			continue
		}
		if _, dup := m.Wires[n]; dup {
			return p.s.Errorf("wire %s declared twice", n)
		}
		m.Wires[n] = rng
		m.wireOrder = append(m.wireOrder, n)
	}
	return nil
}

// instances parses "cell [#(...)] name (conns) {, name (conns)} ;"
func (p *parser) instances(m *Module, cell string, line int) error {
	s := p.s
	if s.Peek() == "#" {
		s.Next()
		if err := p.skipParens(); err != nil {
			return err
		}
	}

	for {
		name, err := s.Next()
		if err != nil {
			return err
		}
		if s.Peek() == "[" {
			return s.Errorf("instance arrays are not supported")
		}
		inst := &Instance{Cell: cell, Name: name, Line: line}
		if err := s.Expect("("); err != nil {
			return err
		}
		if err := p.connections(inst); err != nil {
			return err
		}
		m.Insts = append(m.Insts, inst)

		sep, err := s.Next()
		if err != nil {
			return err
		}
		if sep == ";" {
			return nil
		}
		if sep != "," {
			return s.Errorf("expected ',' or ';', got %q", sep)
		}
		line = s.Line()
	}
}

func (p *parser) skipParens() error {
	s := p.s
	if err := s.Expect("("); err != nil {
		return err
	}
	for depth := 1; depth > 0; {
		t, err := s.Next()
		if err != nil {
			return err
		}
		switch t {
		case "(":
			depth++
		case ")":
			depth--
		}
	}
	return nil
}

// connections parses the list after "(" up to and including ")"
func (p *parser) connections(inst *Instance) error {
	s := p.s
	if s.Peek() == ")" {
		s.Next()
		return nil
	}

	named := s.Peek() == "."
	for {
		if named {
			if err := s.Expect("."); err != nil {
				return err
			}
			pin, err := s.Next()
			if err != nil {
				return err
			}
			if err := s.Expect("("); err != nil {
				return err
			}
			var e Expr
			if s.Peek() != ")" {
				if e, err = p.expr(); err != nil {
					return err
				}
			}
			if err := s.Expect(")"); err != nil {
				return err
			}
			inst.Named = append(inst.Named, NamedConn{Pin: pin, Expr: e})
		} else {
			var e Expr
			if s.Peek() != "," && s.Peek() != ")" {
				var err error
				if e, err = p.expr(); err != nil {
					return err
				}
			}
			inst.Positional = append(inst.Positional, e)
		}

		sep, err := s.Next()
		if err != nil {
			return err
		}
		if sep == ")" {
			return nil
		}
		if sep != "," {
			return s.Errorf("expected ',' or ')', got %q", sep)
		}
	}
}

func (p *parser) expr() (Expr, error) {
	s := p.s
	if s.Peek() == "{" {
		s.Next()
		var out Expr
		for {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			out = append(out, e...)
			sep, err := s.Next()
			if err != nil {
				return nil, err
			}
			if sep == "}" {
				return out, nil
			}
			if sep != "," {
				return nil, s.Errorf("expected ',' or '}', got %q", sep)
			}
		}
	}

	t, err := s.Next()
	if err != nil {
		return nil, err
	}
	if t[0] >= '0' && t[0] <= '9' || t[0] == '\'' {
		w, err := literalWidth(t)
		if err != nil {
			return nil, s.Errorf("%v", err)
		}
		return Expr{{Width: w}}, nil
	}

	term := Term{Name: t}
	if s.Peek() == "[" {
		s.Next()
		if term.MSB, err = s.Int(); err != nil {
			return nil, err
		}
		term.Select = 1
		if s.Peek() == ":" {
			s.Next()
			if term.LSB, err = s.Int(); err != nil {
				return nil, err
			}
			term.Select = 2
		}
		if err := s.Expect("]"); err != nil {
			return nil, err
		}
	}
	return Expr{term}, nil
}

func literalWidth(lit string) (int, error) {
	i := strings.IndexByte(lit, '\'')
	if i <= 0 {
		return 1, nil
	}
	w, err := strconv.Atoi(strings.ReplaceAll(lit[:i], "_", ""))
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("bad literal %s", lit)
	}
	return w, nil
}
