// Package cdl writes a flattened circuit description language netlist of a
// block for layout-versus-schematic checks.
package cdl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aescanero/ordo/pkg/odb"
)

// ErrNoBlock is returned when writing without a block
var ErrNoBlock = errors.New("no block loaded")

const lineWidth = 78

// Writer implements ports.CircuitWriter
type Writer struct{}

// NewWriter creates a CDL writer
func NewWriter() *Writer {
	return &Writer{}
}

// WriteCircuit writes the block of db to path. Every black-box file is
// referenced with .INCLUDE and must be readable. Filler instances are
// omitted unless includeFillers is set.
func (w *Writer) WriteCircuit(db *odb.Database, path string, blackBoxes []string, includeFillers bool) error {
	if db.Block() == nil {
		return ErrNoBlock
	}
	for _, bb := range blackBoxes {
		fh, err := os.Open(bb)
		if err != nil {
			return err
		}
		fh.Close()
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fh)
	if err := Write(bw, db, blackBoxes, includeFillers); err != nil {
		fh.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Write serializes the block of db as CDL
func Write(w io.Writer, db *odb.Database, blackBoxes []string, includeFillers bool) error {
	blk := db.Block()
	conn := make(map[odb.ITermRef]string)
	for _, n := range blk.Nets {
		for _, it := range n.ITerms {
			conn[it] = n.Name
		}
	}

	lw := &lineWriter{w: w}
	lw.line("* " + blk.Name)
	for _, bb := range blackBoxes {
		lw.line(".INCLUDE " + bb)
	}
	lw.line("")

	ports := make([]string, 0, len(blk.BTerms))
	for _, t := range blk.BTerms {
		ports = append(ports, t.Name)
	}
	lw.wrapped(append([]string{".SUBCKT", blk.Name}, ports...))

	unconnected := 0
	for _, inst := range blk.Insts {
		_, m := db.FindMaster(inst.Master)
		if m == nil {
			return fmt.Errorf("instance %s: unknown master %s", inst.Name, inst.Master)
		}
		if m.IsFiller() && !includeFillers {
			continue
		}

		fields := []string{"X" + inst.Name}
		for _, p := range m.Pins {
			net, ok := conn[odb.ITermRef{Inst: inst.Name, Pin: p.Name}]
			if !ok {
				unconnected++
				net = fmt.Sprintf("_NC%d", unconnected)
			}
			fields = append(fields, net)
		}
		fields = append(fields, m.Name)
		lw.wrapped(fields)
	}

	lw.line(".ENDS " + blk.Name)
	return lw.err
}

type lineWriter struct {
	w   io.Writer
	err error
}

func (l *lineWriter) line(s string) {
	if l.err != nil {
		return
	}
	_, l.err = io.WriteString(l.w, s+"\n")
}

// wrapped joins fields, continuing long lines with "+"
func (l *lineWriter) wrapped(fields []string) {
	var b strings.Builder
	width := 0
	for i, f := range fields {
		if i > 0 {
			if width+1+len(f) > lineWidth {
				b.WriteString("\n+")
				width = 1
			}
			b.WriteByte(' ')
			width++
		}
		b.WriteString(f)
		width += len(f)
	}
	l.line(b.String())
}
