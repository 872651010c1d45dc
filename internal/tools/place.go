package tools

import (
	"context"

	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/utl"
)

// Opendp legalizes standard-cell placement
type Opendp struct {
	parallel
}

// NewOpendp creates the detailed placer
func NewOpendp(env Env) *Opendp {
	return &Opendp{parallel: newParallel("dpl", utl.DPL, env)}
}

// CheckPlacement returns the instances that are unplaced or that extend
// outside the die area, in block order.
func (d *Opendp) CheckPlacement(ctx context.Context) ([]string, error) {
	block := d.db.Block()
	if block == nil {
		return nil, nil
	}

	bad := make([]bool, len(block.Insts))
	err := d.run(ctx, "check_placement", len(block.Insts), func(_ context.Context, i int) error {
		inst := block.Insts[i]
		switch inst.Status {
		case odb.StatusPlaced, odb.StatusFixed, odb.StatusCover:
		default:
			bad[i] = true
			return nil
		}
		if block.DieArea.IsEmpty() {
			return nil
		}
		w, h := 0, 0
		if _, m := d.db.FindMaster(inst.Master); m != nil {
			w, h = m.Width, m.Height
		}
		die := block.DieArea
		bad[i] = inst.Location.X < die.XMin || inst.Location.Y < die.YMin ||
			inst.Location.X+w > die.XMax || inst.Location.Y+h > die.YMax
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []string
	for i, b := range bad {
		if b {
			out = append(out, block.Insts[i].Name)
		}
	}
	return out, nil
}

// Optdp improves a legal placement
type Optdp struct {
	base
	dpl *Opendp
}

// NewOptdp creates the placement optimizer
func NewOptdp(env Env, dpl *Opendp) *Optdp {
	return &Optdp{base: newBase("dpo", utl.DPO, env), dpl: dpl}
}

// Replace is the global placer
type Replace struct {
	parallel
	rsz *Resizer
	grt *GlobalRouter
}

// NewReplace creates the global placer
func NewReplace(env Env, rsz *Resizer, grt *GlobalRouter) *Replace {
	return &Replace{parallel: newParallel("gpl", utl.GPL, env), rsz: rsz, grt: grt}
}

// IOPlacer assigns block terminals to die boundary slots
type IOPlacer struct {
	base
}

// NewIOPlacer creates the pin placer
func NewIOPlacer(env Env) *IOPlacer {
	return &IOPlacer{base: newBase("ppl", utl.PPL, env)}
}

// UnplacedPins returns block terminals without a placement status
func (p *IOPlacer) UnplacedPins() []string {
	block := p.db.Block()
	if block == nil {
		return nil
	}
	var out []string
	for _, bt := range block.BTerms {
		if bt.Status != odb.StatusPlaced && bt.Status != odb.StatusFixed && bt.Status != odb.StatusCover {
			out = append(out, bt.Name)
		}
	}
	return out
}

// Tapcell inserts well taps and endcaps
type Tapcell struct {
	base
}

// NewTapcell creates the tap inserter
func NewTapcell(env Env) *Tapcell {
	return &Tapcell{base: newBase("tap", utl.TAP, env)}
}

// MacroPlacer places hard macros
type MacroPlacer struct {
	base
	sta *Sta
}

// NewMacroPlacer creates the macro placer
func NewMacroPlacer(env Env, sta *Sta) *MacroPlacer {
	return &MacroPlacer{base: newBase("mpl", utl.MPL, env), sta: sta}
}

// Macros returns the instances of block masters
func (m *MacroPlacer) Macros() []string {
	return macros(m.db)
}

// MacroPlacer2 is the hierarchical macro placer
type MacroPlacer2 struct {
	parallel
	sta *Sta
}

// NewMacroPlacer2 creates the hierarchical macro placer
func NewMacroPlacer2(env Env, sta *Sta) *MacroPlacer2 {
	return &MacroPlacer2{parallel: newParallel("mpl2", utl.MPL, env), sta: sta}
}

func macros(db *odb.Database) []string {
	block := db.Block()
	if block == nil {
		return nil
	}
	var out []string
	for _, inst := range block.Insts {
		if _, m := db.FindMaster(inst.Master); m != nil && m.IsBlock() {
			out = append(out, inst.Name)
		}
	}
	return out
}
