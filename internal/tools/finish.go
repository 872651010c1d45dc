package tools

import "github.com/aescanero/ordo/pkg/utl"

// Finale fills empty space after routing
type Finale struct {
	base
}

// NewFinale creates the filler
func NewFinale(env Env) *Finale {
	return &Finale{base: newBase("fin", utl.FIN, env)}
}

// FillerCount returns the number of filler instances in the block
func (f *Finale) FillerCount() int {
	block := f.db.Block()
	if block == nil {
		return 0
	}
	n := 0
	for _, inst := range block.Insts {
		if _, m := f.db.FindMaster(inst.Master); m != nil && m.IsFiller() {
			n++
		}
	}
	return n
}

// PdnGen builds the power distribution network
type PdnGen struct {
	base
}

// NewPdnGen creates the power grid generator
func NewPdnGen(env Env) *PdnGen {
	return &PdnGen{base: newBase("pdn", utl.PDN, env)}
}

// ICeWall places the pad ring
type ICeWall struct {
	base
}

// NewICeWall creates the pad placer
func NewICeWall(env Env) *ICeWall {
	return &ICeWall{base: newBase("pad", utl.PAD, env)}
}

// Dft inserts scan chains
type Dft struct {
	base
	sta *Sta
}

// NewDft creates the test inserter
func NewDft(env Env, sta *Sta) *Dft {
	return &Dft{base: newBase("dft", utl.DFT, env), sta: sta}
}
