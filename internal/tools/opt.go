package tools

import (
	"github.com/aescanero/ordo/pkg/utl"
)

// Resizer sizes and buffers instances
type Resizer struct {
	base
	sta *Sta
	stt *SteinerTreeBuilder
	grt *GlobalRouter
	dpl *Opendp
}

// NewResizer creates the resizer
func NewResizer(env Env, sta *Sta, stt *SteinerTreeBuilder, grt *GlobalRouter, dpl *Opendp) *Resizer {
	return &Resizer{base: newBase("rsz", utl.RSZ, env), sta: sta, stt: stt, grt: grt, dpl: dpl}
}

// DesignArea returns the summed master area of all instances in dbu^2
func (r *Resizer) DesignArea() int64 {
	block := r.db.Block()
	if block == nil {
		return 0
	}
	var area int64
	for _, inst := range block.Insts {
		if _, m := r.db.FindMaster(inst.Master); m != nil {
			area += int64(m.Width) * int64(m.Height)
		}
	}
	return area
}

// Restructure remaps logic for timing or area
type Restructure struct {
	base
	sta *Sta
	rsz *Resizer
}

// NewRestructure creates the logic restructurer
func NewRestructure(env Env, sta *Sta, rsz *Resizer) *Restructure {
	return &Restructure{base: newBase("rmp", utl.RMP, env), sta: sta, rsz: rsz}
}

// TritonCTS builds clock trees
type TritonCTS struct {
	parallel
	sta *Sta
	rsz *Resizer
	stt *SteinerTreeBuilder
}

// NewTritonCTS creates the clock tree builder
func NewTritonCTS(env Env, sta *Sta, rsz *Resizer, stt *SteinerTreeBuilder) *TritonCTS {
	return &TritonCTS{parallel: newParallel("cts", utl.CTS, env), sta: sta, rsz: rsz, stt: stt}
}

// ClockNets returns the nets marked with USE CLOCK
func (c *TritonCTS) ClockNets() []string {
	block := c.db.Block()
	if block == nil {
		return nil
	}
	var out []string
	for _, n := range block.Nets {
		if n.Use == "CLOCK" {
			out = append(out, n.Name)
		}
	}
	return out
}
