package tools

import (
	"context"

	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// Ext extracts parasitics
type Ext struct {
	parallel
}

// NewExt creates the extractor
func NewExt(env Env) *Ext {
	return &Ext{parallel: newParallel("rcx", utl.RCX, env)}
}

// EstimateParasitics returns an estimated routed length per net in dbu,
// computed on the pool. Nets with fewer than two terminals are omitted.
func (e *Ext) EstimateParasitics(ctx context.Context) (map[string]int, error) {
	block := e.db.Block()
	if block == nil {
		return map[string]int{}, nil
	}

	lengths := make([]int, len(block.Nets))
	err := e.run(ctx, "estimate_parasitics", len(block.Nets), func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lengths[i] = hpwl(pinLocations(e.db, block, block.Nets[i]))
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(block.Nets))
	for i, net := range block.Nets {
		if len(net.ITerms)+len(net.BTerms) < 2 {
			continue
		}
		out[net.Name] = lengths[i]
	}
	e.logger.Info(utl.RCX, 30, "estimated parasitics", zap.Int("nets", len(out)))
	return out, nil
}

// PDNSim analyzes the power grid
type PDNSim struct {
	parallel
	sta *Sta
	rcx *Ext
}

// NewPDNSim creates the power grid analyzer
func NewPDNSim(env Env, sta *Sta, rcx *Ext) *PDNSim {
	return &PDNSim{parallel: newParallel("psm", utl.PSM, env), sta: sta, rcx: rcx}
}

// PowerNets returns the nets marked with USE POWER or USE GROUND
func (p *PDNSim) PowerNets() []string {
	block := p.db.Block()
	if block == nil {
		return nil
	}
	var out []string
	for _, n := range block.Nets {
		if n.Use == "POWER" || n.Use == "GROUND" {
			out = append(out, n.Name)
		}
	}
	return out
}

// PartitionMgr partitions the netlist
type PartitionMgr struct {
	parallel
	sta *Sta
}

// NewPartitionMgr creates the partition manager
func NewPartitionMgr(env Env, sta *Sta) *PartitionMgr {
	return &PartitionMgr{parallel: newParallel("par", utl.PAR, env), sta: sta}
}
