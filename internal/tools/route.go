package tools

import (
	"context"
	"sync/atomic"

	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// SteinerTreeBuilder estimates net topologies
type SteinerTreeBuilder struct {
	base
}

// NewSteinerTreeBuilder creates the tree builder
func NewSteinerTreeBuilder(env Env) *SteinerTreeBuilder {
	return &SteinerTreeBuilder{base: newBase("stt", utl.STT, env)}
}

// Wirelength returns the half-perimeter of the pin bounding box, the lower
// bound of any rectilinear Steiner tree over pins.
func (s *SteinerTreeBuilder) Wirelength(pins []odb.Point) int {
	return hpwl(pins)
}

func hpwl(pins []odb.Point) int {
	if len(pins) < 2 {
		return 0
	}
	xmin, xmax := pins[0].X, pins[0].X
	ymin, ymax := pins[0].Y, pins[0].Y
	for _, p := range pins[1:] {
		xmin, xmax = min(xmin, p.X), max(xmax, p.X)
		ymin, ymax = min(ymin, p.Y), max(ymax, p.Y)
	}
	return (xmax - xmin) + (ymax - ymin)
}

// AntennaChecker reports nets whose connectivity cannot be checked
type AntennaChecker struct {
	parallel
}

// NewAntennaChecker creates the checker
func NewAntennaChecker(env Env) *AntennaChecker {
	return &AntennaChecker{parallel: newParallel("ant", utl.ANT, env)}
}

// FloatingNets returns the nets with fewer than two terminals, in block order
func (a *AntennaChecker) FloatingNets(ctx context.Context) ([]string, error) {
	block := a.db.Block()
	if block == nil {
		return nil, nil
	}

	floating := make([]bool, len(block.Nets))
	err := a.run(ctx, "floating_nets", len(block.Nets), func(_ context.Context, i int) error {
		net := block.Nets[i]
		floating[i] = len(net.ITerms)+len(net.BTerms) < 2
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []string
	for i, f := range floating {
		if f {
			out = append(out, block.Nets[i].Name)
		}
	}
	return out, nil
}

// GlobalRouter plans routing resources for every net
type GlobalRouter struct {
	parallel
	stt *SteinerTreeBuilder
	ant *AntennaChecker
	dpl *Opendp
	sta *Sta
}

// NewGlobalRouter creates the router
func NewGlobalRouter(env Env, stt *SteinerTreeBuilder, ant *AntennaChecker, dpl *Opendp, sta *Sta) *GlobalRouter {
	return &GlobalRouter{
		parallel: newParallel("grt", utl.GRT, env),
		stt:      stt,
		ant:      ant,
		dpl:      dpl,
		sta:      sta,
	}
}

// EstimateWirelength sums the Steiner estimate of every net in the block
func (g *GlobalRouter) EstimateWirelength(ctx context.Context) (int64, error) {
	block := g.db.Block()
	if block == nil {
		return 0, nil
	}

	var total atomic.Int64
	err := g.run(ctx, "estimate_wirelength", len(block.Nets), func(_ context.Context, i int) error {
		wl := g.stt.Wirelength(pinLocations(g.db, block, block.Nets[i]))
		total.Add(int64(wl))
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.logger.Info(utl.GRT, 20, "estimated wirelength",
		zap.Int("nets", len(block.Nets)),
		zap.Int64("dbu", total.Load()))
	return total.Load(), nil
}

// TritonRoute performs detailed routing on top of the global guides
type TritonRoute struct {
	parallel
	grt *GlobalRouter
	dst *Distributed
}

// NewTritonRoute creates the detailed router
func NewTritonRoute(env Env, grt *GlobalRouter, dst *Distributed) *TritonRoute {
	return &TritonRoute{parallel: newParallel("drt", utl.DRT, env), grt: grt, dst: dst}
}

// Distributed dispatches work to remote workers
type Distributed struct {
	base
}

// NewDistributed creates the dispatcher
func NewDistributed(env Env) *Distributed {
	return &Distributed{base: newBase("dst", utl.DST, env)}
}
