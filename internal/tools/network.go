package tools

import (
	"context"
	"sync"

	"github.com/aescanero/ordo/pkg/odb"
	"github.com/aescanero/ordo/pkg/ports"
	"github.com/aescanero/ordo/pkg/utl"
	"go.uber.org/zap"
)

// VerilogNetwork holds the structural netlist between import and link
type VerilogNetwork struct {
	base
	netlist ports.Netlist
	top     string
}

// NewVerilogNetwork creates the netlist holder
func NewVerilogNetwork(env Env) *VerilogNetwork {
	return &VerilogNetwork{base: newBase("vnet", utl.VLOG, env)}
}

// SetNetlist stores a freshly imported netlist. The previous link is forgotten.
func (v *VerilogNetwork) SetNetlist(nl ports.Netlist) {
	v.netlist = nl
	v.top = ""
}

// Netlist returns the imported netlist, or nil before any import
func (v *VerilogNetwork) Netlist() ports.Netlist {
	return v.netlist
}

// SetLinked records the module that was elaborated into the block
func (v *VerilogNetwork) SetLinked(top string) {
	v.top = top
}

// Top returns the linked top module, empty before LinkDesign
func (v *VerilogNetwork) Top() string {
	return v.top
}

// Sta keeps a connectivity view of the block for timing queries. It
// registers itself as an observer and rebuilds the view after every read.
type Sta struct {
	parallel
	network *VerilogNetwork

	mu        sync.RWMutex
	stale     bool
	insts     int
	nets      int
	rebuilds  int
	blockName string
}

// NewSta creates the timer and subscribes it to design reads
func NewSta(env Env, network *VerilogNetwork) *Sta {
	s := &Sta{
		parallel: newParallel("sta", utl.STA, env),
		network:  network,
		stale:    true,
	}
	if env.Register != nil {
		env.Register(s)
	}
	return s
}

// Network returns the netlist holder the timer reads module names from
func (s *Sta) Network() *VerilogNetwork {
	return s.network
}

// PostReadLef marks the view stale; masters may have changed
func (s *Sta) PostReadLef(*odb.Tech, *odb.Lib) {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// PostReadDef rebuilds the view from the new block
func (s *Sta) PostReadDef(block *odb.Block) {
	s.rebuild(block)
}

// PostReadDb rebuilds the view from the restored database
func (s *Sta) PostReadDb(db *odb.Database) {
	s.rebuild(db.Block())
}

// DesignChanged rebuilds the view after in-process construction or linking
func (s *Sta) DesignChanged(block *odb.Block) {
	s.rebuild(block)
}

func (s *Sta) rebuild(block *odb.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insts, s.nets, s.blockName = 0, 0, ""
	if block != nil {
		s.insts = len(block.Insts)
		s.nets = len(block.Nets)
		s.blockName = block.Name
	}
	s.stale = false
	s.rebuilds++

	s.logger.Debug(utl.STA, 10, "network view rebuilt",
		zap.String("block", s.blockName),
		zap.Int("insts", s.insts),
		zap.Int("nets", s.nets))
}

// NetworkStale reports whether the view predates the last library read
// or has never been built
func (s *Sta) NetworkStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// InstanceCount returns the number of instances in the current view
func (s *Sta) InstanceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insts
}

// NetCount returns the number of nets in the current view
func (s *Sta) NetCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nets
}

// Rebuilds returns how many times the view was rebuilt
func (s *Sta) Rebuilds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rebuilds
}

// Fanouts returns the sink count of every net, computed on the pool
func (s *Sta) Fanouts(ctx context.Context) (map[string]int, error) {
	block := s.db.Block()
	if block == nil {
		return map[string]int{}, nil
	}

	counts := make([]int, len(block.Nets))
	err := s.run(ctx, "fanout", len(block.Nets), func(_ context.Context, i int) error {
		net := block.Nets[i]
		n := len(net.ITerms) + len(net.BTerms)
		for _, ref := range net.ITerms {
			if pinDirection(s.db, block, ref) == "OUTPUT" {
				n--
			}
		}
		counts[i] = max(n-driverBTerms(block, net), 0)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(block.Nets))
	for i, net := range block.Nets {
		out[net.Name] = counts[i]
	}
	return out, nil
}

// pinDirection looks up the master pin direction of an instance terminal
func pinDirection(db *odb.Database, block *odb.Block, ref odb.ITermRef) string {
	inst := block.FindInst(ref.Inst)
	if inst == nil {
		return ""
	}
	_, master := db.FindMaster(inst.Master)
	if master == nil {
		return ""
	}
	if mt := master.FindMTerm(ref.Pin); mt != nil {
		return mt.Direction
	}
	return ""
}

// driverBTerms counts top-level inputs driving the net
func driverBTerms(block *odb.Block, net *odb.Net) int {
	n := 0
	for _, name := range net.BTerms {
		if bt := block.FindBTerm(name); bt != nil && bt.Direction == "INPUT" {
			n++
		}
	}
	return n
}

// pinLocations returns one point per net terminal. Instance pins sit at the
// center of their instance; block terminals at their own location.
func pinLocations(db *odb.Database, block *odb.Block, net *odb.Net) []odb.Point {
	pts := make([]odb.Point, 0, len(net.ITerms)+len(net.BTerms))
	for _, ref := range net.ITerms {
		inst := block.FindInst(ref.Inst)
		if inst == nil {
			continue
		}
		p := inst.Location
		if _, master := db.FindMaster(inst.Master); master != nil {
			p.X += master.Width / 2
			p.Y += master.Height / 2
		}
		pts = append(pts, p)
	}
	for _, name := range net.BTerms {
		if bt := block.FindBTerm(name); bt != nil {
			pts = append(pts, bt.Location)
		}
	}
	return pts
}
