package orchestrator

import "github.com/aescanero/ordo/internal/tools"

// toolSpec declares one tool: its short name, the tools it is wired with,
// and how to build it once those exist.
type toolSpec struct {
	name  string
	deps  []string
	build func(r *Runtime, env tools.Env) tools.Tool
}

// wiring is the fixed tool dependency table
var wiring = []toolSpec{
	{"vnet", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.vnet = tools.NewVerilogNetwork(env)
		return r.vnet
	}},
	{"sta", []string{"vnet"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.sta = tools.NewSta(env, r.vnet)
		return r.sta
	}},
	{"stt", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.stt = tools.NewSteinerTreeBuilder(env)
		return r.stt
	}},
	{"ant", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.ant = tools.NewAntennaChecker(env)
		return r.ant
	}},
	{"dpl", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.dpl = tools.NewOpendp(env)
		return r.dpl
	}},
	{"grt", []string{"stt", "ant", "dpl", "sta"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.grt = tools.NewGlobalRouter(env, r.stt, r.ant, r.dpl, r.sta)
		return r.grt
	}},
	{"rsz", []string{"sta", "stt", "grt", "dpl"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.rsz = tools.NewResizer(env, r.sta, r.stt, r.grt, r.dpl)
		return r.rsz
	}},
	{"rmp", []string{"sta", "rsz"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.rmp = tools.NewRestructure(env, r.sta, r.rsz)
		return r.rmp
	}},
	{"cts", []string{"sta", "rsz", "stt"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.cts = tools.NewTritonCTS(env, r.sta, r.rsz, r.stt)
		return r.cts
	}},
	{"gpl", []string{"rsz", "grt"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.gpl = tools.NewReplace(env, r.rsz, r.grt)
		return r.gpl
	}},
	{"dst", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.dst = tools.NewDistributed(env)
		return r.dst
	}},
	{"drt", []string{"grt", "dst"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.drt = tools.NewTritonRoute(env, r.grt, r.dst)
		return r.drt
	}},
	{"ppl", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.ppl = tools.NewIOPlacer(env)
		return r.ppl
	}},
	{"tap", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.tap = tools.NewTapcell(env)
		return r.tap
	}},
	{"mpl", []string{"sta"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.mpl = tools.NewMacroPlacer(env, r.sta)
		return r.mpl
	}},
	{"mpl2", []string{"sta"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.mpl2 = tools.NewMacroPlacer2(env, r.sta)
		return r.mpl2
	}},
	{"dpo", []string{"dpl"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.dpo = tools.NewOptdp(env, r.dpl)
		return r.dpo
	}},
	{"fin", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.fin = tools.NewFinale(env)
		return r.fin
	}},
	{"rcx", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.rcx = tools.NewExt(env)
		return r.rcx
	}},
	{"psm", []string{"sta", "rcx"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.psm = tools.NewPDNSim(env, r.sta, r.rcx)
		return r.psm
	}},
	{"par", []string{"sta"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.par = tools.NewPartitionMgr(env, r.sta)
		return r.par
	}},
	{"pdn", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.pdn = tools.NewPdnGen(env)
		return r.pdn
	}},
	{"pad", nil, func(r *Runtime, env tools.Env) tools.Tool {
		r.pad = tools.NewICeWall(env)
		return r.pad
	}},
	{"dft", []string{"sta"}, func(r *Runtime, env tools.Env) tools.Tool {
		r.dft = tools.NewDft(env, r.sta)
		return r.dft
	}},
}
