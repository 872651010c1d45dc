package flow

import (
	"context"
	"fmt"

	"github.com/aescanero/ordo/internal/application/orchestrator"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

type runner func(ctx context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error

type readLefArgs struct {
	File    string `hcl:"file"`
	Lib     string `hcl:"lib,optional"`
	Tech    *bool  `hcl:"tech,optional"`
	Library *bool  `hcl:"library,optional"`
}

type readDefArgs struct {
	File             string `hcl:"file"`
	ContinueOnErrors bool   `hcl:"continue_on_errors,optional"`
	FloorplanInit    bool   `hcl:"floorplan_init,optional"`
	Incremental      bool   `hcl:"incremental,optional"`
}

type fileArgs struct {
	File string `hcl:"file"`
}

type writeDefArgs struct {
	File    string `hcl:"file"`
	Version string `hcl:"version,optional"`
}

type writeCdlArgs struct {
	File           string   `hcl:"file"`
	Masters        []string `hcl:"masters,optional"`
	IncludeFillers bool     `hcl:"include_fillers,optional"`
}

type linkArgs struct {
	Top string `hcl:"top"`
}

type diffArgs struct {
	A      string `hcl:"a"`
	B      string `hcl:"b"`
	Report string `hcl:"report"`
}

type threadArgs struct {
	Count string `hcl:"count"`
}

type noArgs struct{}

var runners = map[string]runner{
	"read_lef": func(_ context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[readLefArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.ReadLef(s.resolve(a.File), a.Lib, boolOr(a.Tech, true), boolOr(a.Library, true))
	},
	"read_def": func(_ context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[readDefArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.ReadDef(s.resolve(a.File), a.ContinueOnErrors, a.FloorplanInit, a.Incremental)
	},
	"read_verilog": func(_ context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[fileArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.ReadVerilog(s.resolve(a.File))
	},
	"link_design": func(_ context.Context, r *orchestrator.Runtime, _ *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[linkArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.LinkDesign(a.Top)
	},
	"design_created": func(_ context.Context, r *orchestrator.Runtime, _ *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		if _, err := decode[noArgs](body, ectx); err != nil {
			return err
		}
		return r.DesignCreated()
	},
	"write_lef": func(_ context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[fileArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.WriteLef(s.resolve(a.File))
	},
	"write_def": func(_ context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[writeDefArgs](body, ectx)
		if err != nil {
			return err
		}
		version := a.Version
		if version == "" {
			version = "5.8"
		}
		return r.WriteDef(s.resolve(a.File), version)
	},
	"write_cdl": func(_ context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[writeCdlArgs](body, ectx)
		if err != nil {
			return err
		}
		masters := make([]string, len(a.Masters))
		for i, m := range a.Masters {
			masters[i] = s.resolve(m)
		}
		return r.WriteCdl(s.resolve(a.File), masters, a.IncludeFillers)
	},
	"read_db": func(ctx context.Context, r *orchestrator.Runtime, _ *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[fileArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.ReadDb(ctx, a.File)
	},
	"write_db": func(ctx context.Context, r *orchestrator.Runtime, _ *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[fileArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.WriteDb(ctx, a.File)
	},
	"diff_dbs": func(ctx context.Context, r *orchestrator.Runtime, s *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[diffArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.DiffDbs(ctx, a.A, a.B, s.resolve(a.Report))
	},
	"set_thread_count": func(_ context.Context, r *orchestrator.Runtime, _ *Script, body hcl.Body, ectx *hcl.EvalContext) error {
		a, err := decode[threadArgs](body, ectx)
		if err != nil {
			return err
		}
		return r.SetThreadCountString(a.Count, true)
	},
}

func decode[T any](body hcl.Body, ectx *hcl.EvalContext) (*T, error) {
	var args T
	if diags := gohcl.DecodeBody(body, ectx, &args); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrScript, diags.Error())
	}
	return &args, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
