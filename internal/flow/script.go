package flow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// ErrScript is returned for scripts that cannot be parsed or decoded
var ErrScript = errors.New("invalid flow script")

// Script is a parsed flow script
type Script struct {
	Path    string
	Dir     string
	Threads string
	Steps   []*Step

	variables hcl.Attributes
}

// Step is one operation in a script
type Step struct {
	Op    string
	Body  hcl.Body
	Range hcl.Range
}

type hclScript struct {
	Threads   *string       `hcl:"threads,optional"`
	Variables *hclVariables `hcl:"variables,block"`
	Steps     []*hclStep    `hcl:"step,block"`
}

type hclVariables struct {
	Body hcl.Body `hcl:",remain"`
}

type hclStep struct {
	Op   string   `hcl:"op,label"`
	Body hcl.Body `hcl:",remain"`
}

// Load parses the script at path
func Load(path string) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow script: %w", err)
	}
	return Parse(src, path)
}

// Parse parses script source. filename is used in diagnostics and to
// resolve relative paths.
func Parse(src []byte, filename string) (*Script, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrScript, diags.Error())
	}

	var parsed hclScript
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrScript, diags.Error())
	}
	s := &Script{
		Path: filename,
		Dir:  filepath.Dir(filename),
	}
	if parsed.Threads != nil {
		s.Threads = *parsed.Threads
	}

	if parsed.Variables != nil {
		attrs, diags := parsed.Variables.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: %s", ErrScript, diags.Error())
		}
		s.variables = attrs
	}

	for _, st := range parsed.Steps {
		rng := st.Body.MissingItemRange()
		if _, ok := runners[st.Op]; !ok {
			return nil, fmt.Errorf("%w: %s: unknown step %q", ErrScript, rng, st.Op)
		}
		s.Steps = append(s.Steps, &Step{Op: st.Op, Body: st.Body, Range: rng})
	}

	return s, nil
}

// evalContext exposes env.*, threads, the script variables and the string
// functions to step arguments. Variables may reference env and threads but
// not each other.
func (s *Script) evalContext(environ []string, threads int) (*hcl.EvalContext, error) {
	env := map[string]cty.Value{}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"threads": cty.NumberIntVal(int64(threads)),
			"env":     cty.ObjectVal(env),
		},
		Functions: map[string]function.Function{
			"lower":  stdlib.LowerFunc,
			"upper":  stdlib.UpperFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
		},
	}

	values := make(map[string]cty.Value, len(s.variables))
	for name, attr := range s.variables {
		if name == "env" || name == "threads" {
			return nil, fmt.Errorf("%w: %s: variable %q shadows a builtin", ErrScript, attr.Range, name)
		}
		v, diags := attr.Expr.Value(ctx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: %s", ErrScript, diags.Error())
		}
		values[name] = v
	}
	for name, v := range values {
		ctx.Variables[name] = v
	}

	return ctx, nil
}

// resolve makes a pipeline path relative to the script directory
func (s *Script) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Dir, path)
}
