package orchestrator

import (
	"fmt"
	"strings"
)

// Validator checks a tool wiring table and orders it for construction
type Validator struct{}

// NewValidator creates a new wiring validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that every tool has a unique name, that every dependency
// names a declared tool, and that the graph is acyclic. It returns the
// construction order: a topological order in which ties are broken by
// declaration order.
func (v *Validator) Validate(specs []toolSpec) ([]toolSpec, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("wiring table is empty")
	}

	index := make(map[string]int, len(specs))
	for i, s := range specs {
		if s.name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if s.build == nil {
			return nil, fmt.Errorf("tool %s has no constructor", s.name)
		}
		if _, dup := index[s.name]; dup {
			return nil, fmt.Errorf("duplicate tool: %s", s.name)
		}
		index[s.name] = i
	}

	inDegree := make([]int, len(specs))
	dependents := make([][]int, len(specs))
	for i, s := range specs {
		for _, dep := range s.deps {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("tool %s depends on unknown tool %s", s.name, dep)
			}
			if j == i {
				return nil, fmt.Errorf("tool %s depends on itself", s.name)
			}
			inDegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	order := make([]toolSpec, 0, len(specs))
	done := make([]bool, len(specs))
	for len(order) < len(specs) {
		next := -1
		for i := range specs {
			if !done[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("dependency cycle among tools: %s", strings.Join(pending(specs, done), ", "))
		}
		done[next] = true
		order = append(order, specs[next])
		for _, d := range dependents[next] {
			inDegree[d]--
		}
	}

	return order, nil
}

func pending(specs []toolSpec, done []bool) []string {
	var out []string
	for i, s := range specs {
		if !done[i] {
			out = append(out, s.name)
		}
	}
	return out
}
