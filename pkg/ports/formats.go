package ports

import "github.com/aescanero/ordo/pkg/odb"

// LibraryCodec reads and writes technology/library descriptions.
// ReadLibrary must not mutate db when it returns an error.
type LibraryCodec interface {
	ReadLibrary(db *odb.Database, path, libName string, makeTech, makeLibrary bool) (*odb.Tech, *odb.Lib, error)
	WriteLibrary(db *odb.Database, path string) error
}

// LayoutOptions selects how a layout read treats existing block content
type LayoutOptions struct {
	ContinueOnErrors bool
	FloorplanInit    bool
	Incremental      bool
}

// LayoutResult is the outcome of a layout read
type LayoutResult struct {
	Block *odb.Block
	// Skipped holds the per-record failures tolerated in continue-on-errors mode
	Skipped []error
}

// LayoutCodec reads and writes layout descriptions.
// ReadLayout must not mutate db when it returns an error.
type LayoutCodec interface {
	ReadLayout(db *odb.Database, path string, opts LayoutOptions) (*LayoutResult, error)
	WriteLayout(db *odb.Database, path, version string) error
}

// CircuitWriter writes a flattened circuit-extraction netlist
type CircuitWriter interface {
	WriteCircuit(db *odb.Database, path string, blackBoxes []string, includeFillers bool) error
}

// Netlist is an imported structural netlist not yet bound to a database
type Netlist interface {
	Modules() []string
	HasModule(name string) bool
}

// NetlistReader imports structural netlists and elaborates them into a
// database. Link replaces the block netlist and must not mutate db when it
// returns an error.
type NetlistReader interface {
	ReadNetlist(path string) (Netlist, error)
	Link(db *odb.Database, nl Netlist, top string) error
}
