// Package formats groups the file-format collaborators of the runtime.
//
// Implementations:
//   - lef: technology/library descriptions (read + write)
//   - def: layout descriptions (read + write, continue-on-errors, floorplan, incremental)
//   - verilog: structural netlist import and flattening link
//   - cdl: circuit-extraction netlist writer
//
// Readers parse and resolve against the database before committing anything,
// so a failed read leaves the database untouched.
package formats
