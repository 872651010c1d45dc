// Package orchestrator implements the runtime that owns the design database
// and the tool set.
//
// The runtime:
//   - builds every tool once, in dependency order, and wires peers together
//   - drives the design-loading pipeline and reports failures by class
//   - notifies registered observers after each successful read
//   - propagates the thread budget to every tool that owns a worker pool
//
// Operations called before Init are lifecycle violations and are logged at
// fatal severity.
package orchestrator
