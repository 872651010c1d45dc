// Package tools holds the fixed set of tools owned by the runtime.
//
// Tools are thin: they are wired with the shared database, the logger and
// the peers they depend on, and expose small queries over the block. Tools
// that run work in parallel embed a worker pool sized by the runtime's
// thread budget.
package tools
