// Package odb is the shared in-memory design database.
//
// A Database holds at most one technology, any number of libraries and at most
// one block. Records carry a uuid identity that survives snapshot round-trips.
// There is no internal locking: the orchestration runtime is the single writer
// and tools only read between pipeline calls.
package odb
