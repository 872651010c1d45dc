// Command ordo drives the physical-design runtime: it serves the HTTP,
// websocket and gRPC front ends, runs HCL flow scripts and compares
// persisted databases.
//
// Usage:
//
//	ordo [--config FILE] serve [--flow SCRIPT]
//	ordo [--config FILE] run SCRIPT
//	ordo [--config FILE] diff A B [REPORT]
package main

import (
	"fmt"
	"os"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
