// Package flow runs HCL flow scripts against a runtime.
//
// A script is a sequence of step blocks executed in file order. Each step
// label names a runtime operation and its body holds the arguments:
//
//	threads = "max"
//
//	step "read_lef" {
//	  file = "${env.PDK_ROOT}/tech.lef"
//	}
//
//	step "read_def" {
//	  file               = "top.def"
//	  continue_on_errors = true
//	}
//
//	step "write_db" {
//	  file = "mem:${lower(design)}"
//	}
//
// Expressions see the process environment as env.*, the current thread
// budget as threads, the script's variables block and a few string
// functions. Relative pipeline paths resolve against the script directory;
// database paths are handed to the snapshot store as written.
package flow
