// Package utl provides the process-wide logger shared by the runtime and every tool.
//
// Messages are tagged with:
//   - the reporting tool (ORD, ODB, STA, GRT, ...)
//   - a per-tool message number, stable across releases
//
// Fatal messages go through zap's fatal hook, which exits the process by default.
package utl
