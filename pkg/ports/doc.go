// Package ports defines the narrow interfaces between the orchestration
// runtime and its external collaborators:
//   - format codecs (library, layout, circuit)
//   - snapshot stores for persisted databases
//   - event buses used to fan design events out of process
//   - metrics collectors
//   - design observers
package ports
