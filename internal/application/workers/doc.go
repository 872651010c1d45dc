// Package workers implements the goroutine pools owned by parallel tools.
//
// Each pool:
//   - starts a fixed number of workers that pull jobs from a shared channel
//   - resizes synchronously when the runtime changes the thread budget
//   - fans a batch out with Do and joins the results
//
// The health monitor periodically records idle/busy/stopped counts per pool.
package workers
