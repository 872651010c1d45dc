// Package config provides configuration management for the ordo runtime.
//
// Configuration is loaded from environment variables using the env package.
// When ORDO_CONFIG names a TOML file, keys present in the file override the
// environment; absent keys keep their environment or default value. All
// values have defaults suitable for local development.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
//
// Example overlay:
//
//	log_level = "debug"
//	threads   = "max"
//
//	[events]
//	backend = "redis"
//
//	[redis]
//	enabled      = true
//	addr         = "redis:6379"
//	snapshot_ttl = "24h"
package config
