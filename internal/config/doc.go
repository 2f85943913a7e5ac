// Package config loads the loom runtime configuration.
//
// Values come from three layers, later layers winning: built-in defaults,
// loom.yaml in the working directory, and LOOM_* environment variables.
//
// # Configuration File Structure
//
//	noDefering: false
//	noPreloader: false
//	deferTimeout: 0s
//	preloaderDeferTimeout: 300ms
//	placeholderDeferTimeout: 100ms
//	lazyComponentDeferTimeout: 0s
//	logLevel: info
//	inspect:
//	  addr: localhost:7331
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt := loom.New(loom.Options{Config: cfg.Runtime()})
package config
