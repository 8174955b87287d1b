// Package config loads and validates dropdash configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with DROPDASH_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// The device section points at the electrode controller: its websocket
// event stream and its JSON-RPC command endpoint. Everything else has
// working defaults, so an empty file (or no file at all) runs a dashboard
// against a device on localhost.
//
// Usage:
//
//	cfg, err := config.Load("configs/dropdash.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.EventURL())
package config
