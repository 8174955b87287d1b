// Package database provides SQLite storage for dropdash.
//
// The dashboard keeps very little state of its own: the operator's panel
// arrangement and similar UI preferences. Telemetry history goes to
// InfluxDB, not here.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Forward and backward schema migrations read from an fs.FS
//   - Health checks and transaction helpers
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named NNNN_description.up.sql and
// NNNN_description.down.sql. Versions sort lexically.
package database
