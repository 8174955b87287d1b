package main

import (
	"fmt"

	"github.com/nerrad567/dropdash/internal/infrastructure/config"
	"github.com/nerrad567/dropdash/internal/infrastructure/database"
	"github.com/nerrad567/dropdash/migrations"
)

// MigrateCmd applies, rolls back or reports database migrations.
type MigrateCmd struct {
	Down   bool `help:"Roll back the most recently applied migration"`
	Status bool `help:"Only list applied and pending migrations"`
}

// Run implements the migrate command.
func (c *MigrateCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	switch {
	case c.Status:
	case c.Down:
		if err := db.MigrateDown(g.Context, migrations.FS); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
	default:
		if err := db.Migrate(g.Context, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	applied, pending, err := db.MigrationStatus(g.Context, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, r := range applied {
		fmt.Fprintf(g.Stdout, "applied  %s  %s\n", r.Version, r.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(g.Stdout, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}
