package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/matiasleandrokruk/genhub/internal/infra/config"
	"github.com/matiasleandrokruk/genhub/internal/infra/sqlite"
)

func runMigrate(args []string, cfg config.Config, logger *slog.Logger, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	status := fs.Bool("status", false, "List migrations and the applied version without changing anything")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx := context.Background()
	db, err := sqlite.NewDB(cfg.DBPath())
	if err != nil {
		logger.Error("open database", "error", err)
		return ExitStorage
	}
	defer db.Close()

	if *status {
		return printMigrationStatus(ctx, db, out, logger)
	}

	applied, err := sqlite.MigrateUp(ctx, db)
	if err != nil {
		logger.Error("migrate", "error", err)
		return ExitStorage
	}
	v, _ := sqlite.MigrationVersion(ctx, db)
	fmt.Fprintf(out, "applied %d migration(s); schema version %d\n", applied, v) //nolint:errcheck
	return ExitOK
}

func printMigrationStatus(ctx context.Context, db *sql.DB, out io.Writer, logger *slog.Logger) int {
	current, err := sqlite.MigrationVersion(ctx, db)
	if err != nil {
		logger.Error("read schema version", "error", err)
		return ExitStorage
	}
	all, err := sqlite.Migrations()
	if err != nil {
		logger.Error("list migrations", "error", err)
		return ExitStorage
	}

	fmt.Fprintf(out, "schema version %d\n", current) //nolint:errcheck
	for _, m := range all {
		state := "pending"
		if m.Version <= current {
			state = "applied"
		}
		fmt.Fprintf(out, "  %03d  %-8s %s\n", m.Version, state, m.Name) //nolint:errcheck
	}
	return ExitOK
}
