// Package cli implements the medintake commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medintake/internal/config"
	"medintake/internal/records"
)

var (
	dbPath     string
	driverFlag string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "medintake",
	Short: "Medical intake assistant",
	Long:  "Conversational triage and appointment booking for a clinic. Runs as an HTTP service or an interactive chat.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if driverFlag != "" {
			cfg.DBDriver = driverFlag
		}
		if dbPath != "" {
			if cfg.DBDriver == "postgres" {
				cfg.DatabaseURL = dbPath
			} else {
				cfg.SQLitePath = dbPath
			}
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite path or Postgres DSN (default: $SQLITE_PATH or $DATABASE_URL)")
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: sqlite or postgres (default: $DB_DRIVER)")
}

func openStore(ctx context.Context) (*records.SQLStore, error) {
	return records.Open(ctx, cfg.DBDriver, cfg.DSN())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
