package cmd

import (
	"fmt"

	"github.com/solatis/lifter/internal/core/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the SQL cache schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "list migrations without applying them")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	url := dbURL
	if url == "" {
		url = cfg.Cache.DBURL
	}
	if url == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if status, _ := cmd.Flags().GetBool("status"); !status {
		if err := db.MigrateUp(database); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("migrations applied", "driver", database.DriverName())
	}

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%s\t%s\n", s.ID, state)
	}
	return nil
}
