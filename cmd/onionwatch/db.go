package main

import (
	"fmt"

	"github.com/onionwatch/onionwatch/internal/config"
	"github.com/onionwatch/onionwatch/internal/database"
	"github.com/spf13/cobra"
)

// NewDBCmd creates the db command group.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the scan database",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBPathCmd())
	cmd.AddCommand(newDBResetCmd())

	return cmd
}

// newDBInitCmd creates the db init command.
func newDBInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and its tables",
		Long: `Init creates the database file and tables without starting the server.
Useful for provisioning a data directory ahead of time; serve creates the
database on demand if it does not exist.`,
		Args: cobra.NoArgs,
		RunE: runDBInitCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runDBInitCmd executes the db init command.
func runDBInitCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Created database: %s\n", db.Path())
	return nil
}

// newDBPathCmd creates the db path command.
func newDBPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the database directory",
		Long:  `Print the directory where the scan database is stored.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.XDGDataDir())
		},
	}
}

// newDBResetCmd creates the db reset command.
func newDBResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all scans and reports",
		Long: `Reset deletes every scan and every report from the database.
This cannot be undone; pass --force to confirm.

Examples:
  onionwatch db reset --force
  onionwatch db reset --force --db-dir /var/lib/onionwatch`,
		Args: cobra.NoArgs,
		RunE: runDBResetCmd,
	}

	cmd.Flags().BoolP("force", "f", false,
		"Confirm deletion of all scans and reports")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runDBResetCmd executes the db reset command.
func runDBResetCmd(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	if !force {
		return fmt.Errorf("refusing to delete all scans and reports (use -f to confirm)")
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.DeleteAllScans(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Deleted all scans and reports.")
	return nil
}
