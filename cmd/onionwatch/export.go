package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/onionwatch/onionwatch/internal/config"
	"github.com/onionwatch/onionwatch/internal/database"
	"github.com/onionwatch/onionwatch/internal/report"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <report-id>",
		Short: "Export a classification report as Markdown",
		Long: `Export renders a stored classification report as a Markdown document
with a label summary, a sentiment chart, and the per-post verdicts.

Examples:
  # Print report 3 to stdout
  onionwatch export 3

  # Write to a file
  onionwatch export 3 -o report.md

  # Use a custom database directory
  onionwatch export 3 --db-dir /var/lib/onionwatch`,
		Args: cobra.ExactArgs(1),
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	// Export never creates a database; an empty one has nothing to export.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rpt, err := db.GetReport(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	if rpt == nil {
		return fmt.Errorf("report not found: id %d", id)
	}

	output := os.Stdout
	if outputPath != "" {
		dir := filepath.Dir(outputPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain marketplace content that should only be
		// readable by the owner.
		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if err := report.NewMarkdownExporter(output).Export(rpt); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	if outputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported report %d to %s\n", id, outputPath)
	}
	return nil
}
