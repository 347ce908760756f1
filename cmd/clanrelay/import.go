package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/migrate"
	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import --file EXPORT.json",
	Short: "Import clan-log rows exported from a previous deployment",
	Long: `Import reads a JSON array of clan_logs rows (clan_name, member_username,
message, timestamp, message_sent), re-derives each row's category from its
message, and stores every row not already present. Rows already marked as
sent are checkpointed so they are not relayed again.

Unless --dry-run is given, the database is backed up first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		backupPath, _ := cmd.Flags().GetString("backup")
		logger := log.WithComponent("migrate")

		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open export: %w", err)
		}
		defer f.Close()

		rows, err := migrate.ReadExport(f)
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		// Create backup unless in dry-run mode
		if !dryRun {
			if backupPath == "" {
				backupPath = store.Path() + ".backup"
			}
			if err := store.Backup(backupPath); err != nil {
				return err
			}
			logger.Info().Str("path", backupPath).Msg("Backup created")
		}

		report, err := migrate.Import(store, rows, migrate.Options{DryRun: dryRun})
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Rows:         %d\n", report.Rows)
		fmt.Printf("Inserted:     %d\n", report.Inserted)
		fmt.Printf("Duplicates:   %d\n", report.Duplicates)
		fmt.Printf("Skipped:      %d\n", report.Skipped)
		fmt.Printf("Checkpointed: %d\n", report.Checkpointed)

		categories := make([]types.Category, 0, len(report.ByCategory))
		for c := range report.ByCategory {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
		for _, c := range categories {
			fmt.Printf("  %-26s %d\n", c, report.ByCategory[c])
		}

		if dryRun {
			fmt.Println("\nDry run completed. No changes made.")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "Path to the JSON export")
	importCmd.Flags().Bool("dry-run", false, "Show what would be imported without making changes")
	importCmd.Flags().String("backup", "", "Path to back up the database before importing (default: <database>.backup)")
	_ = importCmd.MarkFlagRequired("file")
}
