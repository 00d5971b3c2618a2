package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rosterboard/internal/aggregate"
	"rosterboard/internal/identity/index"
	"rosterboard/internal/identity/models"
	"rosterboard/internal/reconcile"
	"rosterboard/internal/remote"
	"rosterboard/internal/roster"
	"rosterboard/pkg/secrets"
)

var (
	rosterPath    string
	directoryPath string
	recordsPath   string
	nameColumn    string
	phoneColumns  []string
	outPath       string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match a roster CSV against a directory export",
	Long: `Reconcile matches every roster row against a directory export and
prints the match statistics. With --out the roster is written back with
the resolved identity columns appended.

The directory export needs id, name and phone columns.`,
	RunE: runReconcile,
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Build a leaderboard from a roster, directory and records export",
	Long: `Aggregate runs the full pipeline on local files: reconcile the
roster, then count records per resolved identity. The records export
needs user_id and media_type columns. The report is printed as JSON.`,
	RunE: runAggregate,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key",
	Short: "Generate an API key and its bcrypt hash for server config",
	RunE:  runHashKey,
}

func init() {
	for _, cmd := range []*cobra.Command{reconcileCmd, aggregateCmd} {
		cmd.Flags().StringVar(&rosterPath, "roster", "", "roster CSV to reconcile (required)")
		cmd.Flags().StringVar(&directoryPath, "directory", "", "directory export CSV (required)")
		cmd.Flags().StringVar(&nameColumn, "name-column", "Name", "roster column holding the person's name")
		cmd.Flags().StringSliceVar(&phoneColumns, "phone-columns", []string{"Phone Number", "WhatsApp Number", "Phone"}, "roster columns tried in order for a phone number")
		_ = cmd.MarkFlagRequired("roster")
		_ = cmd.MarkFlagRequired("directory")
	}
	reconcileCmd.Flags().StringVar(&outPath, "out", "", "write the augmented roster CSV here")
	aggregateCmd.Flags().StringVar(&recordsPath, "records", "", "records export CSV (required)")
	_ = aggregateCmd.MarkFlagRequired("records")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(hashKeyCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	table, report, err := reconcileFiles()
	if err != nil {
		return err
	}

	printStats(cmd, report.Stats)

	if outPath != "" {
		augmented := report.AugmentedTable(*table)
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		if err := roster.WriteCSV(f, augmented.Headers, augmented.Rows); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		cmd.Printf("augmented roster written to %s\n", outPath)
	}
	return nil
}

func runAggregate(cmd *cobra.Command, args []string) error {
	_, report, err := reconcileFiles()
	if err != nil {
		return err
	}

	records, err := loadRecords(recordsPath)
	if err != nil {
		return err
	}
	board := aggregate.Aggregate(report.Rows, records)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(board)
}

func runHashKey(cmd *cobra.Command, args []string) error {
	key, err := secrets.Generate()
	if err != nil {
		return err
	}
	hash, err := secrets.Hash(key)
	if err != nil {
		return err
	}
	cmd.Printf("api key:  %s\nkey hash: %s\n", key, hash)
	return nil
}

// reconcileFiles loads both CSVs and runs the reconciliation.
func reconcileFiles() (*roster.Table, *reconcile.Report, error) {
	identities, err := loadDirectory(directoryPath)
	if err != nil {
		return nil, nil, err
	}

	table, warnings, err := loadTable(rosterPath)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s row %d: %s\n", rosterPath, w.Row, w.Message)
	}

	idx := index.Build(identities)
	report, err := reconcile.Reconcile(*table, idx, reconcile.Config{
		NameColumn:   nameColumn,
		PhoneColumns: phoneColumns,
	})
	if err != nil {
		return nil, nil, err
	}
	return table, report, nil
}

func loadTable(path string) (*roster.Table, []roster.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	table, warnings, err := roster.ParseCSV(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return table, warnings, nil
}

func loadDirectory(path string) ([]models.Identity, error) {
	table, _, err := loadTable(path)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"id", "name", "phone"} {
		if !table.HasColumn(col) {
			return nil, fmt.Errorf("%s: directory export needs an %q column", path, col)
		}
	}

	identities := make([]models.Identity, 0, len(table.Rows))
	for _, row := range table.Rows {
		if strings.TrimSpace(row["id"]) == "" {
			continue
		}
		identities = append(identities, models.Identity{
			ID:    row["id"],
			Name:  row["name"],
			Phone: row["phone"],
		})
	}
	return identities, nil
}

func loadRecords(path string) ([]remote.Record, error) {
	table, _, err := loadTable(path)
	if err != nil {
		return nil, err
	}
	if !table.HasColumn("user_id") {
		return nil, fmt.Errorf("%s: records export needs a %q column", path, "user_id")
	}

	records := make([]remote.Record, 0, len(table.Rows))
	for _, row := range table.Rows {
		records = append(records, remote.Record{
			OwnerID:   row["user_id"],
			Category:  row["category"],
			MediaType: row["media_type"],
			Status:    row["status"],
		})
	}
	return records, nil
}

func printStats(cmd *cobra.Command, stats reconcile.Stats) {
	cmd.Printf("rows:            %d\n", stats.Total)
	cmd.Printf("matched:         %d\n", stats.Matched)
	cmd.Printf("  exact name:    %d\n", stats.ExactName)
	cmd.Printf("  fuzzy name:    %d\n", stats.FuzzyName)
	cmd.Printf("  exact phone:   %d\n", stats.ExactPhone)
	cmd.Printf("  original phone:%d\n", stats.OriginalPhone)
	cmd.Printf("rescued by phone:%d\n", stats.RescuedByPhone)
	cmd.Printf("unmatched:       %d\n", stats.Unmatched)
	cmd.Printf("empty rows:      %d\n", stats.EmptyData)
}
