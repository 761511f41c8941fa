package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bisegni/liveset/pkg/load"
	"github.com/bisegni/liveset/pkg/results"
)

var sqliteTable string

var sqliteCmd = &cobra.Command{
	Use:   "sqlite",
	Short: "Move data between JSON sources and SQLite databases",
}

var sqliteImportCmd = &cobra.Command{
	Use:   "import <database> [predicate]",
	Short: "Read a SQLite table and print it as JSON",
	Long: `Read a SQLite table into a typed table and print it. The declared
column types drive the property types, and a single-column primary key
carries over. The persistent query flags apply, so the rows can be
filtered, sorted and snapshotted on the way out.

Examples:
  liveset sqlite import data.db --table sensors
  liveset sqlite import data.db --table sensors --sort "reading:desc" --format jsonl`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSQLiteImport,
}

var sqliteExportCmd = &cobra.Command{
	Use:   "export <database> [file|JSON|-]",
	Short: "Write a JSON/JSONL source into a SQLite table",
	Long: `Load a JSON or JSONL source into a typed table and write it to a
SQLite database, creating the table when it does not exist.

Examples:
  liveset sqlite export data.db metrics.jsonl --table metrics
  cat data.json | liveset sqlite export data.db --table records`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSQLiteExport,
}

func init() {
	sqliteCmd.PersistentFlags().StringVar(&sqliteTable, "table", "", "SQLite table name")
	sqliteCmd.MarkPersistentFlagRequired("table")
	sqliteCmd.AddCommand(sqliteImportCmd)
	sqliteCmd.AddCommand(sqliteExportCmd)
}

func runSQLiteImport(cmd *cobra.Command, args []string) error {
	predicate := ""
	if len(args) > 1 {
		predicate = args[1]
	}

	t, err := load.ImportSQLite(args[0], sqliteTable, TypeName)
	if err != nil {
		return err
	}

	view, err := buildView(t, predicate, QueryArgs)
	if err != nil {
		return err
	}
	return writeResults(os.Stdout, view)
}

func runSQLiteExport(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) > 1 {
		source = args[1]
	}

	t, err := loadSource(source)
	if err != nil {
		return err
	}

	records := collectRecords(results.New(t))
	if err := load.ExportSQLite(args[0], sqliteTable, t.Schema(), records); err != nil {
		return err
	}
	fmt.Printf("Exported %d record(s) to %s\n", len(records), sqliteTable)
	return nil
}
