package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bisegni/liveset/pkg/load"
)

var querySchema string

var queryCmd = &cobra.Command{
	Use:   "query [file|JSON|-] [predicate]",
	Short: "Query a JSON/JSONL file with a predicate",
	Long: `Query a JSON or JSONL file with a predicate over its properties.

Predicates compare properties against literals or $n placeholders bound
from --arg values. Comparisons: ==, !=, <, <=, >, >=, BEGINSWITH,
ENDSWITH, CONTAINS, combined with AND, OR, NOT and parentheses.

Each --arg value is read as JSON, so 80 binds as a number and true as a
boolean; values that are not valid JSON bind as strings. The first --arg
is $0, the second $1, and so on.

Supports:
  - File paths: liveset query data.json "age > 21"
  - Stdin: cat data.json | liveset query - "age > 21"
  - Inline JSON: liveset query '[{"age":30}]' "age > 21"

Examples:
  liveset query data.json "age > 21 AND active == true"
  liveset query data.jsonl "name BEGINSWITH $0" --arg Ali
  liveset query data.json "score >= $0" --arg 80 --sort "score:desc"
  liveset query data.json "joined > $0" --arg 2024-01-01T00:00:00Z
  liveset query data.json --snapshot`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&querySchema, "schema", "", "JSON Schema document records must satisfy while loading")
}

func runQuery(cmd *cobra.Command, args []string) error {
	stat, _ := os.Stdin.Stat()
	hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

	source := "-"
	predicate := ""
	switch len(args) {
	case 1:
		if hasStdin {
			// The lone argument is the predicate, data is on stdin.
			predicate = args[0]
		} else {
			source = args[0]
		}
	case 2:
		source = args[0]
		predicate = args[1]
	}

	opts := load.Options{PrimaryKey: PrimaryKey, Workers: LoadWorkers}
	if querySchema != "" {
		constraint, err := load.CompileConstraint(querySchema)
		if err != nil {
			return err
		}
		opts.Constraint = constraint
	}

	t, err := load.Open(source, TypeName, opts)
	if err != nil {
		return err
	}

	view, err := buildView(t, predicate, QueryArgs)
	if err != nil {
		return err
	}
	return writeResults(os.Stdout, view)
}

// RunQuery backs the root command's default routing.
func RunQuery(source, predicate string) error {
	t, err := loadSource(source)
	if err != nil {
		return err
	}
	view, err := buildView(t, predicate, QueryArgs)
	if err != nil {
		return err
	}
	return writeResults(os.Stdout, view)
}
