package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

var statsCmd = &cobra.Command{
	Use:   "stats [file|-]",
	Short: "Show per-property statistics for a JSON/JSONL file",
	Long: `Load a JSON or JSONL file into a typed table and display statistics:
record count, inferred property types, null counts and value ranges.

Supports:
  - File paths: liveset stats data.json
  - Stdin: cat data.json | liveset stats

Examples:
  liveset stats data.json
  liveset stats data.jsonl
  cat data.json | liveset stats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

type propertyStats struct {
	nulls int
	min   table.Value
	max   table.Value
	sum   float64
	seen  bool
}

func runStats(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) > 0 {
		source = args[0]
	}

	t, err := loadSource(source)
	if err != nil {
		return err
	}

	props := t.Schema().Properties()
	stats := make([]propertyStats, len(props))

	t.Scan(func(key int, row table.Row) bool {
		for col, prop := range props {
			v := row.Value(col)
			if v.IsNull() {
				stats[col].nulls++
				continue
			}
			switch prop.Type {
			case schema.Int:
				stats[col].sum += float64(v.Int())
			case schema.Float:
				stats[col].sum += v.Float()
			}
			if !stats[col].seen {
				stats[col].min, stats[col].max = v, v
				stats[col].seen = true
				continue
			}
			if table.Compare(v, stats[col].min) < 0 {
				stats[col].min = v
			}
			if table.Compare(v, stats[col].max) > 0 {
				stats[col].max = v
			}
		}
		return true
	})

	if source == "-" {
		fmt.Printf("Source: <stdin>\n")
	} else {
		fmt.Printf("Source: %s\n", source)
	}
	fmt.Printf("Type: %s\n", t.Name())
	fmt.Printf("Rows: %d\n", t.Len())

	fmt.Printf("\nProperties:\n")
	total := t.Len()
	for col, prop := range props {
		fmt.Printf("  %s (%s):\n", prop.Name, prop.Type)
		st := stats[col]
		present := total - st.nulls
		if total > 0 {
			fmt.Printf("    present: %d (%.1f%%)\n", present, float64(present)/float64(total)*100)
		}
		if st.nulls > 0 {
			fmt.Printf("    null: %d\n", st.nulls)
		}
		if st.seen && prop.Type != schema.Bool {
			fmt.Printf("    min: %s\n", st.min)
			fmt.Printf("    max: %s\n", st.max)
		}
		if st.seen && (prop.Type == schema.Int || prop.Type == schema.Float) {
			fmt.Printf("    avg: %.2f\n", st.sum/float64(present))
		}
	}

	return nil
}
