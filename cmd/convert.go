package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bisegni/liveset/pkg/load"
	"github.com/bisegni/liveset/pkg/results"
)

var convertTo string

var convertCmd = &cobra.Command{
	Use:   "convert [file|-]",
	Short: "Convert between JSON and JSONL formats",
	Long: `Convert a file between JSON and JSONL formats. Records pass through a
typed table, so properties come out in a stable order and timestamps in
RFC 3339 form.

Examples:
  liveset convert data.json --to jsonl
  liveset convert data.jsonl --to json --pretty
  cat data.json | liveset convert --to jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", "", "Target format (json or jsonl)")
	convertCmd.MarkFlagRequired("to")
}

func runConvert(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) > 0 {
		source = args[0]
	}

	t, err := loadSource(source)
	if err != nil {
		return err
	}

	records := collectRecords(results.New(t))
	if strings.ToLower(convertTo) == "jsonl" {
		return load.WriteJSONL(os.Stdout, records, OutputPretty)
	}
	return load.WriteJSON(os.Stdout, records, OutputPretty)
}
