package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bisegni/liveset/pkg/load"
)

var validateSchema string

var validateCmd = &cobra.Command{
	Use:   "validate [file|-]",
	Short: "Validate JSON/JSONL file syntax and constraints",
	Long: `Validate that a JSON or JSONL file has correct syntax. With --schema,
every record is also checked against a JSON Schema document.

Supports:
  - File paths: liveset validate data.json
  - Stdin: cat data.json | liveset validate

Examples:
  liveset validate data.json
  liveset validate data.jsonl --schema person.schema.json
  cat data.json | liveset validate`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "JSON Schema document to check records against")
}

func runValidate(cmd *cobra.Command, args []string) error {
	source := "-"
	if len(args) > 0 {
		source = args[0]
	}

	d, err := load.NewDecoder(source)
	if err != nil {
		return err
	}
	defer d.Close()

	records, err := d.ReadAll()
	if err != nil {
		fmt.Printf("❌ Validation failed: %v\n", err)
		return err
	}

	format := "JSON"
	if d.IsJSONL() {
		format = "JSONL"
	}

	if validateSchema == "" {
		fmt.Printf("✅ Valid %s file with %d record(s)\n", format, len(records))
		return nil
	}

	constraint, err := load.CompileConstraint(validateSchema)
	if err != nil {
		return err
	}

	bad := 0
	for i, record := range records {
		result, err := constraint.Validate(gojsonschema.NewGoLoader(record))
		if err != nil {
			return err
		}
		if !result.Valid() {
			bad++
			if bad <= 5 {
				for _, desc := range result.Errors() {
					fmt.Printf("❌ record %d: %s\n", i, desc)
				}
			}
		}
	}
	if bad > 5 {
		fmt.Printf("   ... and %d more invalid record(s)\n", bad-5)
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d record(s) failed schema validation", bad, len(records))
	}
	fmt.Printf("✅ Valid %s file, all %d record(s) satisfy the schema\n", format, len(records))
	return nil
}
