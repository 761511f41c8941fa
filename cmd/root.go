package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bisegni/liveset/pkg/config"
	"github.com/bisegni/liveset/pkg/results"
)

var (
	OutputFormat    string
	OutputPretty    bool
	Verbose         bool
	LoadWorkers     int
	TypeName        string
	PrimaryKey      string
	SortSpec        string
	TakeSnapshot    bool
	InteractiveMode bool
	QueryArgs       []string

	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "liveset [file|JSON|-] [predicate]",
	Short: "Live query views over JSON and JSONL data",
	Long: `liveset loads JSON and JSONL files into typed in-memory tables and runs
predicate queries over them. Views are live: they track inserts, updates
and deletes on the table until you freeze them with a snapshot.

Supports:
  - File paths: liveset data.json "age > 21"
  - Stdin: cat data.json | liveset - "age > 21"  (or omit the filename)
  - Inline JSON: liveset '[{"name":"Alice","age":30}]' "age > 21"

Examples:
  liveset data.json "age > 21 AND name BEGINSWITH 'A'"
  liveset data.jsonl "score >= $0" --arg 80 --sort "score:desc"
  cat data.json | liveset "active == true"
  liveset repl data.json
  liveset watch events.jsonl "level == 'error'"`,
	Args: cobra.RangeArgs(0, 2),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load("LIVESET_")
		if err != nil {
			return err
		}
		cfg = loaded
		if !cmd.Flags().Changed("format") {
			OutputFormat = cfg.Format
		}
		if !cmd.Flags().Changed("pretty") {
			OutputPretty = cfg.Pretty
		}
		if !cmd.Flags().Changed("workers") {
			LoadWorkers = cfg.Workers
		}
		if !cmd.Flags().Changed("verbose") {
			Verbose = cfg.Verbose
		}
		if Verbose {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			results.SetLogger(logger)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if InteractiveMode {
			var source string
			if len(args) > 0 {
				source = args[0]
			} else if hasStdin {
				source = "-"
			} else {
				return fmt.Errorf("interactive mode requires a file or stdin input")
			}
			return RunREPL(source)
		}

		var source, predicate string
		if len(args) == 0 {
			if !hasStdin {
				return cmd.Help()
			}
			source = "-"
		} else if len(args) == 1 {
			if hasStdin {
				// The lone argument is the predicate, data is on stdin.
				source = "-"
				predicate = args[0]
			} else {
				source = args[0]
			}
		} else {
			source = args[0]
			predicate = args[1]
		}

		return RunQuery(source, predicate)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&OutputFormat, "format", "json", "Output format (json or jsonl)")
	rootCmd.PersistentFlags().BoolVar(&OutputPretty, "pretty", false, "Pretty print output")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Log view evaluations to stderr")
	rootCmd.PersistentFlags().IntVar(&LoadWorkers, "workers", 4, "Worker pool size for JSONL decoding")
	rootCmd.PersistentFlags().StringVarP(&TypeName, "type", "t", "Record", "Object type name for loaded data")
	rootCmd.PersistentFlags().StringVarP(&PrimaryKey, "key", "k", "", "Property to treat as the primary key")
	rootCmd.PersistentFlags().StringVar(&SortSpec, "sort", "", "Sort order, e.g. \"name:asc,age:desc\"")
	rootCmd.PersistentFlags().BoolVar(&TakeSnapshot, "snapshot", false, "Freeze the view before printing")
	rootCmd.PersistentFlags().BoolVarP(&InteractiveMode, "interactive", "i", false, "Interactive REPL mode")
	rootCmd.PersistentFlags().StringArrayVar(&QueryArgs, "arg", nil, "Value for the next placeholder, starting at $0 (repeatable)")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(sqliteCmd)
}
