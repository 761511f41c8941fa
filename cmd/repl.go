package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/bisegni/liveset/pkg/load"
	"github.com/bisegni/liveset/pkg/results"
	"github.com/bisegni/liveset/pkg/table"
)

var replCmd = &cobra.Command{
	Use:   "repl [file|JSON|-]",
	Short: "Explore a source interactively",
	Long: `Start an interactive session over a JSON/JSONL source. Views built
with filter and sort stay live against the loaded table, so insert, set
and delete show up immediately; snapshot freezes the current view.

Type 'help' inside the session for the command list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := "-"
		if len(args) > 0 {
			source = args[0]
		}
		return RunREPL(source)
	},
}

type replSession struct {
	registry *table.Registry
	table    *table.Table
	view     *results.Results
}

// RunREPL starts an interactive session over a source. Views built with
// filter/sort stay live against the loaded table, so insert, set and
// delete show up on the next size/show; snapshot freezes the current
// view.
func RunREPL(source string) error {
	fmt.Println("Interactive mode enabled. Type 'help' for commands, 'exit' to leave.")
	if source == "-" {
		fmt.Println("Reading from stdin...")
	} else {
		fmt.Printf("Reading from file: %s\n", source)
	}

	session := &replSession{registry: table.NewRegistry()}
	if err := session.open(source, TypeName); err != nil {
		return err
	}
	fmt.Printf("Loaded %d record(s) into type '%s'\n", session.table.Len(), session.table.Name())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     cfg.History,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			break
		}

		if err := session.eval(trimmed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return nil
}

func (s *replSession) open(source, typeName string) error {
	t, err := load.Open(source, typeName, load.Options{
		PrimaryKey: PrimaryKey,
		Workers:    LoadWorkers,
	})
	if err != nil {
		return err
	}
	// Reusing a type name replaces the previous registration.
	s.registry.Remove(typeName)
	if err := s.registry.Register(t); err != nil {
		return err
	}
	s.table = t
	s.view = results.New(t)
	return nil
}

func (s *replSession) eval(line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "help":
		printREPLHelp()
		return nil

	case "use":
		name, typeName, _ := strings.Cut(rest, " ")
		if name == "" {
			return fmt.Errorf("usage: use <file|type> [type]")
		}
		// An already registered type name switches without reloading.
		if t, err := s.registry.Lookup(name); err == nil {
			s.table = t
			s.view = results.New(t)
			fmt.Printf("Using type '%s' (%d rows)\n", t.Name(), t.Len())
			return nil
		}
		typeName = strings.TrimSpace(typeName)
		if typeName == "" {
			typeName = TypeName
		}
		if err := s.open(name, typeName); err != nil {
			return err
		}
		fmt.Printf("Loaded %d record(s) into type '%s'\n", s.table.Len(), s.table.Name())
		return nil

	case "load":
		if rest == "" {
			return fmt.Errorf("usage: load <file|JSON|->")
		}
		n, err := load.FromSource(rest, s.table, load.Options{Workers: LoadWorkers})
		if err != nil {
			return err
		}
		fmt.Printf("Appended %d record(s)\n", n)
		return nil

	case "tables":
		for _, name := range s.registry.Names() {
			t, err := s.registry.Lookup(name)
			if err != nil {
				continue
			}
			marker := " "
			if t == s.table {
				marker = "*"
			}
			fmt.Printf("%s %s (%d rows)\n", marker, name, t.Len())
		}
		return nil

	case "type":
		return s.printType()

	case "size":
		fmt.Println(s.view.Size())
		return nil

	case "get":
		i, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: get <index>")
		}
		row, attached, err := s.view.Get(i)
		if err != nil {
			return err
		}
		if !attached {
			fmt.Println("(deleted)")
			return nil
		}
		return printRecord(row.Record(), OutputPretty)

	case "show":
		limit := 10
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil {
				return fmt.Errorf("usage: show [count]")
			}
			limit = n
		}
		return s.show(limit)

	case "filter":
		if rest == "" {
			return fmt.Errorf("usage: filter <predicate>")
		}
		view, err := s.view.Filtered(rest)
		if err != nil {
			return err
		}
		s.view = view
		fmt.Printf("%d row(s) match\n", s.view.Size())
		return nil

	case "sort":
		descriptors, err := parseSortSpec(rest)
		if err != nil {
			return err
		}
		view, err := s.view.Sorted(descriptors...)
		if err != nil {
			return err
		}
		s.view = view
		return nil

	case "snapshot":
		s.view = s.view.Snapshot()
		fmt.Printf("Snapshot frozen at %d row(s)\n", s.view.Size())
		return nil

	case "reset":
		s.view = results.New(s.table)
		fmt.Printf("%d row(s) visible\n", s.view.Size())
		return nil

	case "insert":
		record, err := decodeObject(rest)
		if err != nil {
			return err
		}
		key, err := s.table.Insert(record)
		if err != nil {
			return err
		}
		fmt.Printf("Inserted row %d\n", key)
		return nil

	case "set":
		fields := strings.SplitN(rest, " ", 3)
		if len(fields) != 3 {
			return fmt.Errorf("usage: set <key> <property> <value>")
		}
		key, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("usage: set <key> <property> <value>")
		}
		return s.table.Set(key, fields[1], decodeScalar(fields[2]))

	case "delete":
		key, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: delete <key>")
		}
		if err := s.table.Delete(key); err != nil {
			return err
		}
		fmt.Printf("Deleted row %d\n", key)
		return nil

	case "explain":
		fmt.Printf("predicate: %s\n", s.view.Query().String())
		fmt.Printf("mode:      %s\n", s.view.Mode())
		fmt.Printf("size:      %d\n", s.view.Size())
		fmt.Printf("version:   %d\n", s.table.Version())
		return nil

	default:
		return fmt.Errorf("unknown command '%s', try 'help'", verb)
	}
}

func (s *replSession) printType() error {
	sc := s.table.Schema()
	fmt.Printf("type %s:\n", sc.Name())
	for _, prop := range sc.Properties() {
		suffix := ""
		if pk, ok := sc.PrimaryKey(); ok && pk == prop.Name {
			suffix = " (primary key)"
		}
		fmt.Printf("  %-16s %s%s\n", prop.Name, prop.Type, suffix)
	}
	return nil
}

func (s *replSession) show(limit int) error {
	shown := 0
	s.view.Each(func(i int, row table.Row, attached bool) bool {
		if !attached {
			return true
		}
		if err := printRecord(row.Record(), false); err != nil {
			return false
		}
		shown++
		return shown < limit
	})
	if remaining := s.view.Size() - shown; remaining > 0 {
		fmt.Printf("... %d more row(s)\n", remaining)
	}
	return nil
}

func printRecord(rec table.Record, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(rec, "", "  ")
	} else {
		data, err = json.Marshal(rec)
	}
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("insert needs a JSON object: %w", err)
	}
	return record, nil
}

// decodeScalar reads a value the way --arg values are read: JSON when
// possible, string otherwise.
func decodeScalar(text string) any {
	return queryArgs([]string{text})[0]
}

func printREPLHelp() {
	fmt.Print(`Commands:
  use <file|type> [type]   Load a source (or switch to a loaded type)
  load <file|JSON|->       Append records to the current table
  tables                   List loaded types
  type                     Show the current type's properties
  size                     Row count of the current view
  get <index>              Print the row at a view index
  show [count]             Print the first rows of the view (default 10)
  filter <predicate>       Narrow the view, e.g. filter age > 21
  sort <spec>              Order the view, e.g. sort name:asc,age:desc
  snapshot                 Freeze the view's current rows
  reset                    Back to a live view of all rows
  insert <json>            Insert an object into the table
  set <key> <prop> <value> Update one property of a row
  delete <key>             Delete a row (snapshots keep its slot)
  explain                  Show predicate, mode, size and table version
  exit                     Leave
`)
}
