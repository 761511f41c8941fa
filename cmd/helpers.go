package cmd

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/load"
	"github.com/bisegni/liveset/pkg/results"
	"github.com/bisegni/liveset/pkg/table"
)

// loadSource reads a JSON/JSONL source into a typed table using the
// persistent flags for type name, primary key and workers.
func loadSource(source string) (*table.Table, error) {
	return load.Open(source, TypeName, load.Options{
		PrimaryKey: PrimaryKey,
		Workers:    LoadWorkers,
	})
}

// buildView turns a loaded table plus the predicate/sort/snapshot flags
// into a results view.
func buildView(t *table.Table, predicate string, args []string) (*results.Results, error) {
	view := results.New(t)

	if strings.TrimSpace(predicate) != "" {
		filtered, err := view.Filtered(predicate, queryArgs(args)...)
		if err != nil {
			return nil, err
		}
		view = filtered
	}

	if SortSpec != "" {
		descriptors, err := parseSortSpec(SortSpec)
		if err != nil {
			return nil, err
		}
		sorted, err := view.Sorted(descriptors...)
		if err != nil {
			return nil, err
		}
		view = sorted
	}

	if TakeSnapshot {
		view = view.Snapshot()
	}
	return view, nil
}

// parseSortSpec parses "name:asc,age:desc" into sort descriptors. The
// direction defaults to ascending.
func parseSortSpec(spec string) ([]results.Descriptor, error) {
	var descriptors []results.Descriptor
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, direction, found := strings.Cut(part, ":")
		d := results.Descriptor{Property: strings.TrimSpace(name), Ascending: true}
		if found {
			switch strings.ToLower(strings.TrimSpace(direction)) {
			case "asc":
			case "desc":
				d.Ascending = false
			default:
				return nil, errs.Argument("sort direction must be asc or desc, got '%s'", direction)
			}
		}
		descriptors = append(descriptors, d)
	}
	if len(descriptors) == 0 {
		return nil, errs.Argument("sort spec '%s' names no properties", spec)
	}
	return descriptors, nil
}

// queryArgs converts --arg flag values into typed placeholder arguments.
// Each value is decoded as JSON when possible so numbers, booleans and
// null keep their types; everything else stays a string.
func queryArgs(raw []string) []any {
	args := make([]any, len(raw))
	for i, s := range raw {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil && !dec.More() {
			args[i] = v
			continue
		}
		args[i] = s
	}
	return args
}

// collectRecords renders the view's current rows in order, skipping
// rows deleted out from under a snapshot.
func collectRecords(view *results.Results) []table.Record {
	records := make([]table.Record, 0, view.Size())
	view.Each(func(i int, row table.Row, attached bool) bool {
		if attached {
			records = append(records, row.Record())
		}
		return true
	})
	return records
}

// writeResults prints the view honoring the format and pretty flags.
func writeResults(w io.Writer, view *results.Results) error {
	records := collectRecords(view)
	if strings.ToLower(OutputFormat) == "jsonl" {
		return load.WriteJSONL(w, records, OutputPretty)
	}
	return load.WriteJSON(w, records, OutputPretty)
}
