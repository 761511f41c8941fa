package load

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

// Options tunes record loading.
type Options struct {
	// Constraint, when set, validates every record before insert.
	Constraint *gojsonschema.Schema

	// PrimaryKey names the property to treat as the primary key. A
	// missing string key is generated as a UUID; keys of any other type
	// must be present on every record.
	PrimaryKey string

	// Workers bounds the decode pool for JSONL sources. Values below 2
	// load serially.
	Workers int
}

// CompileConstraint compiles a JSON Schema document (inline text or a
// file path) for use as a load constraint.
func CompileConstraint(source string) (*gojsonschema.Schema, error) {
	var loader gojsonschema.JSONLoader
	if strings.HasPrefix(strings.TrimSpace(source), "{") {
		loader = gojsonschema.NewStringLoader(source)
	} else {
		d, err := NewDecoder(source)
		if err != nil {
			return nil, err
		}
		doc, err := d.Read()
		d.Close()
		if err != nil {
			return nil, errs.IO(err, "reading constraint document %s", source)
		}
		loader = gojsonschema.NewGoLoader(doc)
	}
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, errs.Constraint("invalid constraint document: %v", err)
	}
	return compiled, nil
}

// InferSchema derives an object type layout from decoded records.
// Numbers become int when every observed value is integral and float
// otherwise; strings that all parse as timestamps become timestamps.
// Properties are laid out in name order so inference is deterministic.
func InferSchema(name string, records []map[string]any) (*schema.Schema, error) {
	if len(records) == 0 {
		return nil, errs.Argument("cannot infer a schema from zero records")
	}

	seen := map[string]schema.Type{}
	for _, record := range records {
		for key, value := range record {
			t, err := typeOfValue(value)
			if err != nil {
				return nil, tagInference(err, key)
			}
			if t == schema.Invalid {
				continue // null: keep waiting for a concrete value
			}
			prev, ok := seen[key]
			if !ok || prev == schema.Invalid {
				seen[key] = t
				continue
			}
			merged, ok := mergeTypes(prev, t)
			if !ok {
				return nil, errs.Conversion(key,
					"property '%s' mixes %s and %s values", key, prev, t)
			}
			seen[key] = merged
		}
	}
	if len(seen) == 0 {
		return nil, errs.Argument("records have no properties to infer")
	}

	names := make([]string, 0, len(seen))
	for key := range seen {
		names = append(names, key)
	}
	sort.Strings(names)

	props := make([]schema.Property, 0, len(names))
	for _, key := range names {
		t := seen[key]
		if t == schema.Invalid {
			t = schema.String // only nulls observed
		}
		props = append(props, schema.Property{Name: key, Type: t})
	}
	return schema.New(name, props...)
}

func typeOfValue(v any) (schema.Type, error) {
	switch val := v.(type) {
	case nil:
		return schema.Invalid, nil
	case bool:
		return schema.Bool, nil
	case string:
		if _, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return schema.Timestamp, nil
		}
		return schema.String, nil
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return schema.Int, nil
		}
		return schema.Float, nil
	case float64:
		if val == float64(int64(val)) {
			return schema.Int, nil
		}
		return schema.Float, nil
	}
	return schema.Invalid, errs.Conversion("", "unsupported value of type %T", v)
}

func mergeTypes(a, b schema.Type) (schema.Type, bool) {
	if a == b {
		return a, true
	}
	// Numeric widening.
	if (a == schema.Int && b == schema.Float) || (a == schema.Float && b == schema.Int) {
		return schema.Float, true
	}
	// A timestamp column may contain strings that fail to parse; fall
	// back to plain text rather than rejecting the load.
	if (a == schema.Timestamp && b == schema.String) || (a == schema.String && b == schema.Timestamp) {
		return schema.String, true
	}
	return schema.Invalid, false
}

func tagInference(err error, property string) error {
	var e *errs.Error
	if errors.As(err, &e) && e.Property == "" {
		e.Property = property
	}
	return err
}

// prepare validates a record against the constraint and fills in a
// generated primary key when allowed. The record is mutated in place.
func prepare(s *schema.Schema, record map[string]any, opts Options) error {
	if opts.Constraint != nil {
		result, err := opts.Constraint.Validate(gojsonschema.NewGoLoader(record))
		if err != nil {
			return errs.Constraint("validating record: %v", err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return errs.Constraint("record rejected: %s", strings.Join(msgs, "; "))
		}
	}

	pk := opts.PrimaryKey
	if pk == "" {
		pk, _ = s.PrimaryKey()
	}
	if pk != "" {
		t, ok := s.TypeOf(pk)
		if v, present := record[pk]; ok && (!present || v == nil) {
			if t != schema.String {
				return errs.Argument("record is missing its primary key '%s'", pk)
			}
			record[pk] = uuid.NewString()
		}
	}
	return nil
}

// IntoTable inserts decoded records into t, returning how many were
// stored. Loading stops at the first bad record.
func IntoTable(t *table.Table, records []map[string]any, opts Options) (int, error) {
	for i, record := range records {
		if err := prepare(t.Schema(), record, opts); err != nil {
			return i, err
		}
		if _, err := t.Insert(record); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// FromSource decodes a source into an existing table. JSONL sources are
// decoded on a bounded worker pool when opts.Workers allows it; inserts
// stay serial and in input order either way.
func FromSource(source string, t *table.Table, opts Options) (int, error) {
	d, err := NewDecoder(source)
	if err != nil {
		return 0, err
	}
	defer d.Close()

	if d.IsJSONL() && opts.Workers > 1 {
		return parallelJSONL(t, d, opts)
	}

	records, err := d.ReadAll()
	if err != nil {
		return 0, err
	}
	return IntoTable(t, records, opts)
}

// Open decodes an entire source, infers its schema under the given type
// name, and returns a loaded table.
func Open(source, typeName string, opts Options) (*table.Table, error) {
	d, err := NewDecoder(source)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	records, err := d.ReadAll()
	if err != nil {
		return nil, err
	}
	s, err := InferSchema(typeName, records)
	if err != nil {
		return nil, err
	}
	if opts.PrimaryKey != "" {
		if _, err := s.WithPrimaryKey(opts.PrimaryKey); err != nil {
			return nil, err
		}
	}
	t := table.New(s)
	if _, err := IntoTable(t, records, opts); err != nil {
		return nil, err
	}
	return t, nil
}

// parallelJSONL fans record decoding and validation out to a worker
// pool. Converted rows are buffered per line and inserted serially in
// input order, keeping the table single-writer.
func parallelJSONL(t *table.Table, d *Decoder, opts Options) (int, error) {
	type outcome struct {
		values []table.Value
		err    error
	}

	var lines [][]byte
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, []byte(line))
	}
	if err := d.scanner.Err(); err != nil {
		return 0, errs.IO(err, "reading JSONL source")
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return 0, errs.IO(err, "creating decode pool")
	}
	defer pool.Release()

	outcomes := make([]outcome, len(lines))
	var wg sync.WaitGroup
	for i := range lines {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			record, err := unmarshalRecord(lines[i])
			if err != nil {
				outcomes[i].err = err
				return
			}
			if err := prepare(t.Schema(), record, opts); err != nil {
				outcomes[i].err = err
				return
			}
			values, err := table.ValuesFor(t.Schema(), record)
			if err != nil {
				outcomes[i].err = err
				return
			}
			outcomes[i].values = values
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			outcomes[i].err = errs.IO(err, "submitting decode task")
		}
	}
	wg.Wait()

	inserted := 0
	for _, out := range outcomes {
		if out.err != nil {
			return inserted, out.err
		}
		if _, err := t.InsertValues(out.values); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
