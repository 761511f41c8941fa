package load

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

func TestInferSchema(t *testing.T) {
	records := []map[string]any{
		{"name": "Alice", "age": float64(30), "score": 91.5, "active": true, "joined": "2024-01-15T09:30:00Z"},
		{"name": "Bob", "age": float64(25), "score": 78.0, "active": false, "joined": "2024-03-02T14:00:00Z"},
	}

	s, err := InferSchema("Person", records)
	if err != nil {
		t.Fatalf("InferSchema failed: %v", err)
	}

	want := map[string]schema.Type{
		"active": schema.Bool,
		"age":    schema.Int,
		"joined": schema.Timestamp,
		"name":   schema.String,
		"score":  schema.Float,
	}
	if s.Len() != len(want) {
		t.Fatalf("Expected %d properties, got %d", len(want), s.Len())
	}
	for name, wantType := range want {
		got, ok := s.TypeOf(name)
		if !ok {
			t.Errorf("Expected property %s to exist", name)
			continue
		}
		if got != wantType {
			t.Errorf("Property %s: expected %s, got %s", name, wantType, got)
		}
	}

	// Properties come out in name order so repeated loads agree.
	props := s.Properties()
	for i := 1; i < len(props); i++ {
		if props[i-1].Name >= props[i].Name {
			t.Errorf("Properties out of order: %s before %s", props[i-1].Name, props[i].Name)
		}
	}
}

func TestInferSchemaPromotions(t *testing.T) {
	t.Run("IntThenFloat", func(t *testing.T) {
		records := []map[string]any{
			{"n": float64(1)},
			{"n": 2.5},
		}
		s, err := InferSchema("T", records)
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := s.TypeOf("n"); got != schema.Float {
			t.Errorf("Expected float after promotion, got %s", got)
		}
	})

	t.Run("TimestampThenPlainString", func(t *testing.T) {
		records := []map[string]any{
			{"s": "2024-01-15T09:30:00Z"},
			{"s": "not a date"},
		}
		s, err := InferSchema("T", records)
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := s.TypeOf("s"); got != schema.String {
			t.Errorf("Expected string after demotion, got %s", got)
		}
	})

	t.Run("NullsThenValue", func(t *testing.T) {
		records := []map[string]any{
			{"v": nil},
			{"v": float64(7)},
		}
		s, err := InferSchema("T", records)
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := s.TypeOf("v"); got != schema.Int {
			t.Errorf("Expected int, got %s", got)
		}
	})

	t.Run("OnlyNulls", func(t *testing.T) {
		records := []map[string]any{{"v": nil}}
		s, err := InferSchema("T", records)
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := s.TypeOf("v"); got != schema.String {
			t.Errorf("Expected string for all-null property, got %s", got)
		}
	})

	t.Run("MixedKinds", func(t *testing.T) {
		records := []map[string]any{
			{"v": true},
			{"v": float64(1)},
		}
		if _, err := InferSchema("T", records); err == nil {
			t.Error("Expected error for bool/int mix, got nil")
		}
	})

	t.Run("NoRecords", func(t *testing.T) {
		if _, err := InferSchema("T", nil); !errs.IsKind(err, errs.KindArgument) {
			t.Errorf("Expected argument error, got %v", err)
		}
	})
}

func TestOpen(t *testing.T) {
	source := `[
		{"id": 1, "name": "laptop", "price": 999.5},
		{"id": 2, "name": "mouse", "price": 19.9},
		{"id": 3, "name": "keyboard", "price": 49.0}
	]`

	tbl, err := Open(source, "Product", Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if tbl.Name() != "Product" {
		t.Errorf("Expected type name Product, got %s", tbl.Name())
	}
	if tbl.Len() != 3 {
		t.Errorf("Expected 3 rows, got %d", tbl.Len())
	}

	row, ok := tbl.Row(1)
	if !ok {
		t.Fatal("Expected row 1 to be attached")
	}
	name, err := row.Get("name")
	if err != nil {
		t.Fatal(err)
	}
	if name.Str() != "mouse" {
		t.Errorf("Expected name mouse, got %s", name.Str())
	}
}

func TestOpenGeneratesPrimaryKeys(t *testing.T) {
	source := `[{"sku": "a", "qty": 1}, {"qty": 2}]`

	tbl, err := Open(source, "Item", Options{PrimaryKey: "sku"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if pk, ok := tbl.Schema().PrimaryKey(); !ok || pk != "sku" {
		t.Fatalf("Expected primary key sku, got %q", pk)
	}

	row, _ := tbl.Row(1)
	sku, err := row.Get("sku")
	if err != nil {
		t.Fatal(err)
	}
	if sku.IsNull() || sku.Str() == "" {
		t.Error("Expected generated key for record missing its primary key")
	}
	if sku.Str() == "a" {
		t.Error("Generated key collided with an explicit one")
	}
}

func TestOpenMissingIntPrimaryKey(t *testing.T) {
	source := `[{"id": 1, "qty": 1}, {"qty": 2}]`

	_, err := Open(source, "Item", Options{PrimaryKey: "id"})
	if err == nil {
		t.Fatal("Expected error for record missing an int primary key")
	}
	if !errs.IsKind(err, errs.KindArgument) {
		t.Errorf("Expected argument error, got %v", err)
	}
}

func TestLoadConstraint(t *testing.T) {
	constraint, err := CompileConstraint(`{
		"type": "object",
		"required": ["name"],
		"properties": {"qty": {"type": "integer", "minimum": 0}}
	}`)
	if err != nil {
		t.Fatalf("CompileConstraint failed: %v", err)
	}

	s := schema.MustNew("Item",
		schema.Property{Name: "name", Type: schema.String},
		schema.Property{Name: "qty", Type: schema.Int},
	)
	tbl := table.New(s)

	records := []map[string]any{
		{"name": "ok", "qty": float64(3)},
		{"qty": float64(-1)},
	}
	n, err := IntoTable(tbl, records, Options{Constraint: constraint})
	if !errs.IsKind(err, errs.KindConstraint) {
		t.Fatalf("Expected constraint error, got %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 record stored before rejection, got %d", n)
	}
}

func TestCompileConstraintInvalid(t *testing.T) {
	if _, err := CompileConstraint(`{"type": 42}`); !errs.IsKind(err, errs.KindConstraint) {
		t.Errorf("Expected constraint error for bad document, got %v", err)
	}
}

func TestFromSourceParallel(t *testing.T) {
	tmpDir := t.TempDir()
	jsonlFile := filepath.Join(tmpDir, "events.jsonl")

	var content string
	for i := 0; i < 200; i++ {
		content += fmt.Sprintf(`{"seq": %d, "tag": "ev-%d"}`+"\n", i, i)
	}
	if err := os.WriteFile(jsonlFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := schema.MustNew("Event",
		schema.Property{Name: "seq", Type: schema.Int},
		schema.Property{Name: "tag", Type: schema.String},
	)
	tbl := table.New(s)

	n, err := FromSource(jsonlFile, tbl, Options{Workers: 4})
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}
	if n != 200 {
		t.Fatalf("Expected 200 rows, got %d", n)
	}

	// Parallel decoding must not reorder inserts.
	for key := 0; key < 200; key++ {
		row, ok := tbl.Row(key)
		if !ok {
			t.Fatalf("Expected row %d to be attached", key)
		}
		seq, err := row.Get("seq")
		if err != nil {
			t.Fatal(err)
		}
		if seq.Int() != int64(key) {
			t.Errorf("Row %d: expected seq %d, got %d", key, key, seq.Int())
		}
	}
}

func TestFromSourceSerial(t *testing.T) {
	s := schema.MustNew("Event",
		schema.Property{Name: "seq", Type: schema.Int},
		schema.Property{Name: "tag", Type: schema.String},
	)
	tbl := table.New(s)

	n, err := FromSource(`[{"seq": 0, "tag": "a"}, {"seq": 1, "tag": "b"}]`, tbl, Options{})
	if err != nil {
		t.Fatalf("FromSource failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}
}

func TestFromSourceParallelBadLine(t *testing.T) {
	tmpDir := t.TempDir()
	jsonlFile := filepath.Join(tmpDir, "bad.jsonl")

	content := `{"seq": 0, "tag": "a"}
{"seq": "not a number", "tag": "b"}
{"seq": 2, "tag": "c"}
`
	if err := os.WriteFile(jsonlFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := schema.MustNew("Event",
		schema.Property{Name: "seq", Type: schema.Int},
		schema.Property{Name: "tag", Type: schema.String},
	)
	tbl := table.New(s)

	n, err := FromSource(jsonlFile, tbl, Options{Workers: 4})
	if err == nil {
		t.Fatal("Expected error for bad line, got nil")
	}
	if n != 1 {
		t.Errorf("Expected 1 row inserted before the bad line, got %d", n)
	}
}

func TestInferAndLoadTimestamps(t *testing.T) {
	source := `[{"at": "2024-01-15T09:30:00Z"}, {"at": "2024-06-01T00:00:00Z"}]`

	tbl, err := Open(source, "Ping", Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	row, _ := tbl.Row(0)
	at, err := row.Get("at")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	if !at.Time().Equal(want) {
		t.Errorf("Expected %v, got %v", want, at.Time())
	}
}
