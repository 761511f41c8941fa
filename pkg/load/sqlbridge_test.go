package load

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

func TestSQLiteRoundTrip(t *testing.T) {
	s := schema.MustNew("Sensor",
		schema.Property{Name: "id", Type: schema.Int},
		schema.Property{Name: "label", Type: schema.String},
		schema.Property{Name: "reading", Type: schema.Float},
		schema.Property{Name: "ok", Type: schema.Bool},
		schema.Property{Name: "seen", Type: schema.Timestamp},
	)
	if _, err := s.WithPrimaryKey("id"); err != nil {
		t.Fatal(err)
	}

	seen := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	src := table.New(s)
	rows := []map[string]any{
		{"id": 1, "label": "north", "reading": 21.5, "ok": true, "seen": seen},
		{"id": 2, "label": "south", "reading": 19.0, "ok": false, "seen": seen.Add(time.Hour)},
		{"id": 3, "label": nil, "reading": nil, "ok": nil, "seen": nil},
	}
	for _, row := range rows {
		if _, err := src.Insert(row); err != nil {
			t.Fatal(err)
		}
	}

	var records []table.Record
	src.Scan(func(key int, row table.Row) bool {
		records = append(records, row.Record())
		return true
	})

	path := filepath.Join(t.TempDir(), "sensors.db")
	if err := ExportSQLite(path, "sensors", s, records); err != nil {
		t.Fatalf("ExportSQLite failed: %v", err)
	}

	got, err := ImportSQLite(path, "sensors", "Sensor")
	if err != nil {
		t.Fatalf("ImportSQLite failed: %v", err)
	}

	if got.Len() != 3 {
		t.Fatalf("Expected 3 rows, got %d", got.Len())
	}

	wantTypes := map[string]schema.Type{
		"id":      schema.Int,
		"label":   schema.String,
		"reading": schema.Float,
		"ok":      schema.Bool,
		"seen":    schema.Timestamp,
	}
	for name, want := range wantTypes {
		if typ, ok := got.Schema().TypeOf(name); !ok || typ != want {
			t.Errorf("Property %s: expected %s, got %s", name, want, typ)
		}
	}

	if pk, ok := got.Schema().PrimaryKey(); !ok || pk != "id" {
		t.Errorf("Expected primary key id to carry over, got %q", pk)
	}

	row, ok := got.Row(0)
	if !ok {
		t.Fatal("Expected row 0 to be attached")
	}
	label, _ := row.Get("label")
	if label.Str() != "north" {
		t.Errorf("Expected label north, got %s", label.Str())
	}
	reading, _ := row.Get("reading")
	if reading.Float() != 21.5 {
		t.Errorf("Expected reading 21.5, got %v", reading.Float())
	}
	okVal, _ := row.Get("ok")
	if !okVal.Bool() {
		t.Error("Expected ok true")
	}
	seenVal, _ := row.Get("seen")
	if !seenVal.Time().Equal(seen) {
		t.Errorf("Expected seen %v, got %v", seen, seenVal.Time())
	}

	nullRow, _ := got.Row(2)
	for _, prop := range []string{"label", "reading", "ok", "seen"} {
		v, err := nullRow.Get(prop)
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsNull() {
			t.Errorf("Expected %s to stay null, got %v", prop, v)
		}
	}
}

func TestImportSQLiteMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	s := schema.MustNew("T", schema.Property{Name: "x", Type: schema.Int})
	if err := ExportSQLite(path, "present", s, nil); err != nil {
		t.Fatal(err)
	}

	_, err := ImportSQLite(path, "absent", "T")
	if !errs.IsKind(err, errs.KindTypeNotFound) {
		t.Errorf("Expected type not found error, got %v", err)
	}
}

func TestQuoteIdentRejectsInjection(t *testing.T) {
	bad := []string{`x"; DROP TABLE y; --`, "a b", "", "1x", "x-y"}
	for _, name := range bad {
		if _, err := quoteIdent(name); err == nil {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
	if q, err := quoteIdent("sensor_readings"); err != nil || q != `"sensor_readings"` {
		t.Errorf("Expected quoted identifier, got %q (%v)", q, err)
	}
}
