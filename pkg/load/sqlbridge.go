package load

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", errs.Argument("invalid SQL identifier '%s'", name)
	}
	return `"` + name + `"`, nil
}

// declType maps a SQLite declared column type to a property type,
// following SQLite's affinity rules.
func declType(decl string) schema.Type {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INT"):
		return schema.Int
	case strings.Contains(d, "BOOL"):
		return schema.Bool
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return schema.Float
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return schema.Timestamp
	default:
		return schema.String
	}
}

func sqlType(t schema.Type) string {
	switch t {
	case schema.Int:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.Bool:
		return "BOOLEAN"
	case schema.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// ImportSQLite reads an entire SQLite table into a new in-memory table
// registered under typeName. Column types come from the declared SQL
// types; the first single-column primary key carries over when its type
// allows.
func ImportSQLite(path, tableName, typeName string) (*table.Table, error) {
	quoted, err := quoteIdent(tableName)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, errs.IO(err, "opening %s", path)
	}
	defer db.Close()

	type columnInfo struct {
		Name string `db:"name"`
		Decl string `db:"type"`
		PK   int    `db:"pk"`
	}
	var cols []columnInfo
	if err := db.Select(&cols, "SELECT name, type, pk FROM pragma_table_info($1)", tableName); err != nil {
		return nil, errs.IO(err, "inspecting table %s", tableName)
	}
	if len(cols) == 0 {
		return nil, errs.New(errs.KindTypeNotFound, "table '%s' not found in %s", tableName, path)
	}

	props := make([]schema.Property, 0, len(cols))
	primary := ""
	pkColumns := 0
	for _, col := range cols {
		t := declType(col.Decl)
		props = append(props, schema.Property{Name: col.Name, Type: t})
		if col.PK > 0 {
			pkColumns++
			if col.PK == 1 && (t == schema.String || t == schema.Int) {
				primary = col.Name
			}
		}
	}
	if pkColumns > 1 {
		primary = "" // composite keys do not carry over
	}
	s, err := schema.New(typeName, props...)
	if err != nil {
		return nil, err
	}
	if primary != "" {
		if _, err := s.WithPrimaryKey(primary); err != nil {
			return nil, err
		}
	}

	names := make([]string, len(cols))
	for i, col := range cols {
		if names[i], err = quoteIdent(col.Name); err != nil {
			return nil, err
		}
	}
	rows, err := db.Queryx(fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), quoted))
	if err != nil {
		return nil, errs.IO(err, "reading table %s", tableName)
	}
	defer rows.Close()

	t := table.New(s)
	for rows.Next() {
		m := map[string]any{}
		if err := rows.MapScan(m); err != nil {
			return nil, errs.IO(err, "scanning row from %s", tableName)
		}
		for _, prop := range s.Properties() {
			m[prop.Name] = fromSQL(prop.Type, m[prop.Name])
		}
		if _, err := t.Insert(m); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.IO(err, "reading table %s", tableName)
	}
	return t, nil
}

// fromSQL adjusts driver-native values to what the table layer accepts.
func fromSQL(t schema.Type, v any) any {
	switch val := v.(type) {
	case []byte:
		v = string(val)
	case int64:
		if t == schema.Bool {
			return val != 0
		}
	}
	return v
}

// toSQL adjusts table-native values to driver-friendly ones.
func toSQL(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// ExportSQLite writes records into a SQLite table, creating the table
// from the schema when it does not exist. Records must be in s's
// property order, as produced by Row.Record.
func ExportSQLite(path, tableName string, s *schema.Schema, records []table.Record) error {
	quoted, err := quoteIdent(tableName)
	if err != nil {
		return err
	}

	props := s.Properties()
	names := make([]string, len(props))
	defs := make([]string, len(props))
	marks := make([]string, len(props))
	pk, _ := s.PrimaryKey()
	for i, prop := range props {
		if names[i], err = quoteIdent(prop.Name); err != nil {
			return err
		}
		defs[i] = names[i] + " " + sqlType(prop.Type)
		if prop.Name == pk {
			defs[i] += " PRIMARY KEY"
		}
		marks[i] = fmt.Sprintf("$%d", i+1)
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return errs.IO(err, "opening %s", path)
	}
	defer db.Close()

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoted, strings.Join(defs, ", "))
	if _, err := db.Exec(create); err != nil {
		return errs.IO(err, "creating table %s", tableName)
	}

	tx, err := db.Beginx()
	if err != nil {
		return errs.IO(err, "beginning transaction")
	}
	defer tx.Rollback()

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoted, strings.Join(names, ", "), strings.Join(marks, ", "))
	for _, record := range records {
		args := make([]any, len(props))
		for i, prop := range props {
			v, _ := record.Get(prop.Name)
			args[i] = toSQL(v)
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			return errs.IO(err, "inserting into %s", tableName)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.IO(err, "committing export to %s", tableName)
	}
	return nil
}
