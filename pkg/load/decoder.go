// Package load moves records between external sources and tables: JSON
// and JSONL decoding with schema inference, document constraints, and a
// SQLite bridge for import/export.
package load

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/bisegni/liveset/pkg/errs"
)

// Decoder reads records from a JSON or JSONL source.
//
// Sources are resolved like a shell tool would: "-" (or the empty string)
// reads stdin, text starting with '{' or '[' is treated as inline JSON,
// anything else is a file path with JSONL detected by extension. Numbers
// are decoded as json.Number so large integers survive the trip.
type Decoder struct {
	file    *os.File
	isJSONL bool
	tmp     string

	decoder   *json.Decoder
	scanner   *bufio.Scanner
	bufReader *bufio.Reader

	startChecked bool
	inArray      bool
}

// NewDecoder opens a source for reading.
func NewDecoder(source string) (*Decoder, error) {
	var file *os.File
	var isJSONL bool
	var tmp string

	switch {
	case len(source) > 0 && (source[0] == '{' || source[0] == '['):
		// Inline JSON: spool to a temp file so the streaming logic
		// only ever deals with files.
		handle, err := os.CreateTemp("", "liveset-inline-*.json")
		if err != nil {
			return nil, errs.IO(err, "creating temp file for inline JSON")
		}
		tmp = handle.Name()
		if _, err := handle.WriteString(source); err != nil {
			handle.Close()
			os.Remove(tmp)
			return nil, errs.IO(err, "writing inline JSON")
		}
		if _, err := handle.Seek(0, 0); err != nil {
			handle.Close()
			os.Remove(tmp)
			return nil, errs.IO(err, "rewinding inline JSON")
		}
		file = handle
	case source == "" || source == "-":
		file = os.Stdin
	default:
		var err error
		file, err = os.Open(source)
		if err != nil {
			return nil, errs.IO(err, "opening %s", source)
		}
		isJSONL = strings.HasSuffix(source, ".jsonl")
	}

	d := &Decoder{file: file, isJSONL: isJSONL, tmp: tmp}
	d.initReader()
	return d, nil
}

func (d *Decoder) initReader() {
	if d.isJSONL {
		d.scanner = bufio.NewScanner(d.file)
		d.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		return
	}
	d.bufReader = bufio.NewReader(d.file)
	d.decoder = json.NewDecoder(d.bufReader)
	d.decoder.UseNumber()
}

// IsJSONL reports whether the source is treated as JSON Lines.
func (d *Decoder) IsJSONL() bool {
	return d.isJSONL
}

// Close releases the underlying file and any temp spool.
func (d *Decoder) Close() error {
	err := d.file.Close()
	if d.tmp != "" {
		os.Remove(d.tmp)
	}
	return err
}

// Read returns the next record, io.EOF at the end of the source. A JSON
// source may hold a single object, an array of objects, or a stream of
// objects.
func (d *Decoder) Read() (map[string]any, error) {
	if d.isJSONL {
		return d.readLine()
	}

	if !d.startChecked {
		// Peek past leading whitespace to see whether the document is
		// an array. The opening bracket must go through the decoder's
		// own Token call or it will reject the commas between elements.
		for {
			b, err := d.bufReader.Peek(1)
			if err != nil {
				if err == io.EOF {
					return nil, io.EOF
				}
				return nil, errs.IO(err, "reading JSON source")
			}
			c := b[0]
			if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
				d.bufReader.ReadByte()
				continue
			}
			if c == '[' {
				if _, err := d.decoder.Token(); err != nil {
					return nil, errs.IO(err, "reading JSON array")
				}
				d.inArray = true
			}
			d.startChecked = true
			break
		}
	}

	if d.inArray && !d.decoder.More() {
		t, err := d.decoder.Token()
		if err != nil {
			return nil, errs.IO(err, "reading JSON array")
		}
		if delim, ok := t.(json.Delim); ok && delim == ']' {
			d.inArray = false
			return nil, io.EOF
		}
		return nil, errs.IO(nil, "expected end of JSON array, got %v", t)
	}

	var record map[string]any
	if err := d.decoder.Decode(&record); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errs.IO(err, "decoding JSON record")
	}
	return record, nil
}

func (d *Decoder) readLine() (map[string]any, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		record, err := unmarshalRecord([]byte(line))
		if err != nil {
			return nil, err
		}
		return record, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, errs.IO(err, "reading JSONL source")
	}
	return nil, io.EOF
}

// ReadAll drains the source.
func (d *Decoder) ReadAll() ([]map[string]any, error) {
	var records []map[string]any
	for {
		record, err := d.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func unmarshalRecord(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, errs.IO(err, "decoding JSONL record")
	}
	return record, nil
}
