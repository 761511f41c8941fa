package load

import (
	"encoding/json"
	"io"

	"github.com/bisegni/liveset/pkg/table"
)

// WriteJSON writes records as a JSON array
func WriteJSON(w io.Writer, records []table.Record, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(records)
}

// WriteJSONL writes records as JSON Lines
func WriteJSONL(w io.Writer, records []table.Record, pretty bool) error {
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}
