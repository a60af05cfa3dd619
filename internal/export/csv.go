package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV prefixes a BOM so spreadsheet apps detect UTF-8.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
