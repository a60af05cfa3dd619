// Package export renders tabular admin data as PDF, Excel, CSV or JSON.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

type Format string

const (
	PDF   Format = "pdf"
	Excel Format = "xlsx"
	CSV   Format = "csv"
	JSON  Format = "json"
)

// Table is the in-memory shape every writer consumes.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return PDF, nil
	case "xlsx", "excel", "xls":
		return Excel, nil
	case "csv":
		return CSV, nil
	case "json", "":
		return JSON, nil
	}
	return "", fmt.Errorf("formato no soportado: %s", s)
}

func (f Format) ContentType() string {
	switch f {
	case PDF:
		return "application/pdf"
	case Excel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case CSV:
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

func (f Format) Extension() string {
	if f == "" {
		return string(JSON)
	}
	return string(f)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Filename builds "<base>_<yyyy-mm-dd>.<ext>" with a filesystem-safe base.
func Filename(base string, f Format, now time.Time) string {
	b := strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_")
	if b == "" {
		b = "export"
	}
	return fmt.Sprintf("%s_%s.%s", b, now.Format("2006-01-02"), f.Extension())
}

// ObjectsToTable projects objects onto keys. Missing and nil values become "".
func ObjectsToTable(title string, objects []map[string]any, keys, headers []string) Table {
	if len(headers) != len(keys) {
		headers = keys
	}
	t := Table{Title: title, Headers: headers, Rows: make([][]string, 0, len(objects))}
	for _, o := range objects {
		row := make([]string, len(keys))
		for i, k := range keys {
			if v, ok := o[k]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Write renders t in format f. JSON output encodes raw when it is non-nil.
func Write(w io.Writer, f Format, t Table, raw any) error {
	switch f {
	case PDF:
		return WritePDF(w, t, time.Now())
	case Excel:
		return WriteExcel(w, t)
	case CSV:
		return WriteCSV(w, t)
	}
	if raw == nil {
		raw = t.objects()
	}
	return WriteJSON(w, raw)
}

func (t Table) objects() []map[string]string {
	res := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		o := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				o[h] = row[i]
			}
		}
		res = append(res, o)
	}
	return res
}
