// Package output serializes validated records to files. It is a collaborator
// of the pipeline core, not part of it; the core only ever emits records.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/user/extraction-pipeline/internal/entity"
)

// Writer consumes records one at a time and finalizes the file on Close.
type Writer interface {
	Write(record entity.ValidatedRecord) error
	Close() error
}

// NewWriter builds a writer for the given format ("json" or "csv").
func NewWriter(format string, w io.Writer, fieldOrder []string) (Writer, error) {
	switch format {
	case "json":
		return newJSONWriter(w), nil
	case "csv":
		return newCSVWriter(w, fieldOrder)
	default:
		return nil, fmt.Errorf("output: unknown format %q", format)
	}
}

// jsonWriter buffers records and writes one indented JSON array on Close,
// matching the shape downstream tooling already consumes.
type jsonWriter struct {
	w       io.Writer
	records []outputRecord
}

func newJSONWriter(w io.Writer) *jsonWriter {
	return &jsonWriter{w: w, records: []outputRecord{}}
}

func (j *jsonWriter) Write(record entity.ValidatedRecord) error {
	j.records = append(j.records, outputRecord{
		ID:      record.ID,
		Fields:  record.Fields,
		PageURL: record.Source.PageURL,
		Page:    record.Source.Page,
	})
	return nil
}

func (j *jsonWriter) Close() error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.records)
}

type outputRecord struct {
	ID      string         `json:"id,omitempty"`
	Fields  map[string]any `json:"fields"`
	PageURL string         `json:"page_url"`
	Page    int            `json:"page"`
}

// csvWriter emits one row per record with a fixed column order.
type csvWriter struct {
	w       *csv.Writer
	columns []string
}

func newCSVWriter(w io.Writer, fieldOrder []string) (*csvWriter, error) {
	if len(fieldOrder) == 0 {
		return nil, fmt.Errorf("output: csv needs a field order")
	}
	cw := &csvWriter{w: csv.NewWriter(w), columns: fieldOrder}
	if err := cw.w.Write(fieldOrder); err != nil {
		return nil, err
	}
	return cw, nil
}

func (c *csvWriter) Write(record entity.ValidatedRecord) error {
	row := make([]string, len(c.columns))
	for i, col := range c.columns {
		switch v := record.Fields[col].(type) {
		case string:
			row[i] = v
		case float64:
			row[i] = strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			row[i] = ""
		default:
			row[i] = fmt.Sprint(v)
		}
	}
	return c.w.Write(row)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
