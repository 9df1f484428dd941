package results

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/straye-as/labelling-app/internal/domain"
)

// RowIDHeader names the row id column of CSV exports
const RowIDHeader = "row_id"

// ReadCSV parses a header row followed by records. Rows are numbered from 0,
// empty fields are null and numeric fields become numbers.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty CSV file", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	t := New(header...)
	for i := 0; ; i++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, i+2, err)
		}
		values := make([]any, len(header))
		for j := range header {
			if j < len(record) {
				values[j] = parseField(record[j])
			}
		}
		t.AddRowOrdered(strconv.Itoa(i), header, values)
	}
	return t, nil
}

func parseField(s string) any {
	if s == "" {
		return nil
	}
	// NaN and Inf are kept as text so the table stays JSON encodable
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// WriteCSV writes the table with a leading row id column. Lists and objects
// are written as JSON.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{RowIDHeader}, t.columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, id := range t.rowIDs {
		record[0] = id
		for i, col := range t.columns {
			record[i+1] = csvField(t.cells[col][id])
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvField(v any) string {
	switch v.(type) {
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return FormatValue(v)
	}
}
