package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/straye-as/labelling-app/internal/domain"
)

type member struct {
	key   string
	value json.RawMessage
}

// readObject decodes a JSON object keeping member order
func readObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object")
	}

	var members []member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode parses a table from JSON. Two layouts are accepted:
//   - "columns": {"col": {"rowID": value, ...}, ...} or {"col": [values...]}
//   - "split":   {"columns": [...], "data": [[...], ...]} with rows numbered from 0
func Decode(data []byte) (*Table, error) {
	members, err := readObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	for _, m := range members {
		if m.key == "data" {
			return decodeSplit(members)
		}
	}
	return decodeColumns(members)
}

func decodeSplit(members []member) (*Table, error) {
	var columns []string
	var rows []json.RawMessage
	for _, m := range members {
		switch m.key {
		case "columns":
			if err := json.Unmarshal(m.value, &columns); err != nil {
				return nil, fmt.Errorf("%w: columns: %v", domain.ErrInvalidInput, err)
			}
		case "data":
			if err := json.Unmarshal(m.value, &rows); err != nil {
				return nil, fmt.Errorf("%w: data: %v", domain.ErrInvalidInput, err)
			}
		}
	}

	t := New(columns...)
	for i, raw := range rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domain.ErrInvalidInput, i, err)
		}
		if len(cells) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", domain.ErrInvalidInput, i, len(cells), len(columns))
		}
		values := make([]any, len(cells))
		for j, c := range cells {
			v, err := decodeValue(c)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %v", domain.ErrInvalidInput, i, err)
			}
			values[j] = v
		}
		t.AddRowOrdered(strconv.Itoa(i), columns, values)
	}
	return t, nil
}

func decodeColumns(members []member) (*Table, error) {
	t := New()
	for _, m := range members {
		t.EnsureColumn(m.key)

		trimmed := bytes.TrimSpace(m.value)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var cells []json.RawMessage
			if err := json.Unmarshal(trimmed, &cells); err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", domain.ErrInvalidInput, m.key, err)
			}
			for i, c := range cells {
				v, err := decodeValue(c)
				if err != nil {
					return nil, fmt.Errorf("%w: column %s: %v", domain.ErrInvalidInput, m.key, err)
				}
				t.AddRow(strconv.Itoa(i), nil)
				t.setCell(m.key, strconv.Itoa(i), v)
			}
			continue
		}

		cells, err := readObject(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", domain.ErrInvalidInput, m.key, err)
		}
		for _, c := range cells {
			v, err := decodeValue(c.value)
			if err != nil {
				return nil, fmt.Errorf("%w: column %s: %v", domain.ErrInvalidInput, m.key, err)
			}
			t.AddRow(c.key, nil)
			t.setCell(m.key, c.key, v)
		}
	}
	return t, nil
}

// MarshalJSON writes the table in the "columns" layout with null for empty
// cells, columns and rows in table order
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for ci, col := range t.columns {
		if ci > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, col); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		values := t.cells[col]
		for ri, id := range t.rowIDs {
			if ri > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(&buf, id); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeJSON(&buf, values[id]); err != nil {
				return nil, fmt.Errorf("column %s row %s: %w", col, id, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the table with the decoded content
func (t *Table) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		buf.WriteString("null")
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
