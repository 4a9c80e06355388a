package nl2sql

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecutionResult carries rows for read statements and an affected-row count
// for everything else.
type ExecutionResult struct {
	Success      bool   `json:"success"`
	Rows         []Row  `json:"data"`
	AffectedRows *int64 `json:"affected_rows,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Row is one result row. It encodes as a JSON object whose keys follow the
// result set's column order.
type Row struct {
	Columns []string
	Values  []any
}

func (r Row) Get(column string) (any, bool) {
	for i, name := range r.Columns {
		if name == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", column, err)
		}
		var value any
		if i < len(r.Values) {
			value = r.Values[i]
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the encoded object. Numbers decode as
// json.Number.
func (r *Row) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode row: expected object")
	}

	columns := make([]string, 0)
	values := make([]any, 0)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("decode row key: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("decode row: expected string key")
		}
		var value any
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("decode row value %q: %w", key, err)
		}
		columns = append(columns, key)
		values = append(values, value)
	}
	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	r.Columns = columns
	r.Values = values
	return nil
}

func rowsFromResult(columns []string, values [][]any) []Row {
	rows := make([]Row, 0, len(values))
	for _, value := range values {
		rows = append(rows, Row{Columns: columns, Values: value})
	}
	return rows
}
