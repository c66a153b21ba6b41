package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// EncodeJSON renders a value for storage in a JSON text column. Nil slices
// and maps store as NULL so the column stays distinguishable from an empty
// list.
func EncodeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	if string(encoded) == "null" {
		return nil, nil
	}
	return string(encoded), nil
}

// DecodeJSON reads a JSON text column into dst. NULL and empty are left as
// dst's zero value.
func DecodeJSON(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}
