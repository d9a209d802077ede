package models

import (
	"encoding/json"
	"fmt"
)

// marshalJSONB encodes v for a JSONB column.
func marshalJSONB(v interface{}, what string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", what, err)
	}
	return data, nil
}

// scanJSONB decodes a JSONB column value into dest. NULL leaves dest untouched.
func scanJSONB(value interface{}, dest interface{}, what string) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported %s type %T", what, value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
