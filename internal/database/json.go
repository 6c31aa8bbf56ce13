package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// JsonColumn allows a JSON-aggregated SQL column (e.g. a JSONB_AGG of
// joined rows) to be scanned directly into a typed Go value.
type JsonColumn[T any] struct {
	val *T
}

func (j *JsonColumn[T]) Scan(src any) error {
	if src == nil {
		j.val = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return errors.New("incompatible type for JsonColumn")
	}

	var value T
	if err := json.Unmarshal(source, &value); err != nil {
		return fmt.Errorf("failed to unmarshal JsonColumn: %w", err)
	}

	j.val = &value
	return nil
}

func (j JsonColumn[T]) Value() (driver.Value, error) {
	if j.val == nil {
		return nil, nil
	}

	return json.Marshal(*j.val)
}

// Get returns the scanned value, or nil if the column was NULL.
func (j *JsonColumn[T]) Get() *T {
	return j.val
}
