package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// marshalJSON serializes a list or map column, mapping nil to the column's
// empty literal so round-trips stay stable.
func marshalList(v []string) (string, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func unmarshalList(raw string) ([]string, error) {
	var v []string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	if v == nil {
		v = []string{}
	}
	return v, nil
}

func marshalAny(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal column: %w", err)
	}
	return string(data), nil
}

func unmarshalAny(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshal column: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
