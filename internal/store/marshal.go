package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/logicsim/internal/ir"
)

// marshalUnsettled serializes the unsettled signal list to canonical JSON.
// A nil list is stored as "[]".
func marshalUnsettled(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := ir.MarshalCanonical(names)
	if err != nil {
		return "", fmt.Errorf("marshal unsettled: %w", err)
	}
	return string(data), nil
}

// unmarshalUnsettled parses a stored unsettled list.
// Always returns a non-nil slice.
func unmarshalUnsettled(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal unsettled: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
