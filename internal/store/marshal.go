package store

import (
	"fmt"

	"github.com/roach88/aqlkit/internal/ir"
)

// marshalBindVars converts bind variables to JSON TEXT for storage.
// Keys are sorted and number identity (int vs float) is preserved.
func marshalBindVars(vars map[string]any) (string, error) {
	if vars == nil {
		return "{}", nil
	}
	n, err := ir.Normalize(vars)
	if err != nil {
		return "", fmt.Errorf("marshal bind vars: %w", err)
	}
	data, err := ir.MarshalValue(n)
	if err != nil {
		return "", fmt.Errorf("marshal bind vars: %w", err)
	}
	return string(data), nil
}

// unmarshalBindVars parses stored JSON TEXT back into bind variables.
// Integers decode as int64 so values > 2^53 keep their precision.
func unmarshalBindVars(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	v, err := ir.DecodeValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal bind vars: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unmarshal bind vars: expected object, got %T", v)
	}
	return m, nil
}
