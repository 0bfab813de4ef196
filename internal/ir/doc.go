// Package ir holds the value layer shared by every other package: the
// canonical Go representation of literal values, their exact JSON encoding
// and the canonical form used for fingerprints.
//
// ir imports nothing internal.
//
// Key constraints:
//   - Literal values are nil, bool, string, int64, float64, []any or
//     map[string]any; Normalize converts anything else
//   - int64 and float64 never collapse into each other on a round trip
//   - Object keys are written in UTF-16 code unit order
package ir
