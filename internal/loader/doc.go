// Package loader reads query snapshots from JSON, YAML and CUE files.
//
// Every format is converted to the JSON snapshot encoding and decoded with
// queryir.FromJSON, so all three accept the same document shape. YAML is
// converted node by node to keep integer and float literals distinct; CUE
// is evaluated and must be concrete.
package loader
