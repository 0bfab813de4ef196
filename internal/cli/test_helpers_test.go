package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const adultsSnapshot = `{
  "variable": "u",
  "source": "users",
  "filters": [
    {"type": "binary", "op": ">=", "left": {"type": "reference", "name": "u.age"}, "right": {"type": "literal", "value": 18}},
    {"type": "binary", "op": "==", "left": {"type": "reference", "name": "u.active"}, "right": {"type": "parameter", "name": "active"}}
  ],
  "returnValue": {"type": "reference", "name": "u"}
}`

const adultsQuery = "FOR u IN users\nFILTER (u.age >= @value0)\nFILTER (u.active == @active)\nRETURN u"

const adultsYAML = `variable: u
source: users
filters:
  - {type: binary, op: ">=", left: {type: reference, name: u.age}, right: {type: literal, value: 21}}
returnValue: {type: reference, name: u}
`

// Negative limit and an unsafe variable name: two problems at once.
const invalidSnapshot = `{
  "variable": "u x",
  "source": "users",
  "limit": -1,
  "returnValue": {"type": "reference", "name": "u"}
}`

const undecodableSnapshot = `{"variable": "u", "source": "users", "returnValue": {"name": "u"}}`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
