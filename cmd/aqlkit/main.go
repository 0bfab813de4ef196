/*
Aqlkit compiles query snapshots to parameterized ArangoDB AQL.

It reads JSON, YAML or CUE snapshots, prints the compiled query with its
bind variables, checks conformance scenarios and keeps named snapshots in a
local SQLite store.
*/
package main

import (
	"fmt"
	"os"

	"github.com/roach88/aqlkit/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
