// The main package for the vdcrawler executable.
package main

import (
	"github.com/opendatanl/verdragenbank-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
