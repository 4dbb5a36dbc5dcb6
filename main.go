// Package main is the entry point for the tally application
package main

import (
	"github.com/ethpandaops/tally/cmd"
)

func main() {
	cmd.Execute()
}
