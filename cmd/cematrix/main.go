// Package main is the entry point for the cematrix application
package main

import (
	"os"

	"github.com/cematrix/cematrix/cmd"
)

func main() {
	// No arguments launches the interactive menu.
	if len(os.Args) == 1 {
		cmd.RunInteractive()
		return
	}

	cmd.Execute()
}
