// Command lls wraps the user's shell in a PTY with an LLM-driven
// command-synthesis overlay.
package main

import (
	"fmt"
	"os"

	"github.com/kaixinguo360/lls/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
