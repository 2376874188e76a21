// Command vctrain trains a voice conversion model with the
// anyvc objective.
//
// Usage:
//
//	vctrain train [flags]
package main

import (
	"fmt"
	"os"

	"github.com/unixpickle/anyvc/cmd/vctrain/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
