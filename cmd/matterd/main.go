// matterd runs a single Matter device node.
//
// Usage:
//
//	matterd serve [flags]
//	matterd show-payload [flags]
package main

import (
	"os"

	"github.com/mkniffen/matterd/cmd/matterd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
