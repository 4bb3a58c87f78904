// Command schema prints the JSON Schemas for the engine's wire types.
// With no arguments it writes every schema to stdout separated by
// newlines; with a name it prints just that schema.
package main

import (
	"fmt"
	"os"

	"chronoscope/server/internal/contract"
)

func main() {
	names := contract.Names()
	if len(os.Args) > 1 {
		names = os.Args[1:]
	}
	for _, name := range names {
		payload, err := contract.Encode(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("// %s\n%s\n", name, payload)
	}
}
