// Command posctl parses IVOA SIAv2 POS strings, locally or against a running
// region-server, and prints the resulting regions as JSON.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "posctl: %v\n", err)
		os.Exit(1)
	}
}
