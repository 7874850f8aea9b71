// Command neatctl runs NEAT experiments and inspects their stored champions.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
