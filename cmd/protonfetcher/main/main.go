package main

import (
	"fmt"
	"os"

	"github.com/WombatFromHell/protonge-fetcher-sub001/cmd/protonfetcher"
	"github.com/pterm/pterm"
)

func main() {
	rootCmd := protonfetcher.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, pterm.Red(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
