// Command rosterboard is the offline companion to the server: it runs the
// same reconciliation and aggregation against local CSV exports, for
// spot-checking a roster before uploading it or debugging a bad match.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "rosterboard",
	Short:         "Reconcile rosters against a directory export, offline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
