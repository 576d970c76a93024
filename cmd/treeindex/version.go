package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/treeindex/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "treeindex %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
