package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of htnc",
	Run: func(cmd *cobra.Command, args []string) {
		info := htn.GetVersionInfo()
		fmt.Fprintf(cmd.OutOrStdout(), "htnc version %s (%s)\n", info.Version, info.GoVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
