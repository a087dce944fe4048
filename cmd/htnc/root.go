package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/config"
	"github.com/gitrdm/gokanplan/internal/logging"
)

var (
	cfg    = config.Default()
	logger = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "htnc",
	Short: "htnc compiles HTN planning domains and problems",
	Long: `htnc reads domain and problem descriptions written in the SHOP-style
planning language and turns them into Go packages, or plans them directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		level, err := logging.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		cfg = c
		logger = logging.New(level)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// stringFlag returns the flag value when it was set on the command line
// and fallback otherwise.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return fallback
}
