package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/compiler"
)

var checkCmd = &cobra.Command{
	Use:   "check DOMAIN [PROBLEMS...]",
	Short: "Parse a domain and its problems without writing anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(args[0], args[1:], cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(domainPath string, problemPaths []string, w io.Writer, log *slog.Logger) error {
	src, err := os.ReadFile(domainPath)
	if err != nil {
		return fmt.Errorf("failed to read domain: %w", err)
	}
	def, err := compiler.ParseDomain(domainPath, src, compiler.WithLogger(log))
	if err != nil {
		return err
	}
	d, err := def.Build()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s\n", domainPath, d.Describe())

	m := def.Manifest()
	for _, path := range problemPaths {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read problems: %w", err)
		}
		pf, err := compiler.ParseProblems(path, src, m, compiler.WithLogger(log))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d problems, %d problem sets\n", path, len(pf.Problems), len(pf.Sets))
	}
	return nil
}
