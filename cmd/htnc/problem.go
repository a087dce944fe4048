package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/gokanplan/internal/compiler"
)

var problemCmd = &cobra.Command{
	Use:   "problem FILE...",
	Short: "Compile problems into runnable Go drivers",
	Long: `Compiles the defproblem forms of each FILE against a domain manifest. Every
problem becomes <out>/<problem>/main.go importing the generated domain package.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestPath, _ := cmd.Flags().GetString("manifest")
		m, err := compiler.LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		emit := compiler.EmitOptions{
			DomainImport: stringFlag(cmd, "domain-import", cfg.DomainImport),
			AllPlans:     cfg.Planner.AllPlans,
		}
		if all, _ := cmd.Flags().GetBool("all"); all {
			emit.AllPlans = true
		}
		return compileProblemFiles(cmd.Context(), args, m, stringFlag(cmd, "out", cfg.OutputDir), emit, logger)
	},
}

func init() {
	rootCmd.AddCommand(problemCmd)
	problemCmd.Flags().StringP("manifest", "m", "", "Manifest written by 'htnc domain'")
	problemCmd.Flags().StringP("out", "o", ".", "Output directory")
	problemCmd.Flags().String("domain-import", "", "Import path of the generated domain package")
	problemCmd.Flags().Bool("all", false, "Generated drivers print every plan")
	_ = problemCmd.MarkFlagRequired("manifest")
}

// compileProblemFiles compiles the files concurrently. The first failure
// cancels the rest.
func compileProblemFiles(ctx context.Context, paths []string, m *compiler.Manifest, out string, emit compiler.EmitOptions, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read problems: %w", err)
			}
			pf, files, err := compiler.CompileProblems(path, src, m, emit, compiler.WithLogger(log))
			if err != nil {
				return err
			}
			if err := compiler.WriteFiles(out, files); err != nil {
				return err
			}
			log.Info("compiled problems", "file", path, "problems", len(pf.Problems), "sets", len(pf.Sets))
			return nil
		})
	}
	return g.Wait()
}
