package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/compiler"
	"github.com/gitrdm/gokanplan/internal/metrics"
	"github.com/gitrdm/gokanplan/pkg/htn"
	"github.com/gitrdm/gokanplan/pkg/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan DOMAIN PROBLEMS",
	Short: "Plan problems in-process without generating code",
	Long: `Parses DOMAIN and PROBLEMS, builds the runtime tables directly and prints the
plans found for each problem. --problem selects one problem or problem set.
Domains that call user native functions need the compiled domain package
(htnc domain) and its natives.go instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc := cfg.Planner
		if cmd.Flags().Changed("all") {
			pc.AllPlans, _ = cmd.Flags().GetBool("all")
		}
		if cmd.Flags().Changed("limit") {
			pc.PlanLimit, _ = cmd.Flags().GetInt("limit")
		}
		if cmd.Flags().Changed("max-depth") {
			pc.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
		}
		opts := planOptions{
			Planner: &planner.Config{
				MaxDepth:  pc.MaxDepth,
				MaxStack:  pc.MaxStackBytes,
				AllPlans:  pc.AllPlans,
				PlanLimit: pc.PlanLimit,
			},
			Select:      stringFlag(cmd, "problem", ""),
			MetricsAddr: stringFlag(cmd, "metrics-addr", cfg.MetricsAddr),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runPlan(ctx, args[0], args[1], opts, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringP("problem", "p", "", "Plan only this problem or problem set")
	planCmd.Flags().Bool("all", false, "Find every plan instead of the first")
	planCmd.Flags().Int("limit", 0, "Stop after this many plans when --all is set (0 means no limit)")
	planCmd.Flags().Int("max-depth", 0, "Maximum search depth (0 disables the bound)")
	planCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

// errNativesUnavailable is returned by plan for domains that call user
// native functions, which only a compiled domain package can provide.
var errNativesUnavailable = errors.New("native functions are not available in-process")

type planOptions struct {
	Planner     *planner.Config
	Select      string
	MetricsAddr string
}

func runPlan(ctx context.Context, domainPath, problemPath string, opts planOptions, w io.Writer, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	if opts.MetricsAddr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(serveCtx, opts.MetricsAddr, reg, log); err != nil {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	d, pf, err := loadPlanInputs(domainPath, problemPath, collector, log)
	if err != nil {
		return err
	}
	problems, err := selectProblems(pf, opts.Select)
	if err != nil {
		return err
	}

	p := planner.New(d, opts.Planner, planner.WithLogger(log), planner.WithMonitor(collector))
	var failed int
	for _, prob := range problems {
		s, tasks, err := prob.Build(d)
		if err != nil {
			return err
		}
		plans, err := p.FindPlans(ctx, s, tasks)
		switch {
		case errors.Is(err, planner.ErrNoPlan):
			collector.RecordResult(metrics.ResultNone)
			fmt.Fprintf(w, "problem %s: no plan\n", prob.Name)
			failed++
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			collector.RecordResult(metrics.ResultCanceled)
			return err
		case err != nil:
			collector.RecordResult(metrics.ResultError)
			return fmt.Errorf("problem %s: %w", prob.Name, err)
		}
		fmt.Fprintf(w, "problem %s: %d plan(s)\n", prob.Name, len(plans))
		for i, plan := range plans {
			fmt.Fprintf(w, "plan %d:\n%s", i+1, plan.Format(d))
		}
	}

	if opts.MetricsAddr != "" {
		log.Info("planning finished, serving metrics until interrupted", "addr", opts.MetricsAddr)
		<-ctx.Done()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d problems have no plan", failed, len(problems))
	}
	return nil
}

// loadPlanInputs parses and builds the domain, then parses the problems
// against its tables.
func loadPlanInputs(domainPath, problemPath string, collector *metrics.Collector, log *slog.Logger) (*htn.Domain, *compiler.ProblemFile, error) {
	src, err := os.ReadFile(domainPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read domain: %w", err)
	}
	start := time.Now()
	def, err := compiler.ParseDomain(domainPath, src, compiler.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	collector.ObserveCompile("domain", time.Since(start))
	d, err := def.Build()
	if err != nil {
		return nil, nil, err
	}

	src, err = os.ReadFile(problemPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read problems: %w", err)
	}
	start = time.Now()
	pf, err := compiler.ParseProblems(problemPath, src, def.Manifest(), compiler.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	collector.ObserveCompile("problem", time.Since(start))

	natives := [][]string{def.Natives}
	for _, p := range pf.Problems {
		natives = append(natives, p.Natives)
	}
	if missing := compiler.MissingNatives(d.Registry, natives...); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s; compile the domain with 'htnc domain' and implement them in natives.go",
			errNativesUnavailable, strings.Join(missing, ", "))
	}
	return d, pf, nil
}

// selectProblems resolves name to a problem or the members of a problem
// set. An empty name selects every problem.
func selectProblems(pf *compiler.ProblemFile, name string) ([]*compiler.Problem, error) {
	if name == "" {
		return pf.Problems, nil
	}
	if p := pf.Problem(name); p != nil {
		return []*compiler.Problem{p}, nil
	}
	for _, set := range pf.Sets {
		if set.Name != name {
			continue
		}
		out := make([]*compiler.Problem, 0, len(set.Problems))
		for _, member := range set.Problems {
			p := pf.Problem(member)
			if p == nil {
				return nil, fmt.Errorf("problem set %s names unknown problem %s", name, member)
			}
			out = append(out, p)
		}
		return out, nil
	}
	return nil, fmt.Errorf("no problem or problem set named %s", name)
}
