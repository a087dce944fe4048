package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/compiler"
)

var domainCmd = &cobra.Command{
	Use:   "domain FILE",
	Short: "Compile a domain into a Go package and manifest",
	Long: `Compiles a defdomain form into <out>/<package>/<package>.go and writes the
manifest <out>/<package>/<package>.yaml that problem compilation needs.
Domains calling native functions also get <out>/<package>/natives.go, written
once with placeholders to implement.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := stringFlag(cmd, "out", cfg.OutputDir)
		emit := compiler.EmitOptions{Package: stringFlag(cmd, "package", cfg.Package)}
		if err := compileDomainFile(args[0], out, emit, logger); err != nil {
			return err
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchDomain(ctx, args[0], out, emit, logger)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(domainCmd)
	domainCmd.Flags().StringP("out", "o", ".", "Output directory")
	domainCmd.Flags().String("package", "", "Go package name (default derived from the domain name)")
	domainCmd.Flags().BoolP("watch", "w", false, "Recompile whenever the domain file changes")
}

func compileDomainFile(path, out string, emit compiler.EmitOptions, log *slog.Logger) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read domain: %w", err)
	}
	def, files, err := compiler.CompileDomain(path, src, emit, compiler.WithLogger(log))
	if err != nil {
		return err
	}
	if err := compiler.WriteFiles(out, files); err != nil {
		return err
	}
	stub, err := compiler.NativeStub(def, emit)
	if err != nil {
		return err
	}
	written, err := compiler.WriteNewFiles(out, stub)
	if err != nil {
		return err
	}
	for _, name := range written {
		log.Info("wrote native function placeholders", "file", filepath.Join(out, name), "natives", def.Natives)
	}
	log.Info("compiled domain", "domain", def.Name, "file", path, "out", out,
		"operators", len(def.Operators), "methods", len(def.Methods), "axioms", len(def.Axioms))
	return nil
}

// watchDomain recompiles path on every write until ctx is done. Compile
// errors are logged and the watch goes on.
func watchDomain(ctx context.Context, path, out string, emit compiler.EmitOptions, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files on save, so watch the directory.
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	log.Info("watching domain", "file", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := compileDomainFile(path, out, emit, log); err != nil {
				log.Error("recompile failed", "file", path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}
