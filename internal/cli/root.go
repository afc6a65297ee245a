// Package cli defines the ytbs command tree: serve, gencert and tracker.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ytbs/bettersearch/internal/config"
)

// version is set at build time with -ldflags "-X .../internal/cli.version=..."
var version = "dev"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "ytbs",
		Short:         "Tracker Better Search service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ytbs.yaml)")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newGencertCmd(&cfgFile),
		newTrackerCmd(&cfgFile),
	)
	return root
}

// Execute runs the command tree with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig reads the configuration, letting the named flags of cmd
// override their keys, and installs the configured slog logger as default.
func loadConfig(cmd *cobra.Command, cfgFile string, bindings map[string]string) (config.Config, error) {
	flags := make(map[string]*pflag.Flag, len(bindings))
	for key, name := range bindings {
		flags[key] = cmd.Flags().Lookup(name)
	}

	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return cfg, err
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(logger)
	return cfg, nil
}

func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: plainErrors}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// plainErrors logs errors by their message. The text handler formats other
// values with %+v, which prints the stack trace of a pkg/errors error.
func plainErrors(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if err, ok := a.Value.Any().(error); ok {
		return slog.String(a.Key, err.Error())
	}
	return a
}
