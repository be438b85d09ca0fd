package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/engine"
	"github.com/roach88/rankvault/internal/metrics"
	"github.com/roach88/rankvault/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rankvault CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rankvault",
		Short: "rankvault - asset registry with locks, experience and ranks",
		Long: `A registry of owned asset records that can be locked for a number of
days, accrue experience while locked, rank up, and be killed into another
record. Every call is journaled in a local SQLite database and can be
replayed from genesis.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Logger returns the structured logger for a command. Records go to the
// command's stderr; --verbose lowers the level from warn to debug.
func (o *RootOptions) Logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens an existing, initialized database. Both a missing file
// and a store without a collection are command errors.
func openStore(ctx context.Context, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	ok, err := st.Initialized(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if !ok {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "database has no collection (run rankvault init)", store.ErrNotInitialized)
	}
	return st, nil
}

// openEngine opens the store at path and an engine on top of it. The
// caller closes the returned store.
func openEngine(ctx context.Context, path string, opts *RootOptions, cmd *cobra.Command, m *metrics.Metrics) (*engine.Engine, *store.Store, error) {
	st, err := openStore(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.Open(ctx, st,
		engine.WithLogger(opts.Logger(cmd)),
		engine.WithMetrics(m),
	)
	if err != nil {
		st.Close()
		var rerr *engine.RuntimeError
		if errors.As(err, &rerr) {
			return nil, nil, WrapExitError(ExitCommandError, "stored state is corrupt", err)
		}
		return nil, nil, WrapExitError(ExitCommandError, "failed to open engine", err)
	}
	return eng, st, nil
}
