package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Entries     int               `json:"entries"`
	Flows       int               `json:"flows"`
	FinalDigest string            `json:"final_digest"`
	LiveDigest  string            `json:"live_digest"`
	Match       bool              `json:"match"`
	Mismatches  []engine.Mismatch `json:"mismatches"`
	verbose     bool
}

func (r ReplayResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "Replay Summary: %d entries in %d flow(s)\n", r.Entries, r.Flows)
	if r.verbose {
		fmt.Fprintf(w, "  Replayed digest: %s\n", r.FinalDigest)
		fmt.Fprintf(w, "  Stored digest:   %s\n", r.LiveDigest)
	}
	fmt.Fprintln(w)

	if r.Match {
		fmt.Fprintln(w, "OK: journal replays to the stored state")
		return
	}
	for _, m := range r.Mismatches {
		fmt.Fprintf(w, "  seq %d %s: want %s, got %s\n", m.Seq, m.Field, m.Want, m.Got)
	}
	fmt.Fprintln(w, "FAILED: replay diverged from the journal")
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Rebuild the registry from its genesis state by re-applying every
journal entry in seq order.

Each entry's outcome case, result and state digest must be reproduced
exactly, and the final replayed state must equal the stored state.

Exit codes:
  0 - Replay reproduced the journal
  1 - Replay diverged (mismatches are listed)
  2 - Command error (database not found, etc.)

Examples:
  rankvault replay --db ./vault.db
  rankvault replay --db ./vault.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(commandContext(cmd), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	eng, st, err := openEngine(ctx, opts.Database, opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	rr, err := eng.Replay(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}
	flows, err := st.ListFlowTokens(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list flow tokens", err)
	}

	result := ReplayResult{
		Entries:     rr.Entries,
		Flows:       len(flows),
		FinalDigest: rr.FinalDigest,
		LiveDigest:  rr.LiveDigest,
		Match:       rr.OK(),
		Mismatches:  rr.Mismatches,
		verbose:     opts.Verbose,
	}
	if result.Mismatches == nil {
		result.Mismatches = []engine.Mismatch{}
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	if result.Match {
		return formatter.Success(result)
	}
	msg := fmt.Sprintf("replay diverged at %d point(s)", len(result.Mismatches))
	if err := formatter.Failure("E_DETERMINISM", msg, result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}
