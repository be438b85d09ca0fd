package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	FlowToken string // optional - restrict to one flow
	Action    string // optional - filter to specific action
}

// TraceEntry is one journal entry in the trace timeline.
type TraceEntry struct {
	Seq         int64     `json:"seq"`
	ID          string    `json:"id"`
	FlowToken   string    `json:"flow_token"`
	Action      string    `json:"action"`
	Caller      string    `json:"caller"`
	Epoch       int64     `json:"epoch"`
	Args        ir.Object `json:"args"`
	Case        string    `json:"case"`
	Result      ir.Object `json:"result"`
	StateDigest string    `json:"state_digest"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string       `json:"flow_token,omitempty"`
	Action    string       `json:"action,omitempty"`
	Timeline  []TraceEntry `json:"timeline"`
	Stats     TraceStats   `json:"stats"`
	verbose   bool
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int `json:"total_entries"`
	Successes    int `json:"successes"`
	Failures     int `json:"failures"`
	Flows        int `json:"flows"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled calls",
		Long: `Show journal entries in seq order.

Every mutating call is journaled with its caller, epoch, arguments,
outcome case and the state digest after the call. Failed calls are
journaled too, with the digest unchanged.

Examples:
  rankvault trace --db ./vault.db
  rankvault trace --db ./vault.db --action lock
  rankvault trace --db ./vault.db --flow 0191d2c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(commandContext(cmd), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "restrict to one flow token")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to specific action")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	st, err := openStore(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := readTraceEntries(ctx, st, opts.FlowToken, opts.Action)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := buildTrace(entries)
	result.FlowToken = opts.FlowToken
	result.Action = opts.Action
	result.verbose = opts.Verbose

	return newFormatter(opts.RootOptions, cmd).Success(result)
}

// readTraceEntries picks the narrowest store query for the filters.
func readTraceEntries(ctx context.Context, st *store.Store, flowToken, action string) ([]ir.Entry, error) {
	switch {
	case flowToken != "":
		entries, err := st.ReadFlow(ctx, flowToken)
		if err != nil || action == "" {
			return entries, err
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Call.Action == action {
				filtered = append(filtered, e)
			}
		}
		return filtered, nil
	case action != "":
		return st.ReadJournalByAction(ctx, action)
	default:
		return st.ReadJournal(ctx)
	}
}

// buildTrace converts journal entries to timeline rows and tallies them.
func buildTrace(entries []ir.Entry) TraceResult {
	result := TraceResult{Timeline: make([]TraceEntry, 0, len(entries))}
	flows := make(map[string]bool)

	for _, e := range entries {
		result.Timeline = append(result.Timeline, TraceEntry{
			Seq:         e.Seq,
			ID:          e.ID,
			FlowToken:   e.FlowToken,
			Action:      e.Call.Action,
			Caller:      e.Call.Caller,
			Epoch:       e.Call.Epoch,
			Args:        e.Call.Args,
			Case:        e.Outcome.Case,
			Result:      e.Outcome.Result,
			StateDigest: e.StateDigest,
		})
		if e.Outcome.OK() {
			result.Stats.Successes++
		} else {
			result.Stats.Failures++
		}
		flows[e.FlowToken] = true
	}

	result.Stats.TotalEntries = len(result.Timeline)
	result.Stats.Flows = len(flows)
	return result
}

func (r TraceResult) writeText(w io.Writer) {
	switch {
	case r.FlowToken != "":
		fmt.Fprintf(w, "Trace for Flow: %s\n", r.FlowToken)
	case r.Action != "":
		fmt.Fprintf(w, "Trace for Action: %s\n", r.Action)
	default:
		fmt.Fprintln(w, "Trace")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range r.Timeline {
		fmt.Fprintf(w, "  [%d] %s %s -> %s %s\n",
			e.Seq, e.Action, formatObject(e.Args), e.Case, formatObject(e.Result))
		if r.verbose {
			fmt.Fprintf(w, "       Caller: %s  Epoch: %d\n", e.Caller, e.Epoch)
			fmt.Fprintf(w, "       ID: %s  Digest: %s\n", truncateID(e.ID), truncateID(e.StateDigest))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", r.Stats.TotalEntries)
	fmt.Fprintf(w, "  Successes:     %d\n", r.Stats.Successes)
	fmt.Fprintf(w, "  Failures:      %d\n", r.Stats.Failures)
	fmt.Fprintf(w, "  Flows:         %d\n", r.Stats.Flows)
}

// formatObject formats an object for display.
// Uses sorted keys to ensure deterministic output.
func formatObject(obj ir.Object) string {
	if len(obj) == 0 {
		return "{}"
	}
	m, _ := ir.ToAny(obj).(map[string]any)
	return formatArgs(m)
}

// formatArgs formats a map of args for display.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
