package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/metrics"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database   string
	Prometheus bool
}

// CallCount is the number of journaled calls for one action and case.
type CallCount struct {
	Action string `json:"action"`
	Case   string `json:"case"`
	Count  int64  `json:"count"`
}

// StatsResult summarizes a registry database.
type StatsResult struct {
	LastSeq     int64       `json:"last_seq"`
	LiveRecords int         `json:"live_records"`
	NextID      uint64      `json:"next_id"`
	LastEpoch   uint64      `json:"last_epoch"`
	Flows       int         `json:"flows"`
	Calls       []CallCount `json:"calls"`
}

func (r StatsResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "Last seq:     %d\n", r.LastSeq)
	fmt.Fprintf(w, "Live records: %d\n", r.LiveRecords)
	fmt.Fprintf(w, "Next id:      %d\n", r.NextID)
	fmt.Fprintf(w, "Last epoch:   %d\n", r.LastEpoch)
	fmt.Fprintf(w, "Flows:        %d\n", r.Flows)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Calls ===")
	if len(r.Calls) == 0 {
		fmt.Fprintln(w, "  (no calls)")
	}
	for _, c := range r.Calls {
		fmt.Fprintf(w, "  %-16s %-24s %d\n", c.Action, c.Case, c.Count)
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the journal",
		Long: `Summarize a registry database: journal length, live records, and the
number of journaled calls per action and outcome case.

With --prometheus the same figures are written in the Prometheus text
exposition format, suitable for a node_exporter textfile collector.

Examples:
  rankvault stats --db ./vault.db
  rankvault stats --db ./vault.db --prometheus > rankvault.prom`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(commandContext(cmd), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Prometheus, "prometheus", false, "write Prometheus text format")

	return cmd
}

func runStats(ctx context.Context, opts *StatsOptions, cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// The engine seeds the live-record and seq gauges when it opens.
	eng, st, err := openEngine(ctx, opts.Database, opts.RootOptions, cmd, m)
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.CaseCounts(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count calls", err)
	}
	flows, err := st.ListFlowTokens(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list flow tokens", err)
	}

	state := eng.State()
	result := StatsResult{
		LastSeq:     eng.Seq(),
		LiveRecords: len(state.Records),
		NextID:      uint64(state.NextID),
		LastEpoch:   uint64(state.LastEpoch),
		Flows:       len(flows),
		Calls:       make([]CallCount, len(counts)),
	}
	for i, c := range counts {
		result.Calls[i] = CallCount{Action: c.Action, Case: c.Case, Count: c.Count}
		m.Calls.WithLabelValues(c.Action, c.Case).Add(float64(c.Count))
	}

	if opts.Prometheus {
		return writePrometheus(cmd.OutOrStdout(), reg)
	}
	return newFormatter(opts.RootOptions, cmd).Success(result)
}

// writePrometheus writes every gathered family in text exposition format.
func writePrometheus(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to gather metrics", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
