package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/engine"
	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// RegistryView is the show output without an id: collection identity and
// every live record.
type RegistryView struct {
	Name          string      `json:"name"`
	Symbol        string      `json:"symbol"`
	BaseURI       string      `json:"base_uri"`
	Administrator string      `json:"administrator"`
	NextID        uint64      `json:"next_id"`
	LastEpoch     uint64      `json:"last_epoch"`
	Records       []ir.Object `json:"records"`
}

func (v RegistryView) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s (%s)  admin=%s\n", v.Name, v.Symbol, v.Administrator)
	fmt.Fprintf(w, "Next id: %d  Last epoch: %d\n", v.NextID, v.LastEpoch)
	fmt.Fprintln(w)
	if len(v.Records) == 0 {
		fmt.Fprintln(w, "  (no records)")
		return
	}
	for _, rec := range v.Records {
		writeRecordLine(w, rec)
	}
}

// RecordView is the show output for a single record.
type RecordView struct {
	Record ir.Object `json:"record"`
	URI    string    `json:"uri"`
}

func (v RecordView) writeText(w io.Writer) {
	writeRecordLine(w, v.Record)
	fmt.Fprintf(w, "  uri: %s\n", v.URI)
}

func writeRecordLine(w io.Writer, rec ir.Object) {
	fmt.Fprintf(w, "  #%v %v owner=%v %v days=%v exp=%v rank=%v\n",
		ir.ToAny(rec["id"]), ir.ToAny(rec["name"]), ir.ToAny(rec["owner"]),
		ir.ToAny(rec["state"]), ir.ToAny(rec["days_to_lock"]),
		ir.ToAny(rec["experience"]), ir.ToAny(rec["rank"]))
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show persisted records",
		Long: `Show the persisted registry state. With an id, show that one record
and its URI; without, list the collection and every live record.

Examples:
  rankvault show --db ./vault.db
  rankvault show 3 --db ./vault.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(commandContext(cmd), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, args []string, cmd *cobra.Command) error {
	st, err := openStore(ctx, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := newFormatter(opts.RootOptions, cmd)

	if len(args) == 0 {
		state, err := st.LoadState(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load state", err)
		}
		view := RegistryView{
			Name:          state.Collection.Name,
			Symbol:        state.Collection.Symbol,
			BaseURI:       state.Collection.BaseURI,
			Administrator: string(state.Collection.Administrator),
			NextID:        uint64(state.NextID),
			LastEpoch:     uint64(state.LastEpoch),
			Records:       make([]ir.Object, len(state.Records)),
		}
		for i, rec := range state.Records {
			view.Records[i] = engine.RecordObject(rec)
		}
		return formatter.Success(view)
	}

	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid record id", err)
	}

	// Restore gives the same URI rule the uri action uses.
	state, err := st.LoadState(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load state", err)
	}
	reg, err := registry.Restore(state)
	if err != nil {
		return WrapExitError(ExitCommandError, "stored state is corrupt", err)
	}
	rec, err := reg.Record(registry.TokenID(id))
	if err != nil {
		code, _ := registry.Case(err)
		msg := err.Error()
		if ferr := formatter.Error(code, msg, nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, msg)
	}
	uri, err := reg.URI(rec.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build uri", err)
	}
	return formatter.Success(RecordView{Record: engine.RecordObject(rec), URI: uri})
}
