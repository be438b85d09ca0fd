package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/engine"
	"github.com/roach88/rankvault/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Database  string
	Caller    string
	Epoch     int64
	Args      string
	FlowToken string
}

// InvokeResult is the outcome of one call.
type InvokeResult struct {
	Action    string    `json:"action"`
	Caller    string    `json:"caller"`
	Epoch     int64     `json:"epoch"`
	Args      ir.Object `json:"args"`
	FlowToken string    `json:"flow_token,omitempty"`
	Seq       int64     `json:"seq,omitempty"`
	Case      string    `json:"case"`
	Result    ir.Object `json:"result"`
}

func (r InvokeResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s %s -> %s\n", r.Action, formatObject(r.Args), r.Case)
	fmt.Fprintf(w, "  Result: %s\n", formatObject(r.Result))
	fmt.Fprintf(w, "  Caller: %s  Epoch: %d\n", r.Caller, r.Epoch)
	if r.Seq > 0 {
		fmt.Fprintf(w, "  Seq:    %d  Flow: %s\n", r.Seq, r.FlowToken)
	}
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Invoke an action on the registry",
		Long: `Invoke one registry action and print its outcome.

Mutating actions are journaled whether they succeed or fail; read actions
are not. The caller defaults to the collection administrator and the epoch
defaults to the last epoch the registry has seen.

Exit code is 1 when the outcome is a failure case and 2 when the call
could not be executed at all (unknown action, bad arguments).

Examples:
  rankvault invoke mint --db ./vault.db --args '{"recipient":"alice","name":"blade"}'
  rankvault invoke lock --db ./vault.db --caller alice --epoch 100 --args '{"id":1,"days":3}'
  rankvault invoke ownerOf --db ./vault.db --args '{"id":1}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(commandContext(cmd), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller identity (default: administrator)")
	cmd.Flags().Int64Var(&opts.Epoch, "epoch", -1, "epoch counter value (default: last seen epoch)")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as JSON")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "flow token to journal under (default: new token)")

	return cmd
}

func invokeAction(ctx context.Context, opts *InvokeOptions, action string, cmd *cobra.Command) error {
	args, err := ir.ParseObject([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	eng, st, err := openEngine(ctx, opts.Database, opts.RootOptions, cmd, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	state := eng.State()
	call := ir.Call{
		Action: action,
		Caller: opts.Caller,
		Epoch:  opts.Epoch,
		Args:   args,
	}
	if call.Caller == "" {
		call.Caller = string(state.Collection.Administrator)
	}
	if opts.Epoch == -1 {
		call.Epoch = int64(state.LastEpoch)
	}

	flowToken := opts.FlowToken
	if flowToken == "" {
		flowToken = eng.NewFlow()
	}

	before := eng.Seq()
	out, err := eng.ExecuteInFlow(ctx, flowToken, call)
	if err != nil {
		var rerr *engine.RuntimeError
		if errors.As(err, &rerr) {
			return WrapExitError(ExitCommandError, "call rejected", err)
		}
		return WrapExitError(ExitCommandError, "call failed", err)
	}

	result := InvokeResult{
		Action: call.Action,
		Caller: call.Caller,
		Epoch:  call.Epoch,
		Args:   args,
		Case:   out.Case,
		Result: out.Result,
	}
	if seq := eng.Seq(); seq != before {
		result.Seq = seq
		result.FlowToken = flowToken
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	if out.OK() {
		return formatter.Success(result)
	}
	if err := formatter.Failure(out.Case, fmt.Sprintf("%s failed with %s", action, out.Case), result); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", action, out.Case))
}
