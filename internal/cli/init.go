package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rankvault/internal/config"
	"github.com/roach88/rankvault/internal/registry"
	"github.com/roach88/rankvault/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
	Config   string
}

// InitResult describes a freshly initialized registry.
type InitResult struct {
	Database         string   `json:"database"`
	Name             string   `json:"name"`
	Symbol           string   `json:"symbol"`
	BaseURI          string   `json:"base_uri"`
	Administrator    string   `json:"administrator"`
	EpochsPerDay     uint64   `json:"epochs_per_day"`
	ExperiencePerDay uint64   `json:"experience_per_day"`
	RankThresholds   []uint64 `json:"rank_thresholds"`
	RankUp           string   `json:"rank_up"`
	KillMerge        string   `json:"kill_merge"`
}

func (r InitResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "Initialized %s\n", r.Database)
	fmt.Fprintf(w, "  Collection: %s (%s)\n", r.Name, r.Symbol)
	fmt.Fprintf(w, "  Base URI:   %s\n", r.BaseURI)
	fmt.Fprintf(w, "  Admin:      %s\n", r.Administrator)
	fmt.Fprintf(w, "  Policy:     %d epochs/day, %d exp/day, thresholds %v, rank_up=%s, kill_merge=%s\n",
		r.EpochsPerDay, r.ExperiencePerDay, r.RankThresholds, r.RankUp, r.KillMerge)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a registry database",
		Long: `Create a registry database with the collection identity and policy
from a CUE config file. Without --config the built-in defaults are used.

A database can be initialized only once.

Examples:
  rankvault init --db ./vault.db
  rankvault init --db ./vault.db --config ./vault.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(commandContext(cmd), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file")

	return cmd
}

func runInit(ctx context.Context, opts *InitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd)

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid config", err)
		}
		cfg = loaded
		formatter.VerboseLog("Loaded config from %s", opts.Config)
	}

	reg, err := registry.New(cfg.Collection, cfg.Policy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.Init(ctx, reg.State()); err != nil {
		if errors.Is(err, store.ErrAlreadyInitialized) {
			return WrapExitError(ExitCommandError, "database already initialized", err)
		}
		return WrapExitError(ExitCommandError, "failed to initialize database", err)
	}
	logger.Info("registry initialized",
		"db", opts.Database,
		"name", cfg.Collection.Name,
		"administrator", cfg.Collection.Administrator,
	)

	p := cfg.Policy
	return formatter.Success(InitResult{
		Database:         opts.Database,
		Name:             cfg.Collection.Name,
		Symbol:           cfg.Collection.Symbol,
		BaseURI:          cfg.Collection.BaseURI,
		Administrator:    string(cfg.Collection.Administrator),
		EpochsPerDay:     p.EpochsPerDay,
		ExperiencePerDay: p.ExperiencePerDay,
		RankThresholds:   p.RankThresholds,
		RankUp:           string(p.RankUp),
		KillMerge:        string(p.KillMerge),
	})
}
