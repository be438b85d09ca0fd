// Package config loads collection identity and progression policy from CUE.
//
// A config file is unified with the embedded #Config schema, which supplies
// defaults and range constraints. Cross-field rules that CUE does not
// express cheaply, such as strictly increasing rank thresholds, are left to
// registry.Policy.Validate.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rankvault/internal/registry"
)

//go:embed schema.cue
var schemaCUE string

// Config is a decoded, validated configuration.
type Config struct {
	Collection registry.Collection
	Policy     registry.Policy
}

// Error is a config problem with its CUE source position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the reference configuration: the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against #Config. filename is used in error
// positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	return FromValue(v)
}

// FromValue decodes a unified, concrete #Config value.
func FromValue(v cue.Value) (Config, error) {
	var cfg Config
	var err error

	col := v.LookupPath(cue.ParsePath("collection"))
	if cfg.Collection.Name, err = lookupString(col, "name"); err != nil {
		return Config{}, err
	}
	if cfg.Collection.Symbol, err = lookupString(col, "symbol"); err != nil {
		return Config{}, err
	}
	if cfg.Collection.BaseURI, err = lookupString(col, "base_uri"); err != nil {
		return Config{}, err
	}
	admin, err := lookupString(col, "administrator")
	if err != nil {
		return Config{}, err
	}
	cfg.Collection.Administrator = registry.Identity(admin)

	pol := v.LookupPath(cue.ParsePath("policy"))
	if cfg.Policy.EpochsPerDay, err = lookupUint(pol, "epochs_per_day"); err != nil {
		return Config{}, err
	}
	if cfg.Policy.ExperiencePerDay, err = lookupUint(pol, "experience_per_day"); err != nil {
		return Config{}, err
	}
	if cfg.Policy.RankThresholds, err = lookupUintList(pol, "rank_thresholds"); err != nil {
		return Config{}, err
	}
	rankUp, err := lookupString(pol, "rank_up")
	if err != nil {
		return Config{}, err
	}
	cfg.Policy.RankUp = registry.ExperiencePolicy(rankUp)
	merge, err := lookupString(pol, "kill_merge")
	if err != nil {
		return Config{}, err
	}
	cfg.Policy.KillMerge = registry.MergePolicy(merge)

	if err := cfg.Policy.Validate(); err != nil {
		return Config{}, &Error{Field: "policy", Message: err.Error(), Pos: pol.Pos()}
	}
	return cfg, nil
}

func lookupString(v cue.Value, field string) (string, error) {
	fv := lookup(v, field)
	s, err := fv.String()
	if err != nil {
		return "", &Error{Field: field, Message: err.Error(), Pos: fv.Pos()}
	}
	return s, nil
}

func lookupUint(v cue.Value, field string) (uint64, error) {
	fv := lookup(v, field)
	n, err := fv.Uint64()
	if err != nil {
		return 0, &Error{Field: field, Message: err.Error(), Pos: fv.Pos()}
	}
	return n, nil
}

func lookupUintList(v cue.Value, field string) ([]uint64, error) {
	fv := lookup(v, field)
	iter, err := fv.List()
	if err != nil {
		return nil, &Error{Field: field, Message: err.Error(), Pos: fv.Pos()}
	}
	out := []uint64{}
	for iter.Next() {
		n, err := iter.Value().Uint64()
		if err != nil {
			return nil, &Error{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		out = append(out, n)
	}
	return out, nil
}

// lookup resolves field, taking the schema default when the file left it open.
func lookup(v cue.Value, field string) cue.Value {
	fv := v.LookupPath(cue.ParsePath(field))
	if d, ok := fv.Default(); ok {
		return d
	}
	return fv
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Field: "cue", Message: first.Error()}
}
