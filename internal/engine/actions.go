package engine

import (
	"errors"
	"slices"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// effect is what a successful action reports back: its result object and
// the records the store must rewrite or drop.
type effect struct {
	result  ir.Object
	upserts []registry.TokenID
	deletes []registry.TokenID
}

type actionFunc func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error)

// action describes one entry point into the registry.
// Reads are answered without touching the journal or the epoch watermark.
type action struct {
	read bool
	run  actionFunc
}

// argError marks a failure to decode arguments, as opposed to a registry
// outcome.
type argError struct{ err error }

func (e *argError) Error() string { return e.err.Error() }
func (e *argError) Unwrap() error { return e.err }

func argID(args ir.Object, key string) (registry.TokenID, error) {
	n, err := args.Uint(key)
	if err != nil {
		return 0, &argError{err}
	}
	return registry.TokenID(n), nil
}

func argUint(args ir.Object, key string) (uint64, error) {
	n, err := args.Uint(key)
	if err != nil {
		return 0, &argError{err}
	}
	return n, nil
}

func argIdentity(args ir.Object, key string) (registry.Identity, error) {
	s, err := args.Str(key)
	if err != nil {
		return "", &argError{err}
	}
	return registry.Identity(s), nil
}

func argString(args ir.Object, key string) (string, error) {
	s, err := args.Str(key)
	if err != nil {
		return "", &argError{err}
	}
	return s, nil
}

func isArgError(err error) bool {
	var ae *argError
	return errors.As(err, &ae)
}

func idResult(id registry.TokenID) ir.Object {
	return ir.Object{"id": ir.Uint(uint64(id))}
}

var actions = map[string]action{
	"mint": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		to, err := argIdentity(args, "recipient")
		if err != nil {
			return effect{}, err
		}
		name, err := argString(args, "name")
		if err != nil {
			return effect{}, err
		}
		id, err := r.Mint(env, to, name)
		if err != nil {
			return effect{}, err
		}
		return effect{result: idResult(id), upserts: []registry.TokenID{id}}, nil
	}},

	"transfer": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		from, err := argIdentity(args, "from")
		if err != nil {
			return effect{}, err
		}
		to, err := argIdentity(args, "to")
		if err != nil {
			return effect{}, err
		}
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		if err := r.Transfer(env, from, to, id); err != nil {
			return effect{}, err
		}
		return effect{result: ir.Object{}, upserts: []registry.TokenID{id}}, nil
	}},

	"lock": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		days, err := argUint(args, "days")
		if err != nil {
			return effect{}, err
		}
		if err := r.Lock(env, id, days); err != nil {
			return effect{}, err
		}
		locked, _ := r.LockRecord(id)
		return effect{
			result:  ir.Object{"locked": ir.Bool(locked)},
			upserts: []registry.TokenID{id},
		}, nil
	}},

	"unlock": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		if err := r.Unlock(env, id); err != nil {
			return effect{}, err
		}
		return effect{result: ir.Object{}, upserts: []registry.TokenID{id}}, nil
	}},

	"addExperience": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		amount, err := argUint(args, "amount")
		if err != nil {
			return effect{}, err
		}
		if err := r.AddExperience(env, id, amount); err != nil {
			return effect{}, err
		}
		rec, _ := r.Record(id)
		return effect{
			result:  ir.Object{"experience": ir.Uint(rec.Experience)},
			upserts: []registry.TokenID{id},
		}, nil
	}},

	"claimExperience": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		days, err := r.ClaimExperience(env, id)
		if err != nil {
			return effect{}, err
		}
		rec, _ := r.Record(id)
		return effect{
			result: ir.Object{
				"days":       ir.Uint(days),
				"experience": ir.Uint(rec.Experience),
			},
			upserts: []registry.TokenID{id},
		}, nil
	}},

	"rankUp": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		rank, err := r.RankUp(env, id)
		if err != nil {
			return effect{}, err
		}
		return effect{
			result:  ir.Object{"rank": ir.Uint(rank)},
			upserts: []registry.TokenID{id},
		}, nil
	}},

	"killToken": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		receiver, err := argID(args, "receiver_id")
		if err != nil {
			return effect{}, err
		}
		if err := r.Kill(env, id, receiver); err != nil {
			return effect{}, err
		}
		return effect{
			result:  ir.Object{},
			upserts: []registry.TokenID{receiver},
			deletes: []registry.TokenID{id},
		}, nil
	}},

	"burn": {run: func(r *registry.Registry, env registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		return effect{}, r.Burn(env, id)
	}},

	"ownerOf": {read: true, run: func(r *registry.Registry, _ registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		owner, err := r.OwnerOf(id)
		if err != nil {
			return effect{}, err
		}
		return effect{result: ir.Object{"owner": ir.String(owner)}}, nil
	}},

	"uri": {read: true, run: func(r *registry.Registry, _ registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		uri, err := r.URI(id)
		if err != nil {
			return effect{}, err
		}
		return effect{result: ir.Object{"uri": ir.String(uri)}}, nil
	}},

	"record": {read: true, run: func(r *registry.Registry, _ registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		rec, err := r.Record(id)
		if err != nil {
			return effect{}, err
		}
		obj := RecordObject(rec)
		uri, _ := r.URI(id)
		obj["uri"] = ir.String(uri)
		return effect{result: obj}, nil
	}},

	"lockRecord": {read: true, run: func(r *registry.Registry, _ registry.Env, args ir.Object) (effect, error) {
		id, err := argID(args, "id")
		if err != nil {
			return effect{}, err
		}
		locked, err := r.LockRecord(id)
		if err != nil {
			return effect{}, err
		}
		return effect{result: ir.Object{"locked": ir.Bool(locked)}}, nil
	}},

	"balanceOf": {read: true, run: func(r *registry.Registry, _ registry.Env, args ir.Object) (effect, error) {
		owner, err := argIdentity(args, "owner")
		if err != nil {
			return effect{}, err
		}
		return effect{result: ir.Object{"balance": ir.Int(r.BalanceOf(owner))}}, nil
	}},

	"tokensOf": {read: true, run: func(r *registry.Registry, _ registry.Env, args ir.Object) (effect, error) {
		owner, err := argIdentity(args, "owner")
		if err != nil {
			return effect{}, err
		}
		ids := r.TokensOf(owner)
		arr := make(ir.Array, len(ids))
		for i, id := range ids {
			arr[i] = ir.Uint(uint64(id))
		}
		return effect{result: ir.Object{"ids": arr}}, nil
	}},

	"currentTokenId": {read: true, run: func(r *registry.Registry, _ registry.Env, _ ir.Object) (effect, error) {
		return effect{result: idResult(r.CurrentTokenID())}, nil
	}},

	"collection": {read: true, run: func(r *registry.Registry, _ registry.Env, _ ir.Object) (effect, error) {
		return effect{result: ir.Object{
			"name":          ir.String(r.Name()),
			"symbol":        ir.String(r.Symbol()),
			"base_uri":      ir.String(r.BaseURI()),
			"administrator": ir.String(r.Administrator()),
		}}, nil
	}},
}

// Actions returns the names of all actions in sorted order.
func Actions() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsReadAction reports whether name is a known read-only action.
func IsReadAction(name string) bool {
	a, ok := actions[name]
	return ok && a.read
}
