package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// Initialized reports whether Init has been run on this store.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta WHERE key = ?`, metaName).Scan(&count); err != nil {
		return false, fmt.Errorf("check initialized: %w", err)
	}
	return count > 0, nil
}

// Genesis returns the state the registry started from: the stored
// collection and policy with no records. Replay starts here.
func (s *Store) Genesis(ctx context.Context) (registry.State, error) {
	meta, err := s.readMeta(ctx)
	if err != nil {
		return registry.State{}, err
	}
	col, policy, err := collectionFromMeta(meta)
	if err != nil {
		return registry.State{}, err
	}
	return registry.State{
		Collection: col,
		Policy:     policy,
		NextID:     1,
		Records:    []registry.Record{},
	}, nil
}

// LoadState reads the current registry state.
// Records are returned in ascending id order.
func (s *Store) LoadState(ctx context.Context) (registry.State, error) {
	meta, err := s.readMeta(ctx)
	if err != nil {
		return registry.State{}, err
	}
	col, policy, err := collectionFromMeta(meta)
	if err != nil {
		return registry.State{}, err
	}
	nextID, err := parseUint(metaNextID, meta[metaNextID])
	if err != nil {
		return registry.State{}, err
	}
	lastEpoch, err := parseUint(metaLastEpoch, meta[metaLastEpoch])
	if err != nil {
		return registry.State{}, err
	}

	records, err := s.ReadRecords(ctx)
	if err != nil {
		return registry.State{}, err
	}

	return registry.State{
		Collection: col,
		Policy:     policy,
		NextID:     registry.TokenID(nextID),
		LastEpoch:  registry.Epoch(lastEpoch),
		Records:    records,
	}, nil
}

// ReadRecords returns all live records ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadRecords(ctx context.Context) ([]registry.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, name, locked, lock_start_epoch, days_to_lock, experience, rank
		FROM records
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []registry.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadRecord returns one record. found is false if no row exists.
func (s *Store) ReadRecord(ctx context.Context, id registry.TokenID) (rec registry.Record, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, locked, lock_start_epoch, days_to_lock, experience, rank
		FROM records
		WHERE id = ?
	`, toSQL(uint64(id)))
	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Record{}, false, nil
	}
	if err != nil {
		return registry.Record{}, false, err
	}
	return rec, true, nil
}

// ReadJournal returns every journal entry ordered by seq.
func (s *Store) ReadJournal(ctx context.Context) ([]ir.Entry, error) {
	return s.queryEntries(ctx, `
		SELECT seq, id, flow_token, action, caller, epoch, args, output_case, result, state_digest
		FROM journal
		ORDER BY seq ASC
	`)
}

// ReadJournalByAction returns the entries for one action ordered by seq.
func (s *Store) ReadJournalByAction(ctx context.Context, action string) ([]ir.Entry, error) {
	return s.queryEntries(ctx, `
		SELECT seq, id, flow_token, action, caller, epoch, args, output_case, result, state_digest
		FROM journal
		WHERE action = ?
		ORDER BY seq ASC
	`, action)
}

// ReadFlow returns the entries written under one flow token ordered by seq.
func (s *Store) ReadFlow(ctx context.Context, flowToken string) ([]ir.Entry, error) {
	return s.queryEntries(ctx, `
		SELECT seq, id, flow_token, action, caller, epoch, args, output_case, result, state_digest
		FROM journal
		WHERE flow_token = ?
		ORDER BY seq ASC
	`, flowToken)
}

// ReadEntry returns the journal entry with the given seq.
func (s *Store) ReadEntry(ctx context.Context, seq int64) (ir.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, flow_token, action, caller, epoch, args, output_case, result, state_digest
		FROM journal
		WHERE seq = ?
	`, seq)
	e, err := scanEntry(row)
	if err != nil {
		return ir.Entry{}, fmt.Errorf("read entry %d: %w", seq, err)
	}
	return e, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ir.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []ir.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (registry.Record, error) {
	var (
		id, lockStart, days, exp, rank int64
		locked                         int64
		owner, name                    string
	)
	if err := sc.Scan(&id, &owner, &name, &locked, &lockStart, &days, &exp, &rank); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registry.Record{}, err
		}
		return registry.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return registry.Record{
		ID:             registry.TokenID(fromSQL(id)),
		Owner:          registry.Identity(owner),
		Name:           name,
		Locked:         locked == 1,
		LockStartEpoch: registry.Epoch(fromSQL(lockStart)),
		DaysToLock:     fromSQL(days),
		Experience:     fromSQL(exp),
		Rank:           fromSQL(rank),
	}, nil
}

func scanEntry(sc scanner) (ir.Entry, error) {
	var (
		e                  ir.Entry
		argsJSON, resultJS string
	)
	err := sc.Scan(
		&e.Seq,
		&e.ID,
		&e.FlowToken,
		&e.Call.Action,
		&e.Call.Caller,
		&e.Call.Epoch,
		&argsJSON,
		&e.Outcome.Case,
		&resultJS,
		&e.StateDigest,
	)
	if err != nil {
		return ir.Entry{}, fmt.Errorf("scan journal: %w", err)
	}

	if e.Call.Args, err = unmarshalObject("args", argsJSON); err != nil {
		return ir.Entry{}, err
	}
	if e.Outcome.Result, err = unmarshalObject("result", resultJS); err != nil {
		return ir.Entry{}, err
	}
	return e, nil
}

func (s *Store) readMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meta: %w", err)
	}
	if _, ok := meta[metaName]; !ok {
		return nil, ErrNotInitialized
	}
	return meta, nil
}

func collectionFromMeta(meta map[string]string) (registry.Collection, registry.Policy, error) {
	policy, err := unmarshalPolicy(meta[metaPolicy])
	if err != nil {
		return registry.Collection{}, registry.Policy{}, err
	}
	return registry.Collection{
		Name:          meta[metaName],
		Symbol:        meta[metaSymbol],
		BaseURI:       meta[metaBaseURI],
		Administrator: registry.Identity(meta[metaAdministrator]),
	}, policy, nil
}
