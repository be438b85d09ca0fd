package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/rankvault/internal/ir"
	"github.com/roach88/rankvault/internal/registry"
)

// Commit is everything one call changes, written atomically.
// A failed call carries only its journal Entry.
type Commit struct {
	Entry     ir.Entry
	Upserts   []registry.Record
	Deletes   []registry.TokenID
	NextID    registry.TokenID
	LastEpoch registry.Epoch
}

// Init writes the collection identity and policy of a fresh registry.
// st must be empty (no records, next id 1, epoch 0): Genesis rebuilds it
// from meta alone, and replay starts there.
// Returns ErrAlreadyInitialized if the store already holds a collection.
func (s *Store) Init(ctx context.Context, st registry.State) error {
	if len(st.Records) > 0 || st.NextID != 1 || st.LastEpoch != 0 {
		return fmt.Errorf("init: %w", ErrNonEmptyGenesis)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init: begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM meta WHERE key = ?`, metaName).Scan(&count); err != nil {
		return fmt.Errorf("init: check meta: %w", err)
	}
	if count > 0 {
		return ErrAlreadyInitialized
	}

	policyJSON, err := marshalPolicy(st.Policy)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	meta := [][2]string{
		{metaName, st.Collection.Name},
		{metaSymbol, st.Collection.Symbol},
		{metaBaseURI, st.Collection.BaseURI},
		{metaAdministrator, string(st.Collection.Administrator)},
		{metaPolicy, policyJSON},
		{metaNextID, formatUint(uint64(st.NextID))},
		{metaLastEpoch, formatUint(uint64(st.LastEpoch))},
		{metaEngine, ir.EngineVersion},
		{metaJournal, ir.JournalVersion},
	}
	for _, kv := range meta {
		if err := putMeta(ctx, tx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init: commit: %w", err)
	}
	return nil
}

// Commit appends a journal entry and applies the record changes of the same
// call in a single transaction.
//
// The journal insert is a plain INSERT: reusing a seq or entry id is an
// error, not a silent no-op, because it means two writers share a store.
func (s *Store) Commit(ctx context.Context, c Commit) error {
	argsJSON, err := marshalObject("args", c.Entry.Call.Args)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	resultJSON, err := marshalObject("result", c.Entry.Outcome.Result)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journal
		(seq, id, flow_token, action, caller, epoch, args, output_case, result, state_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Entry.Seq,
		c.Entry.ID,
		c.Entry.FlowToken,
		c.Entry.Call.Action,
		c.Entry.Call.Caller,
		c.Entry.Call.Epoch,
		argsJSON,
		c.Entry.Outcome.Case,
		resultJSON,
		c.Entry.StateDigest,
	)
	if err != nil {
		return fmt.Errorf("commit: insert journal seq %d: %w", c.Entry.Seq, err)
	}

	for _, rec := range c.Upserts {
		if err := upsertRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	for _, id := range c.Deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, toSQL(uint64(id))); err != nil {
			return fmt.Errorf("commit: delete record %d: %w", id, err)
		}
	}

	if c.Entry.Outcome.OK() {
		if err := putMeta(ctx, tx, metaNextID, formatUint(uint64(c.NextID))); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		if err := putMeta(ctx, tx, metaLastEpoch, formatUint(uint64(c.LastEpoch))); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func putMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("put meta %s: %w", key, err)
	}
	return nil
}

func upsertRecord(ctx context.Context, tx *sql.Tx, rec registry.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records
		(id, owner, name, locked, lock_start_epoch, days_to_lock, experience, rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			locked = excluded.locked,
			lock_start_epoch = excluded.lock_start_epoch,
			days_to_lock = excluded.days_to_lock,
			experience = excluded.experience,
			rank = excluded.rank
	`,
		toSQL(uint64(rec.ID)),
		string(rec.Owner),
		rec.Name,
		boolToInt(rec.Locked),
		toSQL(uint64(rec.LockStartEpoch)),
		toSQL(rec.DaysToLock),
		toSQL(rec.Experience),
		toSQL(rec.Rank),
	)
	if err != nil {
		return fmt.Errorf("upsert record %d: %w", rec.ID, err)
	}
	return nil
}
