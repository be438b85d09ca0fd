package store

import (
	"context"
	"fmt"
)

// CaseCount is the number of journal entries for one action and outcome case.
type CaseCount struct {
	Action string
	Case   string
	Count  int64
}

// GetLastSeq returns the highest seq number in the journal, or 0 when empty.
// Used on startup to resume the logical clock from the correct position.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM journal
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// ListFlowTokens returns all distinct flow tokens in the journal, ordered
// by the seq of their first entry.
func (s *Store) ListFlowTokens(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_token FROM journal
		GROUP BY flow_token
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list flow tokens: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan flow token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow tokens: %w", err)
	}
	return tokens, nil
}

// CaseCounts aggregates the journal by action and outcome case.
// Results are ordered by action then case.
func (s *Store) CaseCounts(ctx context.Context) ([]CaseCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, output_case, COUNT(*)
		FROM journal
		GROUP BY action, output_case
		ORDER BY action COLLATE BINARY ASC, output_case COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("case counts: %w", err)
	}
	defer rows.Close()

	counts := []CaseCount{}
	for rows.Next() {
		var c CaseCount
		if err := rows.Scan(&c.Action, &c.Case, &c.Count); err != nil {
			return nil, fmt.Errorf("scan case count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case counts: %w", err)
	}
	return counts, nil
}
