package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordMapping inserts (workspace, account) only if no row exists yet for
// that workspace, and reports whether the insert happened. Workspaces never
// move between accounts once recorded.
func (s *Store) RecordMapping(ctx context.Context, workspace string, account uuid.UUID) (bool, error) {
	tag, err := s.Pool.Exec(ctx,
		`INSERT INTO workspace_accounts (workspace, account) VALUES ($1, $2)
		 ON CONFLICT (workspace) DO NOTHING`,
		workspace, account,
	)
	if err != nil {
		return false, fmt.Errorf("record mapping: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AccountForWorkspace returns the account owning workspace, or ErrNotFound.
func (s *Store) AccountForWorkspace(ctx context.Context, workspace string) (uuid.UUID, error) {
	var account uuid.UUID
	err := s.Pool.QueryRow(ctx,
		`SELECT account FROM workspace_accounts WHERE workspace = $1`, workspace,
	).Scan(&account)
	if err != nil {
		if isNoRows(err) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("account for workspace: %w", err)
	}
	return account, nil
}

// WorkspacesForAccount returns every workspace mapped to account.
func (s *Store) WorkspacesForAccount(ctx context.Context, account uuid.UUID) ([]string, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT workspace FROM workspace_accounts WHERE account = $1`, account)
	if err != nil {
		return nil, fmt.Errorf("workspaces for account: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("workspaces for account: scan: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
