// Package workspace remembers which billing account owns each workspace.
package workspace

import (
	"context"
	"fmt"

	"github.com/crosslogic/accounting-engine/internal/store"
	"github.com/google/uuid"
)

// Map is the first-writer-wins workspace-to-account mapping.
type Map struct {
	store *store.Store
}

// New builds a Map over store.
func New(st *store.Store) *Map {
	return &Map{store: st}
}

// RecordMapping records that workspace belongs to account, unless a mapping
// for workspace already exists, in which case it is a no-op. Reports
// whether this call performed the insert.
func (m *Map) RecordMapping(ctx context.Context, workspace string, account uuid.UUID) (bool, error) {
	recorded, err := m.store.RecordMapping(ctx, workspace, account)
	if err != nil {
		return false, fmt.Errorf("record mapping: %w", err)
	}
	return recorded, nil
}

// AccountFor returns the account owning workspace, or store.ErrNotFound.
func (m *Map) AccountFor(ctx context.Context, workspace string) (uuid.UUID, error) {
	account, err := m.store.AccountForWorkspace(ctx, workspace)
	if err != nil {
		return uuid.Nil, err
	}
	return account, nil
}
