package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a single-row lookup matches no rows.
var ErrNotFound = errors.New("store: not found")

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
