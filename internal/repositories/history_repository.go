package repositories

import (
	"context"
	"errors"

	"regwatch/internal/model"
)

// ErrCorruptHistory marks a store that exists but cannot be trusted, such as a
// file with the wrong header or a row with the wrong number of fields.
var ErrCorruptHistory = errors.New("history store is corrupt")

// HistoryRepository is the append-only record of every item ever seen.
type HistoryRepository interface {
	// EnsureExists initializes an empty store if none exists yet.
	EnsureExists(ctx context.Context) error
	LoadKnownURLs(ctx context.Context) (map[string]struct{}, error)
	// Append writes rows after all prior rows. An empty slice is a no-op.
	Append(ctx context.Context, rows []model.HistoryRecord) error
	List(ctx context.Context) ([]model.HistoryRecord, error)
}
