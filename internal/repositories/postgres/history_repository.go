package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"regwatch/internal/db"
	"regwatch/internal/model"
)

type HistoryRepository struct {
	conn *sql.DB
}

func NewHistoryRepository(conn *sql.DB) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

func (r *HistoryRepository) EnsureExists(ctx context.Context) error {
	return db.EnsureSchema(ctx, r.conn)
}

func (r *HistoryRepository) LoadKnownURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT DISTINCT link FROM history`)
	if err != nil {
		return nil, fmt.Errorf("query known urls: %w", err)
	}
	defer rows.Close()

	known := map[string]struct{}{}
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scan known url: %w", err)
		}
		known[link] = struct{}{}
	}
	return known, rows.Err()
}

// Append inserts all rows in one transaction.
func (r *HistoryRepository) Append(ctx context.Context, records []model.HistoryRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO history (title, link, source) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err = stmt.ExecContext(ctx, rec.Title, rec.URL, rec.Source); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context) ([]model.HistoryRecord, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT title, link, source FROM history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		var rec model.HistoryRecord
		if err := rows.Scan(&rec.Title, &rec.URL, &rec.Source); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
