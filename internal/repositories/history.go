package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/moodify/internal/models"
	"github.com/desertthunder/moodify/internal/shared"
)

// SearchHistoryRepository records issued searches in the search_history table.
type SearchHistoryRepository struct {
	db *sql.DB
}

// NewSearchHistoryRepository creates a new [SearchHistoryRepository] with the given database connection
func NewSearchHistoryRepository(db *sql.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db}
}

// Record inserts rec, generating its ID and creation time when unset.
func (r *SearchHistoryRepository) Record(ctx context.Context, rec *models.SearchRecord) error {
	if rec.Query == "" {
		return fmt.Errorf("%w: search query is empty", shared.ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = shared.GenerateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO search_history (id, query, pages, results, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.Query, rec.Pages, rec.Results, rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

// List returns the most recent records first. A limit of zero or less returns everything.
func (r *SearchHistoryRepository) List(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	query := `
		SELECT id, query, pages, results, created_at
		FROM search_history
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	records := []models.SearchRecord{}
	for rows.Next() {
		var rec models.SearchRecord
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.Pages, &rec.Results, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search history: %w", err)
	}
	return records, nil
}

// Clear deletes every record and returns how many were removed.
func (r *SearchHistoryRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM search_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear search history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
