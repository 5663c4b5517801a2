package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrTableNotFound is returned when the target table does not exist.
var ErrTableNotFound = errors.New("table not found")

// CountRows returns the number of rows in table.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(table))

	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		if isUndefinedTable(err) {
			return 0, ErrTableNotFound
		}
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// DeleteAllRows deletes every row in table and returns the number removed.
func (r *Repository) DeleteAllRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(table))

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, ErrTableNotFound
		}
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}
