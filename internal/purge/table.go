package purge

import "context"

// RowStore is the database surface needed to purge tables.
type RowStore interface {
	CountRows(ctx context.Context, table string) (int64, error)
	DeleteAllRows(ctx context.Context, table string) (int64, error)
}

// TableStore purges whole tables; each key is a table name.
type TableStore struct {
	db RowStore
}

// NewTableStore creates a TableStore.
func NewTableStore(db RowStore) *TableStore {
	return &TableStore{db: db}
}

// Name implements Store.
func (s *TableStore) Name() string { return "postgres" }

// Count returns the table's row count.
func (s *TableStore) Count(ctx context.Context, table string) (int, error) {
	n, err := s.db.CountRows(ctx, table)
	return int(n), err
}

// Remove deletes every row of the table.
func (s *TableStore) Remove(ctx context.Context, table string) error {
	_, err := s.db.DeleteAllRows(ctx, table)
	return err
}
