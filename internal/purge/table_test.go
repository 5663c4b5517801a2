package purge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	rows    map[string]int64
	deleted []string
}

func (f *fakeRows) CountRows(ctx context.Context, table string) (int64, error) {
	return f.rows[table], nil
}

func (f *fakeRows) DeleteAllRows(ctx context.Context, table string) (int64, error) {
	n := f.rows[table]
	f.deleted = append(f.deleted, table)
	delete(f.rows, table)
	return n, nil
}

func TestTableStore(t *testing.T) {
	db := &fakeRows{rows: map[string]int64{"personal_trades": 7, "subscriptions": 3}}
	store := NewTableStore(db)

	report, err := Purge(context.Background(), store, DefaultTables, Options{Logger: quiet})
	require.NoError(t, err)

	assert.Equal(t, 7, report.TotalRemoved())
	assert.Equal(t, []string{"personal_trades"}, db.deleted)
	assert.EqualValues(t, 3, db.rows["subscriptions"])
}
