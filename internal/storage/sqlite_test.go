package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "orb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndGetTable(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Ping(ctx))

	table := testTable()
	require.NoError(t, store.SaveTable(ctx, table))

	got, err := store.GetTable(ctx, KeyOf(table))
	require.NoError(t, err)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "2024-03-11", got.Records[0].Date)
	assert.Equal(t, "2024-03-12", got.Records[1].Date)
	assert.Equal(t, 110.0, got.Records[0].RangeHigh)
	require.NotNil(t, got.Records[0].RangeOpenLevel)
	assert.Equal(t, 0.4, *got.Records[0].RangeOpenLevel)
}

func TestSQLiteStore_SaveReplacesTable(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	table := testTable()
	require.NoError(t, store.SaveTable(ctx, table))

	table.Records = table.Records[1:]
	require.NoError(t, store.SaveTable(ctx, table))

	got, err := store.GetTable(ctx, KeyOf(table))
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "2024-03-12", got.Records[0].Date)
}

func TestSQLiteStore_GetTable_NotFound(t *testing.T) {
	store := newSQLiteStore(t)

	_, err := store.GetTable(context.Background(), TableKey{Symbol: "ES", Session: session.Asia, OpeningMinutes: 60})
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

func TestSQLiteStore_ListTables(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	ny := testTable()
	ldn := testTable()
	ldn.Session = session.London
	ldn.Records = ldn.Records[:1]
	require.NoError(t, store.SaveTable(ctx, ny))
	require.NoError(t, store.SaveTable(ctx, ldn))

	infos, err := store.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, session.London, infos[0].Session)
	assert.Equal(t, 1, infos[0].Rows)
	assert.Equal(t, session.NewYork, infos[1].Session)
	assert.Equal(t, 2, infos[1].Rows)
	assert.Equal(t, "2024-03-11", infos[1].FirstDate)
	assert.Equal(t, "2024-03-12", infos[1].LastDate)
	assert.False(t, infos[1].UpdatedAt.IsZero())
}

func TestMemoryTableStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTableStore()

	table := testTable()
	require.NoError(t, store.SaveTable(ctx, table))
	table.Records = nil

	got, err := store.GetTable(ctx, TableKey{Symbol: "ES", Session: session.NewYork, OpeningMinutes: 60})
	require.NoError(t, err)
	assert.Len(t, got.Records, 2)

	_, err = store.GetTable(ctx, TableKey{Symbol: "NQ", Session: session.NewYork, OpeningMinutes: 60})
	assert.True(t, errors.Is(err, ErrTableNotFound))
}
