package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

func testTable() *orb.Table {
	return &orb.Table{
		Symbol:         "ES",
		Session:        session.NewYork,
		OpeningMinutes: 60,
		Records: []models.DayRangeRecord{
			{Symbol: "ES", Session: "ny", Date: "2024-03-11", RangeHigh: 110, RangeLow: 100, Direction: models.DirectionLong, RangeOpenLevel: models.Float(0.4)},
			{Symbol: "ES", Session: "ny", Date: "2024-03-12", RangeHigh: 112, RangeLow: 104, Direction: models.DirectionNone},
		},
	}
}

func newMockStore(t *testing.T, retry RetryConfig) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newPostgresStore(db, retry, time.UTC), mock
}

func TestPostgresStore_SaveTable(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{MaxRetries: 1})
	table := testTable()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orb_records").
		WithArgs("ES", "ny", 60).
		WillReturnResult(sqlmock.NewResult(0, 5))
	prep := mock.ExpectPrepare("INSERT INTO orb_records")
	prep.ExpectExec().
		WithArgs("ES", "ny", 60, "2024-03-11", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("ES", "ny", 60, "2024-03-12", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveTable(context.Background(), table))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTable_RetriesThenSucceeds(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	table := testTable()
	table.Records = table.Records[:1]

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orb_records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO orb_records").
		ExpectExec().
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveTable(context.Background(), table))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTable_ReturnsErrorAfterRetries(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{MaxRetries: 2, RetryDelay: time.Millisecond})

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orb_records").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := store.SaveTable(context.Background(), testTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete table rows")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTable(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{})

	rows := sqlmock.NewRows([]string{"record"}).
		AddRow(`{"symbol":"ES","session":"ny","date":"2024-03-11","range_high":110,"range_low":100,"direction":"long","opening_level":0.4}`).
		AddRow(`{"symbol":"ES","session":"ny","date":"2024-03-12","range_high":112,"range_low":104,"direction":"none"}`)
	mock.ExpectQuery("SELECT record").WithArgs("ES", "ny", 60).WillReturnRows(rows)

	table, err := store.GetTable(context.Background(), TableKey{Symbol: "ES", Session: session.NewYork, OpeningMinutes: 60})
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, session.NewYork, table.Session)
	assert.Equal(t, 60, table.OpeningMinutes)
	assert.Equal(t, "2024-03-11", table.Records[0].Date)
	assert.Equal(t, models.DirectionLong, table.Records[0].Direction)
	require.NotNil(t, table.Records[0].RangeOpenLevel)
	assert.Equal(t, 0.4, *table.Records[0].RangeOpenLevel)
	assert.Nil(t, table.Records[1].RangeOpenLevel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTable_NotFound(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{})

	mock.ExpectQuery("SELECT record").
		WithArgs("NQ", "ldn", 30).
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	_, err := store.GetTable(context.Background(), TableKey{Symbol: "NQ", Session: session.London, OpeningMinutes: 30})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTableNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTables(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{})
	updated := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"symbol", "session", "opening_minutes", "count", "min", "max", "max"}).
		AddRow("ES", "ny", 60, 2, "2024-03-11", "2024-03-12", updated)
	mock.ExpectQuery("SELECT symbol, session, opening_minutes, COUNT").WillReturnRows(rows)

	infos, err := store.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, session.NewYork, infos[0].Session)
	assert.Equal(t, 2, infos[0].Rows)
	assert.Equal(t, "2024-03-11", infos[0].FirstDate)
	assert.Equal(t, "2024-03-12", infos[0].LastDate)
	assert.True(t, updated.Equal(infos[0].UpdatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WriteBars_SkipsInvalid(t *testing.T) {
	store, mock := newMockStore(t, RetryConfig{})
	ts := time.Date(2024, 3, 11, 13, 30, 0, 0, time.UTC)
	bars := []models.Bar{
		{Symbol: "ES", Timestamp: ts, Open: 100, High: 101, Low: 99, Close: 100.5},
		{Symbol: "ES", Timestamp: ts.Add(time.Minute), Open: 100, High: 98, Low: 99, Close: 100},
	}

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO bars").
		ExpectExec().
		WithArgs("ES", ts, 100.0, 101.0, 99.0, 100.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.WriteBars(context.Background(), bars))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBars(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := newPostgresStore(db, RetryConfig{}, ny)

	start := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, 3, 11, 13, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"symbol", "timestamp", "open", "high", "low", "close"}).
		AddRow("ES", ts, 100.0, 101.0, 99.0, 100.5)
	mock.ExpectQuery("SELECT symbol, timestamp").WithArgs("ES", start).WillReturnRows(rows)

	bars, err := store.GetBars(context.Background(), "ES", start, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, ny, bars[0].Timestamp.Location())
	assert.Equal(t, 9, bars[0].Timestamp.Hour())
	assert.Equal(t, 101.0, bars[0].High)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectBind(t *testing.T) {
	query := "WHERE a = $1 AND b = $2 AND c = $12"
	assert.Equal(t, query, postgresDialect.bind(query))
	assert.Equal(t, "WHERE a = ? AND b = ? AND c = ?", sqliteDialect.bind(query))
	assert.Equal(t, "price > $ AND x = ?", sqliteDialect.bind("price > $ AND x = $3"))
}
