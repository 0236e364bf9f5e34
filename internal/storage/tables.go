package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

var (
	storageWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_store_write_total",
			Help: "Total number of table writes",
		},
		[]string{"store", "status"}, // "success" or "error"
	)

	storageWriteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "table_store_write_latency_seconds",
			Help:    "Table write latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"store"},
	)

	storageRowsWritten = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "table_store_rows_written",
			Help:    "Rows written per table save",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"store"},
	)
)

// RetryConfig holds retry configuration for write operations
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// dialect captures the SQL differences between Postgres and SQLite
type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
	sqliteDialect   = dialect{name: "sqlite", placeholder: func(int) string { return "?" }}
)

// bind rewrites $n placeholders for the dialect
func (d dialect) bind(query string) string {
	if d.name == postgresDialect.name {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(query[i+1 : j])
			b.WriteString(d.placeholder(n))
			i = j - 1
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

const (
	deleteTableQuery = `
		DELETE FROM orb_records
		WHERE symbol = $1 AND session = $2 AND opening_minutes = $3
	`
	insertRecordQuery = `
		INSERT INTO orb_records (symbol, session, opening_minutes, date, record, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	selectTableQuery = `
		SELECT record
		FROM orb_records
		WHERE symbol = $1 AND session = $2 AND opening_minutes = $3
		ORDER BY date ASC
	`
	listTablesQuery = `
		SELECT symbol, session, opening_minutes, COUNT(*), MIN(date), MAX(date), MAX(updated_at)
		FROM orb_records
		GROUP BY symbol, session, opening_minutes
		ORDER BY symbol, session, opening_minutes
	`
)

// tableStore persists tables as one JSON document per trading date
type tableStore struct {
	db      *sql.DB
	dialect dialect
	retry   RetryConfig
	now     func() time.Time
}

// SaveTable replaces every stored row of the table's key, retrying with
// exponential backoff
func (s *tableStore) SaveTable(ctx context.Context, table *orb.Table) error {
	startTime := time.Now()
	attempts := s.retry.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = s.replaceTable(ctx, table)
		if err == nil {
			break
		}

		if attempt < attempts-1 {
			delay := s.retry.RetryDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
			logger.Warn("Failed to save table, retrying",
				logger.ErrorField(err),
				logger.String("store", s.dialect.name),
				logger.String("symbol", table.Symbol),
				logger.String("session", string(table.Session)),
				logger.Int("attempt", attempt+1),
				logger.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	storageWriteLatency.WithLabelValues(s.dialect.name).Observe(time.Since(startTime).Seconds())
	if err != nil {
		storageWriteTotal.WithLabelValues(s.dialect.name, "error").Inc()
		return fmt.Errorf("failed to save table %s/%s: %w", table.Symbol, table.Session, err)
	}

	storageWriteTotal.WithLabelValues(s.dialect.name, "success").Inc()
	storageRowsWritten.WithLabelValues(s.dialect.name).Observe(float64(len(table.Records)))
	logger.Debug("Saved table",
		logger.String("store", s.dialect.name),
		logger.String("symbol", table.Symbol),
		logger.String("session", string(table.Session)),
		logger.Int("rows", len(table.Records)),
	)
	return nil
}

func (s *tableStore) replaceTable(ctx context.Context, table *orb.Table) error {
	// Use transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.dialect.bind(deleteTableQuery),
		table.Symbol, string(table.Session), table.OpeningMinutes); err != nil {
		return fmt.Errorf("failed to delete table rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.bind(insertRecordQuery))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	updatedAt := s.now().UTC()
	for i := range table.Records {
		rec := &table.Records[i]
		doc, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.Date, err)
		}
		if _, err := stmt.ExecContext(ctx,
			table.Symbol,
			string(table.Session),
			table.OpeningMinutes,
			rec.Date,
			string(doc),
			updatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.Date, err)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database is reachable
func (s *tableStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetTable retrieves a table, or ErrTableNotFound
func (s *tableStore) GetTable(ctx context.Context, key TableKey) (*orb.Table, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.bind(selectTableQuery),
		key.Symbol, string(key.Session), key.OpeningMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	defer rows.Close()

	table := &orb.Table{
		Symbol:         key.Symbol,
		Session:        key.Session,
		OpeningMinutes: key.OpeningMinutes,
	}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec models.DayRangeRecord
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		table.Records = append(table.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(table.Records) == 0 {
		return nil, fmt.Errorf("%w: %s/%s/%d", ErrTableNotFound, key.Symbol, key.Session, key.OpeningMinutes)
	}
	return table, nil
}

// ListTables lists the stored tables
func (s *tableStore) ListTables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var infos []TableInfo
	for rows.Next() {
		var (
			info      TableInfo
			sessionID string
			updatedAt sqlTime
		)
		if err := rows.Scan(
			&info.Symbol,
			&sessionID,
			&info.OpeningMinutes,
			&info.Rows,
			&info.FirstDate,
			&info.LastDate,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		info.Session = session.ID(sessionID)
		info.UpdatedAt = updatedAt.Time
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return infos, nil
}

// sqlTime scans timestamps that aggregate functions may return as text
type sqlTime struct {
	Time time.Time
}

var sqlTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Scan implements sql.Scanner
func (t *sqlTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqlTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}
