package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohamedkhairy/session-range-stats/internal/config"
	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS bars (
		symbol    TEXT             NOT NULL,
		timestamp TIMESTAMPTZ      NOT NULL,
		open      DOUBLE PRECISION NOT NULL,
		high      DOUBLE PRECISION NOT NULL,
		low       DOUBLE PRECISION NOT NULL,
		close     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (symbol, timestamp)
	);
	CREATE TABLE IF NOT EXISTS orb_records (
		symbol          TEXT        NOT NULL,
		session         TEXT        NOT NULL,
		opening_minutes INTEGER     NOT NULL,
		date            TEXT        NOT NULL,
		record          JSONB       NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (symbol, session, opening_minutes, date)
	);
`

// PostgresStore implements BarStorage and TableStorage for Postgres
type PostgresStore struct {
	*tableStore
	db       *sql.DB
	location *time.Location
}

// NewPostgresStore connects to Postgres and creates the schema
func NewPostgresStore(dbConfig config.DatabaseConfig, location *time.Location) (*PostgresStore, error) {
	// Build connection string
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	// Open database connection
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(db, RetryConfig{MaxRetries: dbConfig.MaxRetries, RetryDelay: dbConfig.RetryDelay}, location)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to Postgres",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)
	return store, nil
}

func newPostgresStore(db *sql.DB, retry RetryConfig, location *time.Location) *PostgresStore {
	if location == nil {
		location = time.UTC
	}
	return &PostgresStore{
		tableStore: &tableStore{db: db, dialect: postgresDialect, retry: retry, now: time.Now},
		db:         db,
		location:   location,
	}
}

// Migrate creates the bars and orb_records tables
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// WriteBars upserts bars in one transaction
func (p *PostgresStore) WriteBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, timestamp, open, high, low, close)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, timestamp) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	written := 0
	for i := range bars {
		bar := &bars[i]
		if err := bar.Validate(); err != nil {
			logger.Warn("Invalid bar, skipping",
				logger.ErrorField(err),
				logger.String("symbol", bar.Symbol),
			)
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			bar.Symbol,
			bar.Timestamp.UTC(),
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
		); err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("Wrote bars to Postgres", logger.Int("count", written))
	return nil
}

// GetBars retrieves time-ascending bars for a symbol
func (p *PostgresStore) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	var (
		conds = []string{"symbol = $1"}
		args  = []interface{}{symbol}
	)
	if !start.IsZero() {
		args = append(args, start)
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !end.IsZero() {
		args = append(args, end)
		conds = append(conds, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	query := `
		SELECT symbol, timestamp, open, high, low, close
		FROM bars
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY timestamp ASC
	`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var bar models.Bar
		if err := rows.Scan(
			&bar.Symbol,
			&bar.Timestamp,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bar.Timestamp = bar.Timestamp.In(p.location)
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bars, nil
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	logger.Info("Postgres store closed")
	return nil
}
