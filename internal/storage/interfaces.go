package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// ErrTableNotFound is returned when no table is stored for a key
var ErrTableNotFound = errors.New("table not found")

// BarStorage defines the interface for bar storage operations
type BarStorage interface {
	// WriteBars writes bars to storage, replacing bars with the same timestamp
	WriteBars(ctx context.Context, bars []models.Bar) error

	// GetBars retrieves time-ascending bars for a symbol. A zero start or end
	// leaves that side of the range open.
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)

	// Close closes the storage connection
	Close() error
}

// TableKey identifies a stored table
type TableKey struct {
	Symbol         string     `json:"symbol"`
	Session        session.ID `json:"session"`
	OpeningMinutes int        `json:"opening_minutes"`
}

// KeyOf returns the key of a table
func KeyOf(t *orb.Table) TableKey {
	return TableKey{Symbol: t.Symbol, Session: t.Session, OpeningMinutes: t.OpeningMinutes}
}

// TableInfo summarizes a stored table
type TableInfo struct {
	TableKey
	Rows      int       `json:"rows"`
	FirstDate string    `json:"first_date"`
	LastDate  string    `json:"last_date"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableStorage defines the interface for computed table persistence
type TableStorage interface {
	// SaveTable replaces every stored row of the table's key
	SaveTable(ctx context.Context, table *orb.Table) error

	// GetTable retrieves a table, or ErrTableNotFound
	GetTable(ctx context.Context, key TableKey) (*orb.Table, error)

	// ListTables lists the stored tables
	ListTables(ctx context.Context) ([]TableInfo, error)

	// Close closes the storage connection
	Close() error
}
