package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
)

// MemoryTableStore keeps tables in process memory. It backs TABLE_STORE=none.
type MemoryTableStore struct {
	mu      sync.Mutex
	Tables  map[TableKey]*orb.Table
	updated map[TableKey]time.Time
	Saves   int

	// SaveErr and GetErr, when set, are returned by every save or get
	SaveErr error
	GetErr  error
}

// NewMemoryTableStore creates an empty store
func NewMemoryTableStore() *MemoryTableStore {
	return &MemoryTableStore{
		Tables:  make(map[TableKey]*orb.Table),
		updated: make(map[TableKey]time.Time),
	}
}

// SaveTable stores a copy of table
func (m *MemoryTableStore) SaveTable(ctx context.Context, table *orb.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	copied := *table
	copied.Records = append([]models.DayRangeRecord(nil), table.Records...)
	m.Tables[KeyOf(table)] = &copied
	m.updated[KeyOf(table)] = time.Now().UTC()
	m.Saves++
	return nil
}

// GetTable returns the stored table, or ErrTableNotFound
func (m *MemoryTableStore) GetTable(ctx context.Context, key TableKey) (*orb.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	table, ok := m.Tables[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%d", ErrTableNotFound, key.Symbol, key.Session, key.OpeningMinutes)
	}
	return table, nil
}

// ListTables lists the stored tables by symbol and session
func (m *MemoryTableStore) ListTables(ctx context.Context) ([]TableInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]TableInfo, 0, len(m.Tables))
	for key, table := range m.Tables {
		info := TableInfo{TableKey: key, Rows: len(table.Records), UpdatedAt: m.updated[key]}
		if n := len(table.Records); n > 0 {
			info.FirstDate = table.Records[0].Date
			info.LastDate = table.Records[n-1].Date
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Symbol != infos[j].Symbol {
			return infos[i].Symbol < infos[j].Symbol
		}
		if infos[i].Session != infos[j].Session {
			return infos[i].Session < infos[j].Session
		}
		return infos[i].OpeningMinutes < infos[j].OpeningMinutes
	})
	return infos, nil
}

func (m *MemoryTableStore) Close() error {
	return nil
}
