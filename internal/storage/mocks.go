package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

// MockBarStorage is a mock implementation of BarStorage for testing
type MockBarStorage struct {
	Bars     []models.Bar
	WriteErr error
	GetErr   error
	Writes   int
}

func (m *MockBarStorage) WriteBars(ctx context.Context, bars []models.Bar) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Writes++
	m.Bars = append(m.Bars, bars...)
	return nil
}

func (m *MockBarStorage) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	var result []models.Bar
	for _, bar := range m.Bars {
		if bar.Symbol != symbol {
			continue
		}
		if !start.IsZero() && bar.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Timestamp.After(end) {
			continue
		}
		result = append(result, bar)
	}
	return result, nil
}

func (m *MockBarStorage) Close() error {
	return nil
}
