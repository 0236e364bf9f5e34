package data

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/config"
	"github.com/mohamedkhairy/session-range-stats/internal/storage"
)

// ErrUnknownSource is returned when no factory is registered for a bar source
var ErrUnknownSource = errors.New("unknown bar source")

// SourceFunc opens a bar source from configuration
type SourceFunc func(cfg *config.Config, location *time.Location) (storage.BarStorage, error)

// SourceFactory creates bar sources by name
type SourceFactory struct {
	factories map[string]SourceFunc
}

// NewSourceFactory creates a factory with the csv and postgres sources registered
func NewSourceFactory() *SourceFactory {
	factory := &SourceFactory{
		factories: make(map[string]SourceFunc),
	}

	// Register built-in sources
	factory.Register("csv", func(cfg *config.Config, location *time.Location) (storage.BarStorage, error) {
		return NewCSVStore(cfg.Bars.CSVDir, location)
	})
	factory.Register("postgres", func(cfg *config.Config, location *time.Location) (storage.BarStorage, error) {
		return storage.NewPostgresStore(cfg.Database, location)
	})

	return factory
}

// Create opens the source configured by BAR_SOURCE
func (f *SourceFactory) Create(cfg *config.Config) (storage.BarStorage, error) {
	factoryFunc, exists := f.factories[cfg.Bars.Source]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, cfg.Bars.Source)
	}

	location, err := time.LoadLocation(cfg.Bars.Timezone)
	if err != nil {
		return nil, err
	}
	return factoryFunc(cfg, location)
}

// Register registers a source, replacing any source of the same name
func (f *SourceFactory) Register(name string, factoryFunc SourceFunc) {
	f.factories[name] = factoryFunc
}

// List returns the registered source names
func (f *SourceFactory) List() []string {
	names := make([]string, 0, len(f.factories))
	for name := range f.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
