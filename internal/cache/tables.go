package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/storage"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

const keyPrefix = "orb:table"

var cacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "table_cache_requests_total",
		Help: "Table cache lookups",
	},
	[]string{"result"}, // "hit", "miss" or "error"
)

// TableCache caches computed tables as JSON documents
type TableCache struct {
	kv  KV
	ttl time.Duration
}

// NewTableCache creates a cache whose entries expire after ttl
func NewTableCache(kv KV, ttl time.Duration) *TableCache {
	return &TableCache{kv: kv, ttl: ttl}
}

// Key returns the cache key of a table
func Key(key storage.TableKey) string {
	return fmt.Sprintf("%s:%s:%s:%d", keyPrefix, key.Symbol, key.Session, key.OpeningMinutes)
}

func indexKey(symbol string) string {
	return keyPrefix + "s:" + symbol
}

// Put stores a table
func (c *TableCache) Put(ctx context.Context, table *orb.Table) error {
	doc, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}

	key := Key(storage.KeyOf(table))
	if err := c.kv.Set(ctx, key, doc, c.ttl); err != nil {
		return fmt.Errorf("failed to cache table %s: %w", key, err)
	}
	if err := c.kv.SetAdd(ctx, indexKey(table.Symbol), key); err != nil {
		return fmt.Errorf("failed to index table %s: %w", key, err)
	}
	return nil
}

// Get returns a cached table, or ErrCacheMiss
func (c *TableCache) Get(ctx context.Context, key storage.TableKey) (*orb.Table, error) {
	doc, err := c.kv.Get(ctx, Key(key))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			cacheRequestsTotal.WithLabelValues("miss").Inc()
		} else {
			cacheRequestsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	var table orb.Table
	if err := json.Unmarshal(doc, &table); err != nil {
		cacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode cached table: %w", err)
	}
	cacheRequestsTotal.WithLabelValues("hit").Inc()
	return &table, nil
}

// Invalidate removes every cached table of symbol
func (c *TableCache) Invalidate(ctx context.Context, symbol string) error {
	index := indexKey(symbol)
	keys, err := c.kv.SetMembers(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to read cache index: %w", err)
	}
	if err := c.kv.Delete(ctx, append(keys, index)...); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", symbol, err)
	}
	logger.Debug("Invalidated cached tables",
		logger.String("symbol", symbol),
		logger.Int("tables", len(keys)),
	)
	return nil
}

// CachedTables is a read-through TableStorage: reads try the cache first
// and fill it from the store on a miss, saves write the store then refresh
// the cache. Cache failures are logged and never fail a call.
type CachedTables struct {
	store storage.TableStorage
	cache *TableCache
}

// NewCachedTables wraps store with cache
func NewCachedTables(store storage.TableStorage, cache *TableCache) *CachedTables {
	return &CachedTables{store: store, cache: cache}
}

// SaveTable implements storage.TableStorage
func (c *CachedTables) SaveTable(ctx context.Context, table *orb.Table) error {
	if err := c.store.SaveTable(ctx, table); err != nil {
		return err
	}
	if err := c.cache.Put(ctx, table); err != nil {
		logger.Warn("Failed to cache table",
			logger.ErrorField(err),
			logger.String("symbol", table.Symbol),
			logger.String("session", string(table.Session)),
		)
	}
	return nil
}

// GetTable implements storage.TableStorage
func (c *CachedTables) GetTable(ctx context.Context, key storage.TableKey) (*orb.Table, error) {
	table, err := c.cache.Get(ctx, key)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Table cache unavailable", logger.ErrorField(err))
	}

	table, err = c.store.GetTable(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, table); err != nil {
		logger.Warn("Failed to cache table", logger.ErrorField(err), logger.String("key", Key(key)))
	}
	return table, nil
}

// ListTables implements storage.TableStorage
func (c *CachedTables) ListTables(ctx context.Context) ([]storage.TableInfo, error) {
	return c.store.ListTables(ctx)
}

// Close implements storage.TableStorage
func (c *CachedTables) Close() error {
	return c.store.Close()
}

// Ping pings the underlying store when it supports it
func (c *CachedTables) Ping(ctx context.Context) error {
	if p, ok := c.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
