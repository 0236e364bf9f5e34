package data

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/storage"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

// DefaultBatchSize is the number of bars written per WriteBars call
const DefaultBatchSize = 5000

// Copy reads every bar of each symbol from src and writes it to dst in
// batches. It returns the number of bars written per symbol.
func Copy(ctx context.Context, src, dst storage.BarStorage, symbols []string, batchSize int) (map[string]int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	written := make(map[string]int, len(symbols))
	for _, symbol := range symbols {
		bars, err := src.GetBars(ctx, symbol, time.Time{}, time.Time{})
		if err != nil {
			return written, fmt.Errorf("read %s: %w", symbol, err)
		}

		for start := 0; start < len(bars); start += batchSize {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			end := start + batchSize
			if end > len(bars) {
				end = len(bars)
			}
			if err := dst.WriteBars(ctx, bars[start:end]); err != nil {
				return written, fmt.Errorf("write %s: %w", symbol, err)
			}
			written[symbol] += end - start
		}

		logger.Info("Copied bars",
			logger.String("symbol", symbol),
			logger.Int("bars", written[symbol]),
		)
	}
	return written, nil
}
