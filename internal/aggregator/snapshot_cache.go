package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eldercare-survey/internal/domain"
)

const DefaultSnapshotTTL = 10 * time.Minute

// SnapshotCache stores the last full rollup of a month as JSON. It is a
// read model only: every write replaces the month's entry wholesale.
type SnapshotCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache ttl <= 0 falls back to DefaultSnapshotTTL.
func NewSnapshotCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{kv: kv, ttl: ttl, logger: logger}
}

func SnapshotKey(month string) string {
	return fmt.Sprintf("survey:rollup:%s", month)
}

// Store writes result under its month key.
func (c *SnapshotCache) Store(ctx context.Context, result domain.AggregateResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal rollup: %w", err)
	}
	key := SnapshotKey(result.Month)
	if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	c.logger.Debug("Updated rollup snapshot",
		zap.String("month", result.Month),
		zap.String("key", key),
		zap.Int("regions", len(result.Regions)),
	)
	return nil
}

// Load decodes the snapshot stored for month, the same way a dashboard reading
// the key directly would. Returns ErrCacheMiss when none is stored.
func (c *SnapshotCache) Load(ctx context.Context, month string) (domain.AggregateResult, error) {
	raw, err := c.kv.Get(ctx, SnapshotKey(month))
	if err != nil {
		return domain.AggregateResult{}, err
	}
	var out domain.AggregateResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return domain.AggregateResult{}, fmt.Errorf("failed to unmarshal rollup: %w", err)
	}
	return out, nil
}
