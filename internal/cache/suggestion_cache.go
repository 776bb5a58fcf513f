// internal/cache/suggestion_cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	urgencySummaryKeyPrefix = "suggestions:urgency_summary"
	summaryScanBatchSize    = 100
)

// UrgencySummaryCache caches the pending-suggestion urgency distribution,
// the hottest dashboard query. Every suggestion write invalidates it.
type UrgencySummaryCache interface {
	GetSummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, bool, error)
	SetSummary(ctx context.Context, filter domain.SuggestionFilter, summaries []domain.UrgencySummary) error
	InvalidateAll(ctx context.Context) error
}

type redisUrgencySummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopUrgencySummaryCache struct{}

func NewUrgencySummaryCache(cfg config.CacheConfig) (UrgencySummaryCache, error) {
	if !cfg.Enabled {
		return &noopUrgencySummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisUrgencySummaryCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopUrgencySummaryCache() UrgencySummaryCache {
	return &noopUrgencySummaryCache{}
}

func (c *redisUrgencySummaryCache) GetSummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, bool, error) {
	key := buildUrgencySummaryKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summaries []domain.UrgencySummary
	if err := json.Unmarshal(payload, &summaries); err != nil {
		return nil, false, fmt.Errorf("decode urgency summary cache: %w", err)
	}

	return summaries, true, nil
}

func (c *redisUrgencySummaryCache) SetSummary(ctx context.Context, filter domain.SuggestionFilter, summaries []domain.UrgencySummary) error {
	key := buildUrgencySummaryKey(filter)
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode urgency summary cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisUrgencySummaryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, urgencySummaryKeyPrefix, summaryScanBatchSize)
}

func (n *noopUrgencySummaryCache) GetSummary(ctx context.Context, filter domain.SuggestionFilter) ([]domain.UrgencySummary, bool, error) {
	return nil, false, nil
}

func (n *noopUrgencySummaryCache) SetSummary(ctx context.Context, filter domain.SuggestionFilter, summaries []domain.UrgencySummary) error {
	return nil
}

func (n *noopUrgencySummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildUrgencySummaryKey(filter domain.SuggestionFilter) string {
	return fmt.Sprintf("%s:%s", urgencySummaryKeyPrefix, suggestionFilterHash(filter))
}

func suggestionFilterHash(filter domain.SuggestionFilter) string {
	parts := []string{}

	if filter.Type != "" {
		parts = append(parts, "type="+string(filter.Type))
	}
	if filter.Urgency != "" {
		parts = append(parts, "urgency="+string(filter.Urgency))
	}
	if len(filter.ProductIDs) > 0 {
		parts = append(parts, "product_ids="+joinIDs(filter.ProductIDs))
	}
	if len(filter.LocationIDs) > 0 {
		parts = append(parts, "location_ids="+joinIDs(filter.LocationIDs))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinIDs(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(c[i])
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
