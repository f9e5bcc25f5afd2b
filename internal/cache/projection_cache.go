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

	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/domain"
)

const (
	projectionKeyPrefix     = "projection"
	projectionScanBatchSize = 100
)

type ProjectionCache interface {
	Get(ctx context.Context, version string, filter domain.Filters) (domain.ProjectionResult, bool, error)
	Set(ctx context.Context, version string, filter domain.Filters, result domain.ProjectionResult) error
	InvalidateAll(ctx context.Context) error
}

type redisProjectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopProjectionCache struct{}

func NewProjectionCache(cfg config.CacheConfig) (ProjectionCache, error) {
	if !cfg.Enabled {
		return &noopProjectionCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisProjectionCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopProjectionCache() ProjectionCache {
	return &noopProjectionCache{}
}

func (c *redisProjectionCache) Get(ctx context.Context, version string, filter domain.Filters) (domain.ProjectionResult, bool, error) {
	key := buildProjectionKey(version, filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.ProjectionResult{}, false, nil
	}
	if err != nil {
		return domain.ProjectionResult{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ProjectionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.ProjectionResult{}, false, fmt.Errorf("decode projection cache: %w", err)
	}

	return result, true, nil
}

func (c *redisProjectionCache) Set(ctx context.Context, version string, filter domain.Filters, result domain.ProjectionResult) error {
	key := buildProjectionKey(version, filter)
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode projection cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisProjectionCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, projectionKeyPrefix, projectionScanBatchSize)
}

func (n *noopProjectionCache) Get(ctx context.Context, version string, filter domain.Filters) (domain.ProjectionResult, bool, error) {
	return domain.ProjectionResult{}, false, nil
}

func (n *noopProjectionCache) Set(ctx context.Context, version string, filter domain.Filters, result domain.ProjectionResult) error {
	return nil
}

func (n *noopProjectionCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildProjectionKey(version string, filter domain.Filters) string {
	return fmt.Sprintf("%s:%s:%s", projectionKeyPrefix, version, FilterHash(filter))
}

// FilterHash is a stable digest of the filters after defaults are applied; list order
// and case do not matter.
func FilterHash(filter domain.Filters) string {
	filter = filter.WithDefaults()
	parts := []string{
		"mode=" + string(filter.Mode),
		fmt.Sprintf("threshold=%.2f", filter.Threshold),
	}

	if m := strings.ToLower(strings.TrimSpace(filter.Market)); m != "" && m != "all" {
		parts = append(parts, "market="+m)
	}
	if len(filter.Distributors) > 0 {
		parts = append(parts, "distributors="+joinStrings(filter.Distributors))
	}
	if len(filter.Varieties) > 0 {
		parts = append(parts, "varieties="+joinStrings(filter.Varieties))
	}
	if len(filter.Years) > 0 {
		parts = append(parts, "years="+joinStrings(filter.Years))
	}
	if filter.Mode == domain.ModeForward {
		parts = append(parts, fmt.Sprintf("horizon=%d", filter.Horizon))
	}
	if filter.From != nil {
		parts = append(parts, "from="+filter.From.Key())
	}
	if filter.To != nil {
		parts = append(parts, "to="+filter.To.Key())
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(strings.ToLower(c[i]))
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
