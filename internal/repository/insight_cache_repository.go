package repository

import (
	"assessment_backend/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// InsightCacheRepository de-duplicates enrichment calls across page
// back/forward navigation within one attempt.
type InsightCacheRepository struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewInsightCacheRepository(rdb *redis.Client, ttl time.Duration) *InsightCacheRepository {
	return &InsightCacheRepository{Redis: rdb, TTL: ttl}
}

func insightKey(toolID string, clientID uint, subdomainKey string) string {
	return fmt.Sprintf("insight:%s:%d:%s", toolID, clientID, subdomainKey)
}

// Get returns the cached insight for one subdomain, or nil on a miss.
func (r *InsightCacheRepository) Get(ctx context.Context, toolID string, clientID uint, subdomainKey string) (*model.SubdomainInsight, error) {
	val, err := r.Redis.Get(ctx, insightKey(toolID, clientID, subdomainKey)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var insight model.SubdomainInsight
	if err := json.Unmarshal([]byte(val), &insight); err != nil {
		return nil, err
	}
	return &insight, nil
}

func (r *InsightCacheRepository) Set(ctx context.Context, toolID string, clientID uint, subdomainKey string, insight *model.SubdomainInsight) error {
	data, err := json.Marshal(insight)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, insightKey(toolID, clientID, subdomainKey), data, r.TTL).Err()
}

// Clear drops the cached insights for the given subdomain keys of one attempt.
func (r *InsightCacheRepository) Clear(ctx context.Context, toolID string, clientID uint, subdomainKeys []string) error {
	if len(subdomainKeys) == 0 {
		return nil
	}
	keys := make([]string, len(subdomainKeys))
	for i, k := range subdomainKeys {
		keys[i] = insightKey(toolID, clientID, k)
	}
	return r.Redis.Del(ctx, keys...).Err()
}
