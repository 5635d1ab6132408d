package repository

import (
	"assessment_backend/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DraftRepository holds in-progress page field state in Redis so page
// navigation never waits on MySQL. Keys follow "{toolId}_draft_{clientId}".
type DraftRepository struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewDraftRepository(rdb *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{Redis: rdb, TTL: ttl}
}

func draftKey(toolID string, clientID uint) string {
	return fmt.Sprintf("%s_draft_%d", toolID, clientID)
}

// Get returns the cached draft blob, or nil on a miss.
func (r *DraftRepository) Get(ctx context.Context, toolID string, clientID uint) (*model.DraftBlob, error) {
	val, err := r.Redis.Get(ctx, draftKey(toolID, clientID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var blob model.DraftBlob
	if err := json.Unmarshal([]byte(val), &blob); err != nil {
		return nil, err
	}
	return &blob, nil
}

func (r *DraftRepository) Save(ctx context.Context, toolID string, clientID uint, blob *model.DraftBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, draftKey(toolID, clientID), data, r.TTL).Err()
}

func (r *DraftRepository) Delete(ctx context.Context, toolID string, clientID uint) error {
	return r.Redis.Del(ctx, draftKey(toolID, clientID)).Err()
}
