package engagement

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/engagementledger/internal/entity"
	engagementDto "anoa.com/engagementledger/internal/modules/engagement/dto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// countsCacheTTL bounds how long counts for an inactive target stay cached.
const countsCacheTTL = 7 * 24 * time.Hour

// countsCache is a cache-aside hash per target in front of the aggregate
// fold. Correctness never depends on it: writes invalidate, reads rebuild on
// miss, and a nil client degrades to straight DB folds.
type countsCache struct {
	client *redis.Client
}

func countsKey(kind entity.TargetKind, targetID uuid.UUID) string {
	return fmt.Sprintf("counts:%s:%s", kind, targetID.String())
}

func (c *countsCache) Get(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID) (*engagementDto.TargetCounts, bool) {
	if c.client == nil {
		return nil, false
	}

	val, err := c.client.HGetAll(ctx, countsKey(kind, targetID)).Result()
	if err != nil || len(val) == 0 {
		return nil, false
	}

	var counts engagementDto.TargetCounts
	fields := map[string]*int64{
		"likes":        &counts.Likes,
		"dislikes":     &counts.Dislikes,
		"bookmarks":    &counts.Bookmarks,
		"claps":        &counts.Claps,
		"rating_count": &counts.RatingCount,
		"rating_sum":   &counts.RatingSum,
		"reports":      &counts.Reports,
	}
	for name, dst := range fields {
		if raw, ok := val[name]; ok {
			fmt.Sscan(raw, dst)
		}
	}
	if counts.RatingCount > 0 {
		counts.AverageRating = float64(counts.RatingSum) / float64(counts.RatingCount)
	}
	return &counts, true
}

func (c *countsCache) Set(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID, counts engagementDto.TargetCounts) {
	if c.client == nil {
		return
	}

	key := countsKey(kind, targetID)
	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"likes", counts.Likes,
		"dislikes", counts.Dislikes,
		"bookmarks", counts.Bookmarks,
		"claps", counts.Claps,
		"rating_count", counts.RatingCount,
		"rating_sum", counts.RatingSum,
		"reports", counts.Reports,
	)
	pipe.Expire(ctx, key, countsCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		// Data is already consistent in the DB, just log
		log.Printf("counts cache populate failed: %v", err)
	}
}

func (c *countsCache) Invalidate(ctx context.Context, kind entity.TargetKind, targetID uuid.UUID) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, countsKey(kind, targetID)).Err(); err != nil {
		log.Printf("counts cache invalidate failed: %v", err)
	}
}
