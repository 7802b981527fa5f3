package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"anoa.com/engagementledger/pkg/apperror"
	"anoa.com/engagementledger/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles abuse-prone writes with a per-actor cooldown in
// Redis. Without a Redis client every request passes.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Limit allows one request per actor per window for the named action.
// Must run after RequireAuth so the actor is known.
func (rl *RateLimiter) Limit(action string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.client == nil {
			c.Next()
			return
		}

		actorID, err := response.GetActorID(c)
		if err != nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:actor:%s:%s", actorID, action)
		wasSet, err := rl.client.SetNX(c.Request.Context(), key, "locked", window).Result()
		if err != nil {
			// Fail open, the limiter is protection, not a dependency
			log.Printf("rate limit check failed for %s: %v", key, err)
			c.Next()
			return
		}

		if !wasSet {
			ttl, _ := rl.client.TTL(c.Request.Context(), key).Result()
			msg := fmt.Sprintf("too many %s requests, retry in %s", action, ttl.Round(time.Second))
			response.Error(c, apperror.New(http.StatusTooManyRequests, msg, nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
