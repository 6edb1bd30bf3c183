package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCache caches resolved customer profiles so bursts of messages from
// the same customer don't hammer the Graph API.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	cache := &RedisCache{
		rdb: rdb,
		ttl: ttl,
	}

	if err := cache.Ping(); err != nil {
		log.Fatal().Err(err).
			Str("addr", addr).
			Int("db", db).
			Msg("Redis connection failed")
	} else {
		log.Info().
			Str("addr", addr).
			Int("db", db).
			Msg("Redis connected successfully")
	}

	return cache
}

func (c *RedisCache) Ping() error {
	return c.rdb.Ping(context.Background()).Err()
}

func profileKey(customerID string) string {
	return fmt.Sprintf("customer_profile:%s", customerID)
}

// GetProfile returns the cached profile for a customer, if present.
func (c *RedisCache) GetProfile(ctx context.Context, customerID string) (*Profile, bool) {
	data, err := c.rdb.Get(ctx, profileKey(customerID)).Bytes()
	if err != nil {
		return nil, false
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, false
	}

	return &profile, true
}

// SetProfile stores a resolved profile with the cache TTL.
func (c *RedisCache) SetProfile(ctx context.Context, customerID string, profile Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, profileKey(customerID), data, c.ttl).Err()
}
