package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/reclamacidade/internal/engagement"
)

type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RankingCache guarda o ranking mensal serializado em JSON no Redis.
type RankingCache struct {
	client redisCommander
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRankingCache(client redisCommander, ttl time.Duration, logger zerolog.Logger) *RankingCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RankingCache{client: client, ttl: ttl, logger: logger.With().Str("component", "ranking_cache").Logger()}
}

func rankingKey(city string, month, year int) string {
	return fmt.Sprintf("ranking:%s:%04d-%02d", city, year, month)
}

// Load devolve false em miss ou falha; o chamador lê do banco.
func (c *RankingCache) Load(ctx context.Context, city string, month, year int) ([]engagement.RankingEntry, bool) {
	data, err := c.client.Get(ctx, rankingKey(city, month, year)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("city", city).Msg("cache: falha ao ler ranking")
		}
		return nil, false
	}
	var entries []engagement.RankingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *RankingCache) Store(ctx context.Context, city string, month, year int, entries []engagement.RankingEntry) {
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, rankingKey(city, month, year), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("city", city).Msg("cache: falha ao gravar ranking")
	}
}

func (c *RankingCache) Invalidate(ctx context.Context, city string, month, year int) error {
	return c.client.Del(ctx, rankingKey(city, month, year)).Err()
}
