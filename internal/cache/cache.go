// Package cache ofrece un caché de respuestas respaldado en Redis. Todas
// las fallas degradan a cache-miss: Redis caído nunca rompe una petición.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache envuelve el cliente Redis con serialización JSON.
type Cache struct {
	client *redis.Client
}

// New crea el caché.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// GetJSON deserializa el valor en dest. Devuelve false ante miss o error.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("cache: get falló")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache: valor corrupto")
		return false
	}
	return true
}

// SetJSON guarda el valor con TTL. Best-effort.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache: valor no serializable")
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache: set falló")
	}
}

// InvalidarPrefijo borra todas las llaves bajo el prefijo dado.
func (c *Cache) InvalidarPrefijo(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Debug().Err(err).Str("prefix", prefix).Msg("cache: scan falló")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			log.Debug().Err(err).Str("prefix", prefix).Msg("cache: del falló")
		}
	}
}
