package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/wallet/internal/config"
	"github.com/sirupsen/logrus"
)

// InitRedis connects to Redis. It returns nil when Redis is disabled or
// unreachable; callers run without the cache in that case.
func InitRedis(ctx context.Context, c config.RedisConfig, log *logrus.Entry) *redis.Client {
	if !c.Enabled {
		log.Info("Redis disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Host + ":" + c.Port,
		Password: c.Password,
		DB:       c.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis connection failed, continuing without Redis")
		rdb.Close()
		return nil
	}

	log.WithField("addr", c.Host+":"+c.Port).Info("Redis connection established")
	return rdb
}
