package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce sync.Once
	redisMgr  *Manager
)

type Manager struct {
	client *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Init sets up the process-wide redis client (singleton).
func Init(c Config) error {
	var initErr error
	redisOnce.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
			PoolSize: c.PoolSize,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = err
			return
		}

		redisMgr = &Manager{client: rdb}
	})
	return initErr
}

func GetRedis() *redis.Client {
	if redisMgr == nil {
		panic("redis not initialized, call Init first")
	}
	return redisMgr.client
}

func Close() error {
	if redisMgr != nil && redisMgr.client != nil {
		return redisMgr.client.Close()
	}
	return nil
}
