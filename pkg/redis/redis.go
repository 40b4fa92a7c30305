package redis

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
)

var (
	redisClient *redis.Client
	once        = &sync.Once{}
	initErr     error
)

// Init connects the shared client once; later calls return the first result
func Init(ctx context.Context, url string) error {
	once.Do(func() {
		opt, err := redis.ParseURL(url)
		if err != nil {
			initErr = err
			return
		}
		rdb := redis.NewClient(opt)
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			initErr = err
			return
		}
		redisClient = rdb
	})
	return initErr
}

func GetClient() *redis.Client {
	return redisClient
}
