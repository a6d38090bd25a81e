package redis

import (
	"context"
	"time"

	"blackcnote/common/logger"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

var RDB *redis.Client
var RedisEnabled = false

// InitRedisClient 初始化 Redis，未配置 redis_conn_string 时保持禁用
func InitRedisClient() {
	connString := viper.GetString("redis_conn_string")
	if connString == "" {
		logger.SysLog("REDIS_CONN_STRING not set, Redis is not enabled")
		return
	}

	opt, err := redis.ParseURL(connString)
	if err != nil {
		logger.FatalLog("failed to parse Redis connection string: " + err.Error())
	}
	if db := viper.GetInt("redis_db"); db > 0 {
		opt.DB = db
	}
	RDB = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err = RDB.Ping(ctx).Result(); err != nil {
		logger.FatalLog("Redis ping test failed: " + err.Error())
	}
	RedisEnabled = true
	logger.SysLog("Redis is enabled")
}

// Options 返回当前连接参数，供 asynq 等组件复用
func Options() *redis.Options {
	if RDB == nil {
		return nil
	}
	return RDB.Options()
}

func RedisSet(key string, value string, expiration time.Duration) error {
	return RDB.Set(context.Background(), key, value, expiration).Err()
}

func RedisGet(key string) (string, error) {
	return RDB.Get(context.Background(), key).Result()
}

func RedisDel(key string) error {
	return RDB.Del(context.Background(), key).Err()
}

// RedisSetNX 用于分布式互斥，例如保证同一时刻只有一个节点派发收益
func RedisSetNX(key string, value string, expiration time.Duration) (bool, error) {
	return RDB.SetNX(context.Background(), key, value, expiration).Result()
}
