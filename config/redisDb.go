package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// BuildLockKey guards the reset-load-report sequence of a shared store.
const BuildLockKey = "order_report:build"

var ErrReportLocked = errors.New("another report build holds the lock")

var (
	rdb    *redis.Client
	locker *redislock.Client
)

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// Gives up after REDIS_CONNECT_ATTEMPTS (default 3) failed pings.
func ConnectRedisWithRetry(ctx context.Context, redisAddr string) error {
	maxAttempts := intFromEnv("REDIS_CONNECT_ATTEMPTS", 3)
	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: "",
			DB:       0, // use default DB
		})
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, redisAddr)
			return nil
		}
		_ = client.Close()
		if attempt >= maxAttempts {
			return fmt.Errorf("connect redis %s after %d attempts: %w", redisAddr, attempt, err)
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, redisAddr, err, sleep)
		time.Sleep(sleep)
	}
}

// ObtainBuildLock takes the build lock for ttl. Without a Redis connection it
// returns a nil lock and no error, so local runs need no Redis.
func ObtainBuildLock(ctx context.Context, ttl time.Duration) (*redislock.Lock, error) {
	if locker == nil {
		return nil, nil
	}
	lock, err := locker.Obtain(ctx, BuildLockKey, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrReportLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain %s: %w", BuildLockKey, err)
	}
	return lock, nil
}

// ReleaseBuildLock is safe to call with the nil lock returned when Redis is disabled.
func ReleaseBuildLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		log.Printf("failed to release %s: %v", BuildLockKey, err)
	}
}

func CloseRedis() {
	if rdb == nil {
		return
	}
	_ = rdb.Close()
	rdb = nil
	locker = nil
}
