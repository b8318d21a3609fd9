package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CricketSync/internal/interfaces"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LocalMatchLocker 进程内按比赛ID互斥
type LocalMatchLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

var _ interfaces.MatchLocker = (*LocalMatchLocker)(nil)

func NewLocalMatchLocker() *LocalMatchLocker {
	return &LocalMatchLocker{locks: make(map[string]*keyLock)}
}

// Lock 阻塞直到拿到锁或 ctx 结束
func (l *LocalMatchLocker) Lock(ctx context.Context, matchID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[matchID]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[matchID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(matchID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			l.release(matchID, kl)
		})
	}, nil
}

func (l *LocalMatchLocker) release(matchID string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, matchID)
	}
}

// RedisMatchLocker 多实例部署时用 redislock 做跨进程互斥
type RedisMatchLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *logrus.Logger
}

var _ interfaces.MatchLocker = (*RedisMatchLocker)(nil)

func NewRedisMatchLocker(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisMatchLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisMatchLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		logger: logger,
	}
}

// Lock ctx 没有 deadline 时 redislock 最多重试到 ttl
func (l *RedisMatchLocker) Lock(ctx context.Context, matchID string) (func(), error) {
	key := fmt.Sprintf("lock:cricket:match:%s", matchID)
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if err == redislock.ErrNotObtained {
		return nil, fmt.Errorf("比赛%s正在被其他实例同步: %w", matchID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("获取redis锁失败: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if releaseErr := lock.Release(context.Background()); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
				l.logger.WithError(releaseErr).WithField("key", key).Warn("释放redis锁失败")
			}
		})
	}, nil
}
