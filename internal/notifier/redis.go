package notifier

import (
	"context"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisPublisher 把 match-updated 发布到 Redis 频道，由各实例的 Relay 转发给本地订阅端
// 发布失败时退回本地广播
type RedisPublisher struct {
	rdb      *redis.Client
	channel  string
	fallback interfaces.MatchPublisher
	logger   *logrus.Logger
}

var _ interfaces.MatchPublisher = (*RedisPublisher)(nil)

func NewRedisPublisher(rdb *redis.Client, channel string, fallback interfaces.MatchPublisher, logger *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel, fallback: fallback, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, match *model.Match) {
	if match == nil {
		return
	}
	payload, err := EncodeMatchUpdated(match)
	if err != nil {
		p.logger.WithError(err).WithField(logging.FieldMatchID, match.ID).Error("编码match-updated失败")
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			logging.FieldMatchID: match.ID,
			"channel":            p.channel,
		}).Warn("Redis发布失败，改为本地广播")
		if p.fallback != nil {
			p.fallback.Publish(ctx, match)
		}
	}
}

// Relay 订阅 Redis 频道并转发到本地 Hub，直到 ctx 结束；断线由 go-redis 自动重连
func Relay(ctx context.Context, rdb *redis.Client, channel string, hub *Hub, logger *logrus.Logger) {
	sub := rdb.Subscribe(ctx, channel)
	defer func() {
		if err := sub.Close(); err != nil {
			logger.WithError(err).Debug("关闭Redis订阅失败")
		}
	}()

	logger.WithField("channel", channel).Info("Redis中继已启动")
	ch := sub.Channel(redis.WithChannelHealthCheckInterval(30 * time.Second))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			hub.Broadcast([]byte(msg.Payload))
		}
	}
}
