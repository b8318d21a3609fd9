package adapter

import (
	"context"
	"errors"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"

	"github.com/sirupsen/logrus"
)

const defaultBackoff = 500 * time.Millisecond

// retryingProvider 给任意 MatchProvider 加上重试（线性退避，感知 ctx）
type retryingProvider struct {
	inner       interfaces.MatchProvider
	logger      *logrus.Logger
	maxAttempts int
	backoffFn   func(attempt int) time.Duration
}

// NewRetryingProvider maxAttempts <= 1 时直接返回 inner，不重试
func NewRetryingProvider(inner interfaces.MatchProvider, logger *logrus.Logger, maxAttempts int, backoff time.Duration) interfaces.MatchProvider {
	if maxAttempts <= 1 {
		return inner
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &retryingProvider{
		inner:       inner,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffFn: func(attempt int) time.Duration {
			return time.Duration(attempt) * backoff
		},
	}
}

func (r *retryingProvider) FetchAllMatches(ctx context.Context) ([]model.MatchSummary, error) {
	return retry(ctx, r, "FetchAllMatches", func() ([]model.MatchSummary, error) {
		return r.inner.FetchAllMatches(ctx)
	})
}

func (r *retryingProvider) FetchCurrentMatches(ctx context.Context) ([]model.MatchSummary, error) {
	return retry(ctx, r, "FetchCurrentMatches", func() ([]model.MatchSummary, error) {
		return r.inner.FetchCurrentMatches(ctx)
	})
}

func (r *retryingProvider) FetchMatchDetails(ctx context.Context, id string) (*model.MatchDetail, error) {
	return retry(ctx, r, "FetchMatchDetails", func() (*model.MatchDetail, error) {
		return r.inner.FetchMatchDetails(ctx, id)
	})
}

func retry[T any](ctx context.Context, r *retryingProvider, op string, call func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == r.maxAttempts || errors.Is(err, context.Canceled) {
			break
		}

		r.logger.WithError(err).WithFields(logrus.Fields{
			"op":           op,
			"attempt":      attempt,
			"max_attempts": r.maxAttempts,
		}).Warn("数据源请求失败，准备重试")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.backoffFn(attempt)):
		}
	}
	return zero, lastErr
}
