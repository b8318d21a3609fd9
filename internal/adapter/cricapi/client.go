package cricapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CricketSync/internal/config"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/logging"
	"CricketSync/internal/metrics"
	"CricketSync/internal/model"
	"CricketSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.cricapi.com/v1"
	defaultTimeout = 10 * time.Second

	EndpointMatches        = "matches"
	EndpointCurrentMatches = "currentMatches"
	EndpointMatchInfo      = "match_info"
)

var (
	// ErrProviderStatus 非 2xx 响应
	ErrProviderStatus = errors.New("cricapi: unexpected status")
	// ErrProviderFailure 响应信封 status 不是 success
	ErrProviderFailure = errors.New("cricapi: request failed")
	// ErrEmptyData 响应缺少 data 字段
	ErrEmptyData = errors.New("cricapi: response has no data")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 客户端可选项
type Option func(c *Client)

// WithHTTPDoer 替换底层 HTTP 客户端（测试注入）
func WithHTTPDoer(doer httpDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// Client CricAPI 数据源客户端
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient httpDoer
	logger     *logrus.Logger
	recorder   *metrics.Recorder
}

var _ interfaces.MatchProvider = (*Client)(nil)

// NewClient 创建 CricAPI 客户端
func NewClient(cfg *config.ProviderConfig, logger *logrus.Logger, recorder *metrics.Recorder, opts ...Option) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:  normalizeBaseURL(cfg.BaseURL),
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		logger:   logger,
		recorder: recorder,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = httpclient.NewHTTPClient(cfg, logger)
	}
	return c
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// FetchAllMatches GET /matches?offset=0（只取第一页）
func (c *Client) FetchAllMatches(ctx context.Context) ([]model.MatchSummary, error) {
	return fetch[[]model.MatchSummary](ctx, c, EndpointMatches, nil)
}

// FetchCurrentMatches GET /currentMatches?offset=0
func (c *Client) FetchCurrentMatches(ctx context.Context) ([]model.MatchSummary, error) {
	return fetch[[]model.MatchSummary](ctx, c, EndpointCurrentMatches, nil)
}

// FetchMatchDetails GET /match_info?id=ID
func (c *Client) FetchMatchDetails(ctx context.Context, id string) (*model.MatchDetail, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("cricapi: match id is required")
	}
	detail, err := fetch[*model.MatchDetail](ctx, c, EndpointMatchInfo, url.Values{"id": {id}})
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, ErrEmptyData
	}
	return detail, nil
}

// fetch 发起请求并解析信封；失败时记录日志并返回零值，不返回部分数据
func fetch[T any](ctx context.Context, c *Client, endpoint string, params url.Values) (T, error) {
	var zero T
	start := time.Now()

	data, err := c.get(ctx, endpoint, params)
	var out T
	if err == nil {
		if decodeErr := json.Unmarshal(data, &out); decodeErr != nil {
			err = fmt.Errorf("cricapi: 解析%s数据失败: %w", endpoint, decodeErr)
		}
	}

	elapsed := time.Since(start)
	c.recorder.RecordProviderRequest(endpoint, elapsed, err)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			logging.FieldEndpoint:   endpoint,
			logging.FieldDurationMS: elapsed.Milliseconds(),
			"url":                   c.redactedURL(endpoint, params),
		}).Warn("CricAPI 请求失败，本次无数据")
		return zero, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(endpoint, params, c.apiKey), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cricapi: 请求%s失败: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Debug("关闭CricAPI响应体失败")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrProviderStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope model.CricAPIResponse[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("cricapi: 解析%s响应失败: %w", endpoint, err)
	}
	if envelope.Status != "" && !strings.EqualFold(envelope.Status, "success") {
		return nil, fmt.Errorf("%w: %s", ErrProviderFailure, envelope.Reason)
	}
	trimmed := strings.TrimSpace(string(envelope.Data))
	if trimmed == "" || trimmed == "null" {
		return nil, ErrEmptyData
	}
	if envelope.Info != nil {
		c.logger.WithFields(logrus.Fields{
			logging.FieldEndpoint: endpoint,
			"hits_today":          envelope.Info.HitsToday,
			"hits_limit":          envelope.Info.HitsLimit,
		}).Debug("CricAPI 配额")
	}
	return envelope.Data, nil
}

// buildURL 固定 offset=0，不请求后续分页
func (c *Client) buildURL(endpoint string, params url.Values, apiKey string) string {
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("offset", "0")
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return c.baseURL + "/" + endpoint + "?" + q.Encode()
}

func (c *Client) redactedURL(endpoint string, params url.Values) string {
	return c.buildURL(endpoint, params, "REDACTED")
}
