package api

import (
	"time"

	"CricketSync/internal/logging"
	"CricketSync/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HeaderRequestID 请求ID响应头
const HeaderRequestID = "X-Request-ID"

// RequestLogger 记录请求日志和 HTTP 指标，沿用或生成请求ID
func RequestLogger(logger *logrus.Logger, recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		recorder.RecordHTTPRequest(c.Request.Method, route, status, elapsed)

		entry := logger.WithFields(logrus.Fields{
			logging.FieldRequestID:  requestID,
			"method":                c.Request.Method,
			"path":                  c.Request.URL.Path,
			"status":                status,
			logging.FieldDurationMS: elapsed.Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			entry.Error("请求处理失败")
		case status >= 400:
			entry.Warn("请求异常")
		default:
			entry.Debug("请求完成")
		}
	}
}
