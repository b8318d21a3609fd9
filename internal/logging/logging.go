package logging

import (
	"io"
	"os"
	"strings"

	"CricketSync/internal/config"

	"github.com/sirupsen/logrus"
)

// 日志字段名
const (
	FieldCycle      = "cycle"
	FieldMatchID    = "match_id"
	FieldEndpoint   = "endpoint"
	FieldOutcome    = "outcome"
	FieldClientID   = "client_id"
	FieldDurationMS = "duration_ms"
	FieldCount      = "count"
	FieldRequestID  = "request_id"
)

// New 按配置创建 logrus 日志器（text/json）
func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput 指定输出目标，测试中写入 buffer
func NewWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard 丢弃所有输出的日志器
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
