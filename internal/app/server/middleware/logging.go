/**
 * 日志中间件
 * @author: sun977
 * @date: 2026.10.19
 * @description: 记录 HTTP 访问日志，慢请求单独告警
 */
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

// LoggingMiddleware 日志中间件
type LoggingMiddleware struct {
	config    *config.LoggingConfig
	skipPaths map[string]struct{}
}

// NewLoggingMiddleware 创建日志中间件
func NewLoggingMiddleware(cfg *config.LoggingConfig) *LoggingMiddleware {
	if cfg == nil {
		cfg = &config.LoggingConfig{
			Enabled:              true,
			SkipPaths:            []string{"/ping"},
			SlowRequestThreshold: time.Minute,
		}
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return &LoggingMiddleware{config: cfg, skipPaths: skip}
}

// Handler 日志处理器
func (m *LoggingMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.config.Enabled {
			c.Next()
			return
		}
		if _, skip := m.skipPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		startTime := time.Now()
		c.Next()
		logger.LogAccessRequest(c, startTime, m.config.SlowRequestThreshold)
	}
}
