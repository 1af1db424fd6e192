// 结构化日志辅助函数
package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// NowFormatted 返回当前时间的格式化字符串
func NowFormatted() string {
	return FormatTimestamp(time.Now())
}

// LogType 日志类型
type LogType string

const (
	// AccessLog 访问日志 - HTTP 请求
	AccessLog LogType = "access"
	// SystemLog 系统日志 - 组件启动/停止/配置变更
	SystemLog LogType = "system"
	// ScanLog 扫描日志 - 扫描会话的生命周期
	ScanLog LogType = "scan"
	// ProbeLog 探测日志 - 单次探测的分类细节，仅 debug 级别输出
	ProbeLog LogType = "probe"
)

// 扫描会话状态
const (
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusTimedOut  = "timed_out"
	ScanStatusFailed    = "failed"
)

// LogScanOperation 记录扫描会话日志
// 根据 status 选择日志级别：completed -> info, failed -> error, running -> debug
func LogScanOperation(sessionID, scanType, target, status string, progress int, result string, duration time.Duration, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":       ScanLog,
		"session_id": sessionID,
		"scan_type":  scanType,
		"target":     target,
		"status":     status,
		"progress":   progress,
		"result":     result,
		"duration":   duration.Milliseconds(),
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	entry := LoggerInstance.logger.WithFields(fields)
	switch status {
	case ScanStatusCompleted:
		entry.Info(fmt.Sprintf("Scan completed: %s on %s", scanType, target))
	case ScanStatusFailed:
		entry.Error(fmt.Sprintf("Scan failed: %s on %s", scanType, target))
	case ScanStatusTimedOut:
		entry.Warn(fmt.Sprintf("Scan deadline reached: %s on %s", scanType, target))
	case ScanStatusRunning:
		entry.Debug(fmt.Sprintf("Scan running: %s on %s (%d%%)", scanType, target, progress))
	default:
		entry.Info(fmt.Sprintf("Scan %s: %s on %s", status, scanType, target))
	}
}

// LogProbe 记录单次探测结果（debug 级别）
func LogProbe(sessionID, endpoint, protocol, status string, code int, rtt time.Duration) {
	if LoggerInstance == nil || !LoggerInstance.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	LoggerInstance.logger.WithFields(logrus.Fields{
		"type":       ProbeLog,
		"session_id": sessionID,
		"endpoint":   endpoint,
		"protocol":   protocol,
		"status":     status,
		"code":       code,
		"rtt_ms":     rtt.Milliseconds(),
	}).Debug("probe classified")
}

// LogSystemEvent 记录系统事件
func LogSystemEvent(component, event, message string, level logrus.Level, extraFields map[string]interface{}) {
	if LoggerInstance == nil {
		return
	}

	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	LoggerInstance.logger.WithFields(fields).Log(level, fmt.Sprintf("System event: %s - %s: %s", component, event, message))
}

// LogAccessRequest 记录 HTTP 访问日志
func LogAccessRequest(c *gin.Context, startTime time.Time, slowThreshold time.Duration) {
	if LoggerInstance == nil {
		return
	}

	latency := time.Since(startTime)
	fields := logrus.Fields{
		"type":          AccessLog,
		"method":        c.Request.Method,
		"path":          c.Request.URL.Path,
		"query":         c.Request.URL.RawQuery,
		"status_code":   c.Writer.Status(),
		"response_time": latency.Milliseconds(),
		"client_ip":     c.ClientIP(),
		"user_agent":    c.Request.UserAgent(),
		"request_id":    c.GetHeader("X-Request-ID"),
		"response_size": c.Writer.Size(),
	}
	if session := c.Writer.Header().Get("X-Scan-Session"); session != "" {
		fields["session_id"] = session
	}

	entry := LoggerInstance.logger.WithFields(fields)
	switch {
	case c.Writer.Status() >= 500:
		entry.Error("HTTP request failed")
	case slowThreshold > 0 && latency > slowThreshold:
		entry.Warn("HTTP request slow")
	default:
		entry.Info("HTTP request processed")
	}
}
