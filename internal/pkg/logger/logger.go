// 日志管理器
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"neorecon/internal/config"
)

// TimestampFormat 统一的毫秒精度时间格式
const TimestampFormat = "2006-01-02 15:04:05.000"

// LoggerManager 日志管理器
type LoggerManager struct {
	logger *logrus.Logger
	config *config.LogConfig
}

// LoggerInstance 全局日志实例，未初始化时所有便捷方法都是空操作
var LoggerInstance *LoggerManager

// InitLogger 初始化日志管理器并设置为全局实例
func InitLogger(cfg *config.LogConfig) (*LoggerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("log config cannot be nil")
	}

	formatter, err := newFormatter(cfg.Format)
	if err != nil {
		return nil, err
	}
	out, err := newOutput(cfg)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetFormatter(formatter)
	l.SetOutput(out)
	l.SetReportCaller(cfg.Caller)
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(level)
	} else {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("Invalid log level '%s', falling back to info", cfg.Level)
	}

	LoggerInstance = &LoggerManager{logger: l, config: cfg}
	return LoggerInstance, nil
}

// newFormatter json 字段名与访问日志、扫描日志保持一致
func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &logrus.TextFormatter{TimestampFormat: TimestampFormat, FullTimestamp: true}, nil
	case "json":
		return &logrus.JSONFormatter{
			TimestampFormat: TimestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyFunc: "function",
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported log format: %s", format)
}

// newOutput file 输出交给 lumberjack 轮转，debug 级别额外镜像到 stderr
func newOutput(cfg *config.LogConfig) (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
	default:
		return nil, fmt.Errorf("unsupported log output: %s", cfg.Output)
	}

	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log.file_path is required when log.output is file")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	var w io.Writer = &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	if strings.EqualFold(cfg.Level, "debug") {
		w = io.MultiWriter(os.Stderr, w)
	}
	return w, nil
}

// GetLogger 获取logrus实例
func (lm *LoggerManager) GetLogger() *logrus.Logger {
	return lm.logger
}

// UpdateLevel 运行时调整日志级别，配置热加载时调用
func (lm *LoggerManager) UpdateLevel(levelName string) error {
	if strings.EqualFold(levelName, lm.config.Level) {
		return nil
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	lm.logger.SetLevel(level)
	lm.logger.Infof("log level changed: %s -> %s", lm.config.Level, levelName)
	lm.config.Level = levelName
	return nil
}

// 未初始化时的兜底输出，调用方无需判空
var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func std() *logrus.Logger {
	if lm := LoggerInstance; lm != nil {
		return lm.logger
	}
	return discard
}

func Debug(args ...interface{})                 { std().Debug(args...) }
func Debugf(format string, args ...interface{}) { std().Debugf(format, args...) }
func Info(args ...interface{})                  { std().Info(args...) }
func Infof(format string, args ...interface{})  { std().Infof(format, args...) }
func Warn(args ...interface{})                  { std().Warn(args...) }
func Warnf(format string, args ...interface{})  { std().Warnf(format, args...) }
func Error(args ...interface{})                 { std().Error(args...) }
func Errorf(format string, args ...interface{}) { std().Errorf(format, args...) }

func WithField(key string, value interface{}) *logrus.Entry { return std().WithField(key, value) }
func WithFields(fields logrus.Fields) *logrus.Entry         { return std().WithFields(fields) }
