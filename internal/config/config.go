/**
 * 配置管理
 * @author: sun977
 * @date: 2026.10.19
 * @description: 负责加载和管理扫描引擎、HTTP服务与日志的全部配置
 */
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	// 应用配置
	App *AppConfig `yaml:"app" mapstructure:"app"`

	// 服务器配置
	Server *ServerConfig `yaml:"server" mapstructure:"server"`

	// 日志配置
	Log *LogConfig `yaml:"log" mapstructure:"log"`

	// 扫描引擎配置
	Scan *ScanConfig `yaml:"scan" mapstructure:"scan"`

	// 中间件配置
	Middleware *MiddlewareConfig `yaml:"middleware" mapstructure:"middleware"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`               // 应用名称
	Environment string `yaml:"environment" mapstructure:"environment"` // 运行环境
	Debug       bool   `yaml:"debug" mapstructure:"debug"`             // 调试模式
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`                   // 监听地址
	Port         int           `yaml:"port" mapstructure:"port"`                   // 监听端口
	Mode         string        `yaml:"mode" mapstructure:"mode"`                   // gin运行模式 (debug/release/test)
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`   // 读取超时
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"` // 写入超时，需覆盖会话截止时间
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // 空闲超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别 (debug/info/warn/error/fatal)
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式 (json/text)
	Output     string `yaml:"output" mapstructure:"output"`           // 日志输出 (stdout/stderr/file)
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 单文件最大大小（MB）
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 最大备份数
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 最大保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否记录调用者
}

// ScanConfig 扫描引擎配置
type ScanConfig struct {
	ProbeTimeout    time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`       // 单次探测超时
	BannerTimeout   time.Duration `yaml:"banner_timeout" mapstructure:"banner_timeout"`     // 握手成功后读取banner的超时
	UDPRetries      int           `yaml:"udp_retries" mapstructure:"udp_retries"`           // UDP 静默后的重试次数
	Workers         int           `yaml:"workers" mapstructure:"workers"`                   // 固定工作协程数
	SessionDeadline time.Duration `yaml:"session_deadline" mapstructure:"session_deadline"` // 会话截止时长
	MaxProbes       int           `yaml:"max_probes" mapstructure:"max_probes"`             // 单会话探测总数上限
	MaxTargets      int           `yaml:"max_targets" mapstructure:"max_targets"`           // 目标展开后的地址数上限
	Rate            int           `yaml:"rate" mapstructure:"rate"`                         // 每秒派发探测数，0 不限速
	Proxy           string        `yaml:"proxy" mapstructure:"proxy"`                       // TCP 探测使用的 SOCKS5 代理
	DNSServer       string        `yaml:"dns_server" mapstructure:"dns_server"`             // 域名解析使用的 DNS 服务器，空则使用系统解析
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	// 日志中间件配置
	Logging *LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// CORS中间件配置
	CORS *CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// LoggingConfig 访问日志中间件配置
type LoggingConfig struct {
	Enabled              bool          `yaml:"enabled" mapstructure:"enabled"`
	SkipPaths            []string      `yaml:"skip_paths" mapstructure:"skip_paths"`
	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold" mapstructure:"slow_request_threshold"`
}

// CORSConfig CORS中间件配置
type CORSConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	AllowOrigins     []string      `yaml:"allow_origins" mapstructure:"allow_origins"`
	AllowMethods     []string      `yaml:"allow_methods" mapstructure:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers" mapstructure:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers" mapstructure:"expose_headers"`
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

var (
	globalConfig *Config
	globalMu     sync.RWMutex
)

// LoadConfig 加载配置并设置为全局配置
func LoadConfig(configPath ...string) (*Config, error) {
	var path string
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	loader := NewConfigLoader(path, EnvPrefix)
	cfg, err := loader.LoadConfig()
	if err != nil {
		return nil, err
	}

	SetConfig(cfg)
	return cfg, nil
}

// GetConfig 获取全局配置，未加载时返回默认配置
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalConfig == nil {
		return DefaultConfig()
	}
	return globalConfig
}

// SetConfig 替换全局配置（热加载时调用）
func SetConfig(cfg *Config) {
	globalMu.Lock()
	globalConfig = cfg
	globalMu.Unlock()
}

// DefaultConfig 返回内置默认配置，与 setDefaults 保持一致
func DefaultConfig() *Config {
	return &Config{
		App: &AppConfig{
			Name:        "neorecon",
			Environment: "development",
		},
		Server: &ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			Mode:         "release",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 6 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Log: &LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePath:   "logs/neorecon.log",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Scan: DefaultScanConfig(),
		Middleware: &MiddlewareConfig{
			Logging: &LoggingConfig{
				Enabled:              true,
				SkipPaths:            []string{"/ping"},
				SlowRequestThreshold: time.Minute,
			},
			CORS: &CORSConfig{
				Enabled:       true,
				AllowOrigins:  []string{"*"},
				AllowMethods:  []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "X-Request-ID"},
				ExposeHeaders: []string{"X-Scan-Session", "X-Scan-Total"},
				MaxAge:        12 * time.Hour,
			},
		},
	}
}

// DefaultScanConfig 扫描引擎默认参数
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		ProbeTimeout:    1 * time.Second,
		BannerTimeout:   500 * time.Millisecond,
		UDPRetries:      1,
		Workers:         100,
		SessionDeadline: 5 * time.Minute,
		MaxProbes:       65536,
		MaxTargets:      1024,
	}
}

// Marshal 将配置序列化为 YAML
func Marshal(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SaveConfig 将配置写出为 YAML 文件
func SaveConfig(cfg *Config, path string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
