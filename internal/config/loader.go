package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 NEORECON_SCAN_WORKERS
const EnvPrefix = "NEORECON"

// ConfigLoader 配置加载器
// 优先级：环境变量 > config.<env>.yaml > config.yaml > 内置默认值
type ConfigLoader struct {
	configPath string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader 创建配置加载器
// configPath 可以是目录，也可以是具体的 yaml 文件
func NewConfigLoader(configPath, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = EnvPrefix
	}

	return &ConfigLoader{
		configPath: configPath,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// LoadConfig 加载配置
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	// 先加载 .env，使其中的变量参与后续的 AutomaticEnv
	if err := NewEnvLoader().Load(); err != nil {
		return nil, err
	}

	cl.viper.SetConfigType("yaml")
	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var cfg Config
	if err := cl.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 加载配置文件，文件不存在时仅使用默认值和环境变量
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configPath == "" {
		if envPath := os.Getenv(cl.envPrefix + "_CONFIG_PATH"); envPath != "" {
			cl.configPath = envPath
		}
	}

	// 直接指定了文件
	if strings.HasSuffix(cl.configPath, ".yaml") || strings.HasSuffix(cl.configPath, ".yml") {
		cl.viper.SetConfigFile(cl.configPath)
		return cl.viper.ReadInConfig()
	}

	if cl.configPath != "" {
		cl.viper.AddConfigPath(cl.configPath)
	}
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	// 先尝试环境特定的配置文件
	cl.viper.SetConfigName("config." + cl.getEnvironment())
	err := cl.viper.ReadInConfig()
	if err == nil {
		return nil
	}

	cl.viper.SetConfigName("config")
	err = cl.viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// getEnvironment 获取运行环境
func (cl *ConfigLoader) getEnvironment() string {
	return EnvString(cl.envPrefix+"_ENV", EnvString("GO_ENV", "development"))
}

// setDefaults 设置默认值
// viper 的 AutomaticEnv 只对已知 key 生效，所以每个可由环境变量覆盖的 key 都需要一个默认值
func (cl *ConfigLoader) setDefaults() {
	d := DefaultConfig()

	cl.viper.SetDefault("app.name", d.App.Name)
	cl.viper.SetDefault("app.environment", d.App.Environment)
	cl.viper.SetDefault("app.debug", d.App.Debug)

	cl.viper.SetDefault("server.host", d.Server.Host)
	cl.viper.SetDefault("server.port", d.Server.Port)
	cl.viper.SetDefault("server.mode", d.Server.Mode)
	cl.viper.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	cl.viper.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	cl.viper.SetDefault("server.idle_timeout", d.Server.IdleTimeout)

	cl.viper.SetDefault("log.level", d.Log.Level)
	cl.viper.SetDefault("log.format", d.Log.Format)
	cl.viper.SetDefault("log.output", d.Log.Output)
	cl.viper.SetDefault("log.file_path", d.Log.FilePath)
	cl.viper.SetDefault("log.max_size", d.Log.MaxSize)
	cl.viper.SetDefault("log.max_backups", d.Log.MaxBackups)
	cl.viper.SetDefault("log.max_age", d.Log.MaxAge)
	cl.viper.SetDefault("log.compress", d.Log.Compress)
	cl.viper.SetDefault("log.caller", d.Log.Caller)

	cl.viper.SetDefault("scan.probe_timeout", d.Scan.ProbeTimeout)
	cl.viper.SetDefault("scan.banner_timeout", d.Scan.BannerTimeout)
	cl.viper.SetDefault("scan.udp_retries", d.Scan.UDPRetries)
	cl.viper.SetDefault("scan.workers", d.Scan.Workers)
	cl.viper.SetDefault("scan.session_deadline", d.Scan.SessionDeadline)
	cl.viper.SetDefault("scan.max_probes", d.Scan.MaxProbes)
	cl.viper.SetDefault("scan.max_targets", d.Scan.MaxTargets)
	cl.viper.SetDefault("scan.rate", d.Scan.Rate)
	cl.viper.SetDefault("scan.proxy", d.Scan.Proxy)
	cl.viper.SetDefault("scan.dns_server", d.Scan.DNSServer)

	cl.viper.SetDefault("middleware.logging.enabled", d.Middleware.Logging.Enabled)
	cl.viper.SetDefault("middleware.logging.skip_paths", d.Middleware.Logging.SkipPaths)
	cl.viper.SetDefault("middleware.logging.slow_request_threshold", d.Middleware.Logging.SlowRequestThreshold)

	cl.viper.SetDefault("middleware.cors.enabled", d.Middleware.CORS.Enabled)
	cl.viper.SetDefault("middleware.cors.allow_origins", d.Middleware.CORS.AllowOrigins)
	cl.viper.SetDefault("middleware.cors.allow_methods", d.Middleware.CORS.AllowMethods)
	cl.viper.SetDefault("middleware.cors.allow_headers", d.Middleware.CORS.AllowHeaders)
	cl.viper.SetDefault("middleware.cors.expose_headers", d.Middleware.CORS.ExposeHeaders)
	cl.viper.SetDefault("middleware.cors.allow_credentials", d.Middleware.CORS.AllowCredentials)
	cl.viper.SetDefault("middleware.cors.max_age", d.Middleware.CORS.MaxAge)
}

// validateConfig 验证配置
func (cl *ConfigLoader) validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	return ValidateScanConfig(cfg.Scan)
}

// ValidateScanConfig 校验扫描参数，CLI 覆盖参数后也会再次调用
func ValidateScanConfig(sc *ScanConfig) error {
	if sc == nil {
		return fmt.Errorf("scan config is required")
	}
	if sc.ProbeTimeout <= 0 {
		return fmt.Errorf("scan.probe_timeout must be positive")
	}
	if sc.BannerTimeout < 0 {
		return fmt.Errorf("scan.banner_timeout cannot be negative")
	}
	if sc.UDPRetries < 0 {
		return fmt.Errorf("scan.udp_retries cannot be negative")
	}
	if sc.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if sc.SessionDeadline <= 0 {
		return fmt.Errorf("scan.session_deadline must be positive")
	}
	if sc.MaxProbes <= 0 {
		return fmt.Errorf("scan.max_probes must be positive")
	}
	if sc.MaxTargets <= 0 {
		return fmt.Errorf("scan.max_targets must be positive")
	}
	if sc.Rate < 0 {
		return fmt.Errorf("scan.rate cannot be negative")
	}
	return nil
}

// ConfigFileUsed 返回实际加载的配置文件，未加载文件时为空
func (cl *ConfigLoader) ConfigFileUsed() string {
	return cl.viper.ConfigFileUsed()
}
