package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce 编辑器保存时往往连续触发多次写事件
const reloadDebounce = 500 * time.Millisecond

// ConfigChangeCallback 配置变更回调，返回错误时放弃本次变更
type ConfigChangeCallback func(oldConfig, newConfig *Config) error

// ConfigWatcher 配置文件监听器
//
// HTTP 服务模式下使用：配置文件写入后重新加载，并通过回调通知变更。
// 已在运行的扫描会话持有自己的 ScanConfig 副本，不受热加载影响。
type ConfigWatcher struct {
	path    string
	fsw     *fsnotify.Watcher
	errorf  func(format string, args ...interface{})
	stopped chan struct{}
	once    sync.Once

	mu        sync.RWMutex
	current   *Config
	callbacks []ConfigChangeCallback
}

// NewConfigWatcher 创建配置监听器，configFile 必须是具体的配置文件路径
func NewConfigWatcher(configFile string, initial *Config) (*ConfigWatcher, error) {
	if configFile == "" {
		return nil, fmt.Errorf("config file path is empty")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &ConfigWatcher{
		path:    filepath.Clean(configFile),
		fsw:     fsw,
		errorf:  func(string, ...interface{}) {},
		stopped: make(chan struct{}),
		current: initial,
	}, nil
}

// SetErrorHandler 设置监听过程中的错误输出（通常为 logger.Errorf）
func (cw *ConfigWatcher) SetErrorHandler(fn func(format string, args ...interface{})) {
	if fn != nil {
		cw.errorf = fn
	}
}

// Start 监听配置文件所在目录，"写临时文件再重命名"的保存方式同样能捕获
func (cw *ConfigWatcher) Start() error {
	if err := cw.fsw.Add(filepath.Dir(cw.path)); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", cw.path, err)
	}
	go cw.loop()
	return nil
}

// Stop 停止监听，可重复调用
func (cw *ConfigWatcher) Stop() error {
	var err error
	cw.once.Do(func() {
		close(cw.stopped)
		err = cw.fsw.Close()
	})
	return err
}

// GetConfig 当前生效的配置
func (cw *ConfigWatcher) GetConfig() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.current
}

// AddCallback 注册变更回调，按注册顺序执行
func (cw *ConfigWatcher) AddCallback(callback ConfigChangeCallback) {
	cw.mu.Lock()
	cw.callbacks = append(cw.callbacks, callback)
	cw.mu.Unlock()
}

// loop 事件循环，防抖计时器只在本协程内使用
func (cw *ConfigWatcher) loop() {
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-cw.stopped:
			return
		case ev, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if cw.relevant(ev) {
				debounce.Reset(reloadDebounce)
			}
		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			cw.errorf("config watcher error: %v", err)
		case <-debounce.C:
			if err := cw.reload(); err != nil {
				cw.errorf("failed to reload config: %v", err)
			}
		}
	}
}

func (cw *ConfigWatcher) relevant(ev fsnotify.Event) bool {
	return filepath.Clean(ev.Name) == cw.path && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create))
}

// reload 重新加载并依次执行回调，任何一步失败都保留旧配置
func (cw *ConfigWatcher) reload() error {
	next, err := NewConfigLoader(cw.path, EnvPrefix).LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	cw.mu.RLock()
	prev := cw.current
	callbacks := append([]ConfigChangeCallback(nil), cw.callbacks...)
	cw.mu.RUnlock()

	if err := ValidateConfigChange(prev, next); err != nil {
		return err
	}
	for _, cb := range callbacks {
		if err := cb(prev, next); err != nil {
			return fmt.Errorf("config change callback failed: %w", err)
		}
	}

	cw.mu.Lock()
	cw.current = next
	cw.mu.Unlock()
	return nil
}

// ValidateConfigChange 监听地址不能在运行时修改
func ValidateConfigChange(oldConfig, newConfig *Config) error {
	if oldConfig == nil || newConfig == nil || oldConfig.Server == nil || newConfig.Server == nil {
		return nil
	}
	if oldConfig.Server.Host != newConfig.Server.Host || oldConfig.Server.Port != newConfig.Server.Port {
		return fmt.Errorf("server listen address cannot be changed at runtime (%s:%d -> %s:%d)",
			oldConfig.Server.Host, oldConfig.Server.Port, newConfig.Server.Host, newConfig.Server.Port)
	}
	return nil
}
