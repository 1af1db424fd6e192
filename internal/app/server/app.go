/**
 * 扫描服务应用程序核心逻辑
 * @author: sun977
 * @date: 2026.10.19
 * @description: 负责初始化扫描器、路由、HTTP 服务与配置热加载，将应用逻辑从 main 函数中分离
 */

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"neorecon/internal/app/server/router"
	"neorecon/internal/config"
	"neorecon/internal/core/scanner/port"
	"neorecon/internal/pkg/logger"
)

// App 扫描服务应用程序
type App struct {
	router     *router.Router
	httpServer *http.Server
	config     *config.Config
	watcher    *config.ConfigWatcher
	listener   net.Listener
}

// NewApp 创建应用实例，configFile 非空时开启配置热加载
func NewApp(cfg *config.Config, configFile string) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// 1. 扫描器
	scanner, err := port.NewPortScanner(cfg.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to create port scanner: %w", err)
	}

	// 2. 路由
	r := router.NewRouter(&router.RouterConfig{
		Mode:       cfg.Server.Mode,
		Middleware: cfg.Middleware,
	}, scanner)

	// 3. HTTP 服务，WriteTimeout 需要覆盖会话截止时间
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      r.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	if httpServer.WriteTimeout > 0 && httpServer.WriteTimeout < cfg.Scan.SessionDeadline {
		logger.Warnf("server.write_timeout %s is shorter than scan.session_deadline %s, long scans will be cut off",
			httpServer.WriteTimeout, cfg.Scan.SessionDeadline)
	}

	app := &App{
		router:     r,
		httpServer: httpServer,
		config:     cfg,
	}

	// 4. 配置热加载
	if configFile != "" {
		w, err := config.NewConfigWatcher(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create config watcher: %w", err)
		}
		w.SetErrorHandler(logger.Errorf)
		w.AddCallback(app.onConfigChange)
		app.watcher = w
	}

	return app, nil
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// GetHTTPServer 获取HTTP服务器实例
func (a *App) GetHTTPServer() *http.Server {
	return a.httpServer
}

// Addr 实际监听地址（端口为 0 时由系统分配）
func (a *App) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.httpServer.Addr
}

// Start 监听端口并在后台提供服务
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.httpServer.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped unexpectedly: ", err)
		}
	}()

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			logger.Warnf("config hot reload disabled: %v", err)
			a.watcher = nil
		}
	}

	logger.LogSystemEvent("server", "start", "neorecon server started", logrus.InfoLevel, map[string]interface{}{
		"addr":    ln.Addr().String(),
		"workers": a.config.Scan.Workers,
	})
	return nil
}

// Stop 优雅关闭
func (a *App) Stop(ctx context.Context) error {
	if a.watcher != nil {
		_ = a.watcher.Stop()
	}
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	logger.LogSystemEvent("server", "stop", "neorecon server stopped", logrus.InfoLevel, nil)
	return nil
}

// onConfigChange 扫描参数与日志级别可以热更新，监听地址不行
func (a *App) onConfigChange(oldConfig, newConfig *config.Config) error {
	if newConfig.Scan != nil {
		scanner, err := port.NewPortScanner(newConfig.Scan)
		if err != nil {
			return err
		}
		a.router.SetScanner(scanner)
	}
	if newConfig.Log != nil && logger.LoggerInstance != nil {
		if err := logger.LoggerInstance.UpdateLevel(newConfig.Log.Level); err != nil {
			return err
		}
	}
	config.SetConfig(newConfig)
	return nil
}
