/**
 * 路由注册
 * @author: sun977
 * @date: 2026.10.19
 * @description: 统一管理中间件与路由，扫描器可在配置热更新时整体替换
 */
package router

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"neorecon/internal/app/server/middleware"
	"neorecon/internal/config"
	"neorecon/internal/core/scanner/port"
	"neorecon/internal/pkg/logger"
)

const defaultMaxBodyBytes = 64 << 10

// RouterConfig 路由配置
type RouterConfig struct {
	// gin 运行模式 (debug/release/test)
	Mode string

	// API版本
	APIVersion string

	// 路由前缀
	Prefix string

	// 请求体大小上限（字节）
	MaxBodyBytes int64

	// 中间件配置
	Middleware *config.MiddlewareConfig
}

// Router HTTP 路由器
type Router struct {
	engine  *gin.Engine
	config  *RouterConfig
	scanner atomic.Pointer[port.PortScanner]
}

// NewRouter 创建新的路由器
func NewRouter(cfg *RouterConfig, scanner *port.PortScanner) *Router {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := &Router{
		engine: gin.New(),
		config: cfg,
	}
	r.scanner.Store(scanner)

	r.registerGlobalMiddleware()
	r.registerRoutes()
	return r
}

// GetEngine 返回 gin 引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// SetScanner 替换扫描器，进行中的会话继续使用旧实例
func (r *Router) SetScanner(s *port.PortScanner) {
	if s == nil {
		return
	}
	r.scanner.Store(s)
	logger.Info("scanner replaced with reloaded scan config")
}

// Scanner 当前生效的扫描器
func (r *Router) Scanner() *port.PortScanner {
	return r.scanner.Load()
}

// registerGlobalMiddleware 注册全局中间件
func (r *Router) registerGlobalMiddleware() {
	r.engine.Use(middleware.Recovery())

	var mw *config.MiddlewareConfig
	if r.config.Middleware != nil {
		mw = r.config.Middleware
	} else {
		mw = &config.MiddlewareConfig{}
	}

	// 日志先于 CORS 注册，被 CORS 拦截的预检请求同样会记录
	r.engine.Use(middleware.NewLoggingMiddleware(mw.Logging).Handler())
	r.engine.Use(middleware.NewCORSMiddleware(mw.CORS).Handler())
}

// registerRoutes 注册路由
func (r *Router) registerRoutes() {
	r.setupHealthRoutes()

	apiGroup := r.engine.Group(r.config.Prefix + "/" + r.config.APIVersion)
	r.setupScanRoutes(apiGroup)

	// 兼容旧版 Web 前端的 POST /scan
	r.engine.POST("/scan", r.handleScanPort)
}
