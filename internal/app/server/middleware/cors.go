/**
 * CORS中间件
 * @author: sun977
 * @date: 2026.10.19
 * @description: 处理跨域请求，Web 前端直接调用扫描接口
 */
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

// CORSMiddleware CORS中间件，源和方法在创建时预处理
type CORSMiddleware struct {
	enabled     bool
	credentials bool
	anyOrigin   bool
	origins     map[string]struct{}
	suffixes    []string // 来自 *.domain 形式的配置，保存为 .domain
	methods     map[string]struct{}

	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
}

// NewCORSMiddleware 创建CORS中间件，config 为空时允许所有源
func NewCORSMiddleware(cfg *config.CORSConfig) *CORSMiddleware {
	if cfg == nil {
		cfg = &config.CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type", "X-Request-ID"},
		}
	}

	m := &CORSMiddleware{
		enabled:       cfg.Enabled,
		credentials:   cfg.AllowCredentials,
		origins:       make(map[string]struct{}, len(cfg.AllowOrigins)),
		methods:       make(map[string]struct{}, len(cfg.AllowMethods)),
		allowMethods:  strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:  strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
	}
	for _, o := range cfg.AllowOrigins {
		switch {
		case o == "*":
			m.anyOrigin = true
		case strings.HasPrefix(o, "*."):
			m.suffixes = append(m.suffixes, o[1:])
		default:
			m.origins[o] = struct{}{}
		}
	}
	for _, method := range cfg.AllowMethods {
		m.methods[strings.ToUpper(method)] = struct{}{}
	}
	if cfg.MaxAge > 0 {
		m.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	return m
}

// Handler CORS处理器
func (m *CORSMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		reqMethod := c.GetHeader("Access-Control-Request-Method")
		if c.Request.Method != http.MethodOptions || reqMethod == "" {
			m.writeHeaders(c, origin)
			c.Next()
			return
		}

		// 预检请求：源不允许 403，方法不允许 405
		if !m.originAllowed(origin) {
			logger.Warnf("CORS preflight denied for origin %q", origin)
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		if _, ok := m.methods[strings.ToUpper(reqMethod)]; !ok {
			logger.Warnf("CORS preflight denied for method %q", reqMethod)
			c.AbortWithStatus(http.StatusMethodNotAllowed)
			return
		}
		m.writeHeaders(c, origin)
		if m.maxAge != "" {
			c.Header("Access-Control-Max-Age", m.maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}

func (m *CORSMiddleware) writeHeaders(c *gin.Context, origin string) {
	switch {
	case m.anyOrigin && !m.credentials:
		c.Header("Access-Control-Allow-Origin", "*")
	case m.originAllowed(origin):
		// 带凭证时不能回 *，回显请求源
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Vary", "Origin")
	}

	setIfNotEmpty(c, "Access-Control-Allow-Methods", m.allowMethods)
	setIfNotEmpty(c, "Access-Control-Allow-Headers", m.allowHeaders)
	setIfNotEmpty(c, "Access-Control-Expose-Headers", m.exposeHeaders)
	if m.credentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}
}

// originAllowed 精确匹配或 *.domain 后缀匹配
func (m *CORSMiddleware) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if m.anyOrigin {
		return true
	}
	if _, ok := m.origins[origin]; ok {
		return true
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

func setIfNotEmpty(c *gin.Context, key, value string) {
	if value != "" {
		c.Header(key, value)
	}
}
