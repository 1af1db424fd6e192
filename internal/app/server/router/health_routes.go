/**
 * 路由:健康检查路由
 * @author: sun977
 * @date: 2026.10.19
 * @description: 健康检查、存活检查、版本信息
 */
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"neorecon/internal/pkg/logger"
	"neorecon/internal/pkg/monitor"
	"neorecon/internal/pkg/version"
)

// setupHealthRoutes 设置健康检查路由
func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.handleHealth)
	r.engine.GET("/ping", r.handlePing)
	r.engine.GET("/version", r.handleVersion)
}

// handleHealth 健康检查处理器，附带主机负载信息
func (r *Router) handleHealth(c *gin.Context) {
	sc := r.Scanner().Config()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": logger.NowFormatted(),
		"service":   "neorecon",
		"version":   version.GetVersion(),
		"host":      monitor.GetHostInfo(),
		"scan": gin.H{
			"workers":          sc.Workers,
			"probe_timeout":    sc.ProbeTimeout.String(),
			"session_deadline": sc.SessionDeadline.String(),
			"max_probes":       sc.MaxProbes,
		},
	})
}

// handlePing Ping处理器
func (r *Router) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": logger.NowFormatted(),
	})
}

// handleVersion 构建信息，与 version 子命令输出一致
func (r *Router) handleVersion(c *gin.Context) {
	info := version.Info()
	info["timestamp"] = logger.NowFormatted()
	c.JSON(http.StatusOK, info)
}
