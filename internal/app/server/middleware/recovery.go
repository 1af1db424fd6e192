package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"neorecon/internal/pkg/logger"
)

// Recovery 捕获 handler 中的 panic，记录系统日志并返回 500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.LogSystemEvent("http", "panic", "handler panicked", logrus.ErrorLevel, map[string]interface{}{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    "Internal",
			"message": "internal server error",
		})
	})
}
