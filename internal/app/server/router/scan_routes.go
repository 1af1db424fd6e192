/**
 * 路由:端口扫描路由
 * @author: sun977
 * @date: 2026.10.19
 * @description: POST {prefix}/{version}/scan/port，同步执行一次扫描会话并返回排序后的结果列表
 */
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

const (
	HeaderScanSession = "X-Scan-Session"
	HeaderScanTotal   = "X-Scan-Total"
)

// scanRequestDTO 请求体
// print_closed / print_filtered 是旧版前端使用的字段名，与 show_* 等价
type scanRequestDTO struct {
	Target        string `json:"target"`
	StartPort     int    `json:"start_port"`
	EndPort       int    `json:"end_port"`
	Protocol      string `json:"protocol"`
	ShowClosed    *bool  `json:"show_closed"`
	ShowFiltered  *bool  `json:"show_filtered"`
	PrintClosed   *bool  `json:"print_closed"`
	PrintFiltered *bool  `json:"print_filtered"`
}

func (d *scanRequestDTO) toRequest() model.ScanRequest {
	return model.ScanRequest{
		Target:       d.Target,
		StartPort:    d.StartPort,
		EndPort:      d.EndPort,
		Protocol:     model.Protocol(d.Protocol),
		ShowClosed:   firstBool(d.ShowClosed, d.PrintClosed),
		ShowFiltered: firstBool(d.ShowFiltered, d.PrintFiltered),
	}
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

// errorResponse 请求级错误响应
type errorResponse struct {
	Code    model.ErrorKind `json:"code"`
	Message string          `json:"message"`
}

// setupScanRoutes 设置扫描路由
func (r *Router) setupScanRoutes(group *gin.RouterGroup) {
	scanGroup := group.Group("/scan")
	scanGroup.POST("/port", r.handleScanPort)
}

// handleScanPort 执行端口扫描
// 请求级错误整体拒绝：400 参数/目标非法，422 解析失败，413 探测规模超限
func (r *Router) handleScanPort(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.config.MaxBodyBytes)

	var dto scanRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
				Code:    model.KindInvalidRequest,
				Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    model.KindInvalidRequest,
			Message: "malformed request body: " + err.Error(),
		})
		return
	}

	report, err := r.Scanner().Run(c.Request.Context(), dto.toRequest())
	if err != nil {
		kind, status := model.ClassifyError(err)
		if status >= http.StatusInternalServerError {
			logger.Errorf("port scan on %q failed: %v", dto.Target, err)
		}
		c.JSON(status, errorResponse{Code: kind, Message: err.Error()})
		return
	}

	c.Header(HeaderScanSession, report.Summary.SessionID)
	c.Header(HeaderScanTotal, strconv.Itoa(report.Summary.Total))
	c.JSON(http.StatusOK, report.Results)
}
