package model

import (
	"net/netip"
	"strconv"
	"time"
)

// ScanResult 单个 (地址, 端口) 的最终输出
// JSON 字段名与原有 HTTP 接口保持一致
type ScanResult struct {
	IP           string     `json:"ip" yaml:"ip"`
	Port         int        `json:"port" yaml:"port"`
	Protocol     Protocol   `json:"protocol" yaml:"protocol"`
	Status       PortStatus `json:"status" yaml:"status"`
	Service      string     `json:"service" yaml:"service"`
	OSInfo       string     `json:"os_info" yaml:"os_info"`
	Banner       string     `json:"banner" yaml:"banner"`
	ErrorCode    *int       `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	addr netip.Addr
}

// Addr 返回结果对应的地址，用于排序
func (r ScanResult) Addr() netip.Addr {
	if r.addr.IsValid() {
		return r.addr
	}
	a, _ := netip.ParseAddr(r.IP)
	return a
}

// Headers 实现 reporter.TabularData
func (r ScanResult) Headers() []string {
	return []string{"IP", "Port", "Protocol", "Status", "Service", "OS", "Banner", "Error"}
}

// Rows 实现 reporter.TabularData
func (r ScanResult) Rows() [][]string {
	errText := ""
	if r.ErrorCode != nil {
		errText = strconv.Itoa(*r.ErrorCode)
		if r.ErrorMessage != nil && *r.ErrorMessage != "" {
			errText += " " + *r.ErrorMessage
		}
	}
	return [][]string{{
		r.IP,
		strconv.Itoa(r.Port),
		string(r.Protocol),
		string(r.Status),
		r.Service,
		r.OSInfo,
		r.Banner,
		errText,
	}}
}

// ScanSummary 会话统计
type ScanSummary struct {
	SessionID string        `json:"session_id"`
	Target    string        `json:"target"`
	Protocol  Protocol      `json:"protocol"`
	Targets   int           `json:"targets"`
	Total     int           `json:"total"`
	Open      int           `json:"open"`
	Closed    int           `json:"closed"`
	Filtered  int           `json:"filtered"`
	Errors    int           `json:"errors"`
	TimedOut  bool          `json:"timed_out"`
	Duration  time.Duration `json:"duration"`
}

// Count 按状态累计一条结果
func (s *ScanSummary) Count(status PortStatus) {
	s.Total++
	switch status {
	case StatusOpen:
		s.Open++
	case StatusClosed:
		s.Closed++
	case StatusFiltered:
		s.Filtered++
	case StatusError:
		s.Errors++
	}
}

// ScanReport 会话的完整输出：统计 + 过滤排序后的结果
type ScanReport struct {
	Summary ScanSummary  `json:"summary"`
	Results []ScanResult `json:"results"`
}
