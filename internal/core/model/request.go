package model

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// ScanRequest 一次扫描会话的输入
type ScanRequest struct {
	Target       string   `json:"target" yaml:"target"`
	StartPort    int      `json:"start_port" yaml:"start_port"`
	EndPort      int      `json:"end_port" yaml:"end_port"`
	Protocol     Protocol `json:"protocol" yaml:"protocol"`
	ShowClosed   bool     `json:"show_closed" yaml:"show_closed"`
	ShowFiltered bool     `json:"show_filtered" yaml:"show_filtered"`
}

// Validate 校验请求参数，失败时返回包装了 ErrInvalidRequest / ErrInvalidTarget 的错误
func (r *ScanRequest) Validate() error {
	if strings.TrimSpace(r.Target) == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidTarget)
	}
	if r.StartPort < MinPort || r.StartPort > MaxPort {
		return fmt.Errorf("%w: start_port %d out of range [%d, %d]", ErrInvalidRequest, r.StartPort, MinPort, MaxPort)
	}
	if r.EndPort < MinPort || r.EndPort > MaxPort {
		return fmt.Errorf("%w: end_port %d out of range [%d, %d]", ErrInvalidRequest, r.EndPort, MinPort, MaxPort)
	}
	if r.StartPort > r.EndPort {
		return fmt.Errorf("%w: start_port %d greater than end_port %d", ErrInvalidRequest, r.StartPort, r.EndPort)
	}
	p, err := ParseProtocol(string(r.Protocol))
	if err != nil {
		return err
	}
	r.Protocol = p
	return nil
}

// PortCount 请求覆盖的端口数
func (r *ScanRequest) PortCount() int {
	return r.EndPort - r.StartPort + 1
}

// ScanSession 一次扫描会话的运行时上下文
type ScanSession struct {
	ID        string
	Request   ScanRequest
	Targets   []netip.Addr
	Tasks     []ProbeTask
	StartedAt time.Time
	Deadline  time.Time
}

// NewScanSession 创建会话并分配会话ID
func NewScanSession(req ScanRequest) *ScanSession {
	return &ScanSession{
		ID:        uuid.NewString(),
		Request:   req,
		StartedAt: time.Now(),
	}
}
