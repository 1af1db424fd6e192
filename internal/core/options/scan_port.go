package options

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"neorecon/internal/config"
	"neorecon/internal/core/model"
)

// PortScanOptions 端口扫描命令行参数
// 引擎参数（Workers 等）为零值时沿用配置文件
type PortScanOptions struct {
	Target       string
	Port         string // -p 20-22 / -p 80，设置后覆盖 StartPort / EndPort
	StartPort    int
	EndPort      int
	Protocol     string
	ShowClosed   bool
	ShowFiltered bool

	Workers  int
	Timeout  time.Duration
	Deadline time.Duration
	Rate     int
	Retries  int
	Proxy    string
	DNS      string

	Output OutputOptions
}

var _ ScanOption = (*PortScanOptions)(nil)

func NewPortScanOptions() *PortScanOptions {
	return &PortScanOptions{
		StartPort: 1,
		EndPort:   1024,
		Protocol:  string(model.ProtocolTCP),
		Retries:   -1,
	}
}

func (o *PortScanOptions) Validate() error {
	if strings.TrimSpace(o.Target) == "" {
		return fmt.Errorf("target is required")
	}
	if o.Port != "" {
		start, end, err := ParsePortRange(o.Port)
		if err != nil {
			return err
		}
		o.StartPort, o.EndPort = start, end
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	if o.Rate < 0 {
		return fmt.Errorf("rate cannot be negative")
	}
	if o.Timeout < 0 || o.Deadline < 0 {
		return fmt.Errorf("timeout and deadline cannot be negative")
	}
	req := o.ToRequest()
	return req.Validate()
}

func (o *PortScanOptions) ToRequest() model.ScanRequest {
	return model.ScanRequest{
		Target:       strings.TrimSpace(o.Target),
		StartPort:    o.StartPort,
		EndPort:      o.EndPort,
		Protocol:     model.Protocol(strings.ToLower(o.Protocol)),
		ShowClosed:   o.ShowClosed,
		ShowFiltered: o.ShowFiltered,
	}
}

// ApplyTo 用命令行参数覆盖配置，返回新的副本
func (o *PortScanOptions) ApplyTo(base *config.ScanConfig) *config.ScanConfig {
	if base == nil {
		base = config.DefaultScanConfig()
	}
	sc := *base
	if o.Workers > 0 {
		sc.Workers = o.Workers
	}
	if o.Timeout > 0 {
		sc.ProbeTimeout = o.Timeout
	}
	if o.Deadline > 0 {
		sc.SessionDeadline = o.Deadline
	}
	if o.Rate > 0 {
		sc.Rate = o.Rate
	}
	if o.Retries >= 0 {
		sc.UDPRetries = o.Retries
	}
	if o.Proxy != "" {
		sc.Proxy = o.Proxy
	}
	if o.DNS != "" {
		sc.DNSServer = o.DNS
	}
	return &sc
}

// ParsePortRange 解析 "80" 或 "20-22"
// 请求只支持连续区间，逗号列表会被拒绝
func ParsePortRange(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		return 0, 0, fmt.Errorf("%w: port list %q not supported, use a single range", model.ErrInvalidRequest, s)
	}
	lo, hi, isRange := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid port %q", model.ErrInvalidRequest, lo)
	}
	if !isRange {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid port %q", model.ErrInvalidRequest, hi)
	}
	return start, end, nil
}
