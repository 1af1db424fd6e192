/**
 * 端口扫描会话入口
 * @author: sun977
 * @date: 2026.10.19
 * @description: 校验 -> 目标解析 -> 探测总量上限检查 -> 调度 -> 聚合，CLI 与 HTTP 共用
 */
package port

import (
	"context"
	"fmt"
	"time"

	"neorecon/internal/config"
	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
	"neorecon/internal/core/pipeline"
	"neorecon/internal/pkg/fingerprint"
	"neorecon/internal/pkg/logger"
)

const (
	ScannerName      = "port_scanner"
	DefaultMaxProbes = 65536
)

// PortScanner 端口扫描器
// 自身无会话状态，可以并发执行多个会话
type PortScanner struct {
	cfg      config.ScanConfig
	resolver *pipeline.Resolver
	prober   Prober
}

// Option PortScanner 可选项
type Option func(*scannerDeps)

type scannerDeps struct {
	prober     Prober
	lookup     pipeline.HostResolver
	tcpDialer  dialer.Dialer
	identifier *fingerprint.Identifier
}

// WithProber 替换探测器
func WithProber(p Prober) Option {
	return func(d *scannerDeps) { d.prober = p }
}

// WithHostResolver 替换域名解析
func WithHostResolver(r pipeline.HostResolver) Option {
	return func(d *scannerDeps) { d.lookup = r }
}

// WithDialer 替换 TCP 拨号器
func WithDialer(dl dialer.Dialer) Option {
	return func(d *scannerDeps) { d.tcpDialer = dl }
}

// WithIdentifier 替换服务 / OS 识别规则
func WithIdentifier(id *fingerprint.Identifier) Option {
	return func(d *scannerDeps) { d.identifier = id }
}

// NewPortScanner 根据扫描配置创建扫描器
func NewPortScanner(cfg *config.ScanConfig, opts ...Option) (*PortScanner, error) {
	if cfg == nil {
		cfg = config.DefaultScanConfig()
	}
	if err := config.ValidateScanConfig(cfg); err != nil {
		return nil, err
	}

	deps := &scannerDeps{}
	for _, opt := range opts {
		opt(deps)
	}

	// 1. 域名解析：指定了 DNS 服务器时走 miekg/dns，否则系统解析
	if deps.lookup == nil && cfg.DNSServer != "" {
		r, err := pipeline.NewDNSResolver(cfg.DNSServer, cfg.ProbeTimeout)
		if err != nil {
			return nil, err
		}
		deps.lookup = r
	}

	// 2. 探测器：TCP 可以走代理，UDP 始终直连
	if deps.prober == nil {
		if deps.tcpDialer == nil {
			dl, err := dialer.New(cfg.Proxy, cfg.ProbeTimeout)
			if err != nil {
				return nil, fmt.Errorf("create tcp dialer: %w", err)
			}
			deps.tcpDialer = dl
		}
		deps.prober = NewNetProber(ProberOptions{
			ProbeTimeout:  cfg.ProbeTimeout,
			BannerTimeout: cfg.BannerTimeout,
			UDPRetries:    cfg.UDPRetries,
			TCPDialer:     deps.tcpDialer,
			Identifier:    deps.identifier,
		})
	}

	return &PortScanner{
		cfg:      *cfg,
		resolver: pipeline.NewResolver(cfg.MaxTargets, deps.lookup),
		prober:   deps.prober,
	}, nil
}

// Config 当前生效的扫描配置
func (s *PortScanner) Config() config.ScanConfig { return s.cfg }

// Run 执行一次扫描会话
// 请求级错误（参数、解析、总量超限）整体拒绝，不会打开任何 socket；
// 否则返回完整的过滤排序结果，探测级失败以 status=error 的结果行出现
func (s *PortScanner) Run(ctx context.Context, req model.ScanRequest) (*model.ScanReport, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	targets, err := s.resolver.Resolve(ctx, req.Target)
	if err != nil {
		logger.LogScanOperation("", ScannerName, req.Target, logger.ScanStatusFailed, 0, err.Error(), time.Since(start), nil)
		return nil, err
	}

	if err := s.checkCeiling(len(targets), req.PortCount()); err != nil {
		logger.LogScanOperation("", ScannerName, req.Target, logger.ScanStatusFailed, 0, err.Error(), time.Since(start), nil)
		return nil, err
	}

	session := model.NewScanSession(req)
	scheduler := NewScheduler(s.prober, SchedulerOptions{
		Workers:         s.cfg.Workers,
		SessionDeadline: s.cfg.SessionDeadline,
		Rate:            s.cfg.Rate,
	})
	raw := scheduler.Run(ctx, session, targets)

	summary := model.ScanSummary{
		SessionID: session.ID,
		Target:    req.Target,
		Protocol:  req.Protocol,
		Targets:   len(targets),
	}
	for _, r := range raw {
		summary.Count(r.Status)
		if r.ErrorCode != nil && *r.ErrorCode == model.CodeScanTimedOut {
			summary.TimedOut = true
		}
	}
	summary.Duration = time.Since(start)

	status := logger.ScanStatusCompleted
	if summary.TimedOut {
		status = logger.ScanStatusTimedOut
	}
	logger.LogScanOperation(session.ID, ScannerName, req.Target, status, 100,
		fmt.Sprintf("open=%d closed=%d filtered=%d error=%d", summary.Open, summary.Closed, summary.Filtered, summary.Errors),
		summary.Duration, map[string]interface{}{
			"protocol": string(req.Protocol),
			"targets":  len(targets),
			"total":    summary.Total,
		})

	return &model.ScanReport{
		Summary: summary,
		Results: Aggregate(raw, req.ShowClosed, req.ShowFiltered),
	}, nil
}

// checkCeiling 目标数 × 端口数 不得超过 max_probes
func (s *PortScanner) checkCeiling(targets, ports int) error {
	limit := s.cfg.MaxProbes
	if limit <= 0 {
		limit = DefaultMaxProbes
	}
	if targets > 0 && ports > limit/targets {
		return fmt.Errorf("%w: %d target(s) x %d port(s) exceeds the limit of %d probes",
			model.ErrTargetSetTooLarge, targets, ports, limit)
	}
	return nil
}
