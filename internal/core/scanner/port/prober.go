package port

import (
	"context"
	"time"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
	"neorecon/internal/pkg/fingerprint"
)

const (
	DefaultProbeTimeout  = 1 * time.Second
	DefaultBannerTimeout = 500 * time.Millisecond

	readBufferSize = 1024
)

// Prober 单次探测执行器
// 实现必须在超时内返回，且不向调用方抛出错误：所有失败都编码进 ProbeOutcome
type Prober interface {
	Probe(ctx context.Context, task model.ProbeTask) model.ProbeOutcome
}

// ProberOptions 探测参数
type ProberOptions struct {
	ProbeTimeout  time.Duration
	BannerTimeout time.Duration
	UDPRetries    int
	// TCPDialer 为空时直连，超时取 ProbeTimeout
	TCPDialer dialer.Dialer
	// UDPDialer 为空时直连
	UDPDialer  dialer.Dialer
	Identifier *fingerprint.Identifier
}

// NetProber 基于 connect() / UDP socket 的探测器
type NetProber struct {
	probeTimeout  time.Duration
	bannerTimeout time.Duration
	udpRetries    int
	tcp           dialer.Dialer
	udp           dialer.Dialer
	identifier    *fingerprint.Identifier
}

// NewNetProber 创建探测器
func NewNetProber(opts ProberOptions) *NetProber {
	p := &NetProber{
		probeTimeout:  opts.ProbeTimeout,
		bannerTimeout: opts.BannerTimeout,
		udpRetries:    opts.UDPRetries,
		tcp:           opts.TCPDialer,
		udp:           opts.UDPDialer,
		identifier:    opts.Identifier,
	}
	if p.probeTimeout <= 0 {
		p.probeTimeout = DefaultProbeTimeout
	}
	if p.bannerTimeout < 0 {
		p.bannerTimeout = 0
	}
	if p.udpRetries < 0 {
		p.udpRetries = 0
	}
	if p.tcp == nil {
		p.tcp = dialer.NewDefaultDialer(p.probeTimeout)
	}
	if p.udp == nil {
		p.udp = dialer.NewDefaultDialer(p.probeTimeout)
	}
	if p.identifier == nil {
		p.identifier = fingerprint.NewIdentifier()
	}
	return p
}

// Probe 执行一次探测，ctx 为会话级上下文
func (p *NetProber) Probe(ctx context.Context, task model.ProbeTask) model.ProbeOutcome {
	if ctx.Err() != nil {
		return sessionOutcome(ctx, task)
	}

	start := time.Now()
	var (
		out model.ProbeOutcome
		raw []byte
	)
	switch task.Protocol {
	case model.ProtocolUDP:
		out, raw = p.probeUDP(ctx, task)
	default:
		out, raw = p.probeTCP(ctx, task)
	}
	out.Task = task
	out.RTT = time.Since(start)

	// 只对 open 做服务 / OS 推断
	if out.Status == model.StatusOpen {
		out.Service, out.OSInfo = p.identifier.Identify(task.Port, task.Protocol, raw)
		out.Banner = fingerprint.SanitizeBanner(raw)
	}
	return out
}

// abortOnDone 会话结束时立刻让阻塞中的读写返回
func abortOnDone(ctx context.Context, conn interface{ SetDeadline(time.Time) error }) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
}
