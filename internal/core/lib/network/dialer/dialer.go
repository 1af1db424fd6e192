package dialer

import (
	"context"
	"net"
	"strings"
	"time"
)

// Dialer 网络连接器接口
type Dialer interface {
	// DialContext 建立连接
	// network: 协议 (tcp, udp)
	// address: 目标地址 (ip:port)
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DefaultDialer 直连拨号器
// Timeout 只是兜底，探测超时由调用方的 ctx 决定
type DefaultDialer struct {
	Timeout time.Duration
}

func NewDefaultDialer(timeout time.Duration) *DefaultDialer {
	return &DefaultDialer{Timeout: timeout}
}

func (d *DefaultDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, network, address)
}

// New 根据代理地址创建拨号器，proxyAddr 为空时直连
func New(proxyAddr string, timeout time.Duration) (Dialer, error) {
	if strings.TrimSpace(proxyAddr) == "" {
		return NewDefaultDialer(timeout), nil
	}
	return NewProxyDialer(proxyAddr, timeout)
}
