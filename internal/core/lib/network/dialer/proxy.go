package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// ErrProxyUnavailable 无法连上代理本身（代理未启动、不可达、握手超时）
// 与代理回复目标拒绝连接（SOCKS5 reply 0x05）区分开
var ErrProxyUnavailable = errors.New("proxy unavailable")

// proxyHop 到代理服务器这一跳，失败统一包装为 ErrProxyUnavailable
type proxyHop struct {
	d *net.Dialer
}

func (h proxyHop) Dial(network, address string) (net.Conn, error) {
	return h.DialContext(context.Background(), network, address)
}

func (h proxyHop) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := h.d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProxyUnavailable, address, err)
	}
	return conn, nil
}

// ProxyDialer SOCKS5 代理拨号器，仅用于 TCP 探测
// SOCKS5 的 UDP ASSOCIATE 不在支持范围内，UDP 探测始终直连
type ProxyDialer struct {
	ProxyURL *url.URL
	Timeout  time.Duration
	forward  proxy.ContextDialer
}

func NewProxyDialer(proxyAddr string, timeout time.Duration) (*ProxyDialer, error) {
	u, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address: %w", err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("unsupported proxy scheme: %s (only socks5 is supported)", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy address: missing host")
	}

	var auth *proxy.Auth
	if u.User != nil {
		auth = &proxy.Auth{User: u.User.Username()}
		if p, ok := u.User.Password(); ok {
			auth.Password = p
		}
	}

	// 代理自身的连接也受超时约束
	hop := proxyHop{d: &net.Dialer{Timeout: timeout}}
	d, err := proxy.SOCKS5("tcp", u.Host, auth, hop)
	if err != nil {
		return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer does not support context")
	}

	return &ProxyDialer{
		ProxyURL: u,
		Timeout:  timeout,
		forward:  cd,
	}, nil
}

func (d *ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" && network != "tcp4" && network != "tcp6" {
		return nil, fmt.Errorf("proxy dialer: network %s not supported", network)
	}
	return d.forward.DialContext(ctx, network, address)
}
