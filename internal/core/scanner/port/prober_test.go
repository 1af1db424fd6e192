package port

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
)

var loopback = netip.MustParseAddr("127.0.0.1")

func testProber() *NetProber {
	return NewNetProber(ProberOptions{
		ProbeTimeout:  500 * time.Millisecond,
		BannerTimeout: 300 * time.Millisecond,
		UDPRetries:    1,
		TCPDialer:     dialer.NewDefaultDialer(time.Second),
	})
}

// startBannerServer 本地 TCP 监听，连接建立后发送 banner
func startBannerServer(t *testing.T, banner string) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			if banner != "" {
				_, _ = c.Write([]byte(banner))
			}
			time.Sleep(50 * time.Millisecond)
			c.Close()
		}
	}()
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

// unusedPort 绑定后立即释放，得到一个当前无人监听的端口
func unusedPort(t *testing.T, network string) uint16 {
	t.Helper()
	switch network {
	case "udp":
		c, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		port := c.LocalAddr().(*net.UDPAddr).Port
		c.Close()
		return uint16(port)
	default:
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := ln.Addr().(*net.TCPAddr).Port
		ln.Close()
		return uint16(port)
	}
}

func TestProbeTCPOpenWithBanner(t *testing.T) {
	port := startBannerServer(t, "SSH-2.0-OpenSSH_8.9p1 Ubuntu-3ubuntu0.6\r\n")
	p := testProber()

	for i := 0; i < 3; i++ {
		out := p.Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolTCP})
		assert.Equal(t, model.StatusOpen, out.Status)
		assert.Equal(t, "ssh", out.Service)
		assert.Equal(t, "Linux (Ubuntu)", out.OSInfo)
		assert.Equal(t, "SSH-2.0-OpenSSH_8.9p1 Ubuntu-3ubuntu0.6", out.Banner)
		assert.Zero(t, out.ErrorCode)
	}
}

func TestProbeTCPOpenSilentService(t *testing.T) {
	port := startBannerServer(t, "")
	out := testProber().Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolTCP})

	assert.Equal(t, model.StatusOpen, out.Status)
	assert.Empty(t, out.Banner)
	assert.Equal(t, "unknown", out.OSInfo)
}

func TestProbeTCPClosed(t *testing.T) {
	port := unusedPort(t, "tcp")
	p := testProber()

	for i := 0; i < 3; i++ {
		out := p.Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolTCP})
		assert.Equal(t, model.StatusClosed, out.Status)
		assert.Empty(t, out.Service)
		assert.Empty(t, out.OSInfo)
	}
}

type stubDialer struct {
	err   error
	delay bool
}

func (d stubDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	if d.delay {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, d.err
}

func TestProbeTCPClassification(t *testing.T) {
	task := model.ProbeTask{Address: netip.MustParseAddr("192.0.2.1"), Port: 80, Protocol: model.ProtocolTCP}

	tests := []struct {
		name     string
		dialer   stubDialer
		status   model.PortStatus
		code     int
		wantText string
	}{
		{"refused", stubDialer{err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}, model.StatusClosed, 0, ""},
		{"proxy refused", stubDialer{err: errors.New("socks connect tcp 192.0.2.1:80: connection refused")}, model.StatusClosed, 0, ""},
		{"silent", stubDialer{delay: true}, model.StatusFiltered, 0, ""},
		{"unreachable", stubDialer{err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH}}, model.StatusError, int(syscall.EHOSTUNREACH), syscall.EHOSTUNREACH.Error()},
		{"opaque", stubDialer{err: errors.New("boom")}, model.StatusError, model.CodeUnknownTransport, "boom"},
		{"proxy down", stubDialer{err: fmt.Errorf("%w: 127.0.0.1:1080: %w", dialer.ErrProxyUnavailable,
			&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})},
			model.StatusError, int(syscall.ECONNREFUSED), "proxy unavailable: " + syscall.ECONNREFUSED.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewNetProber(ProberOptions{ProbeTimeout: 50 * time.Millisecond, TCPDialer: tt.dialer})
			out := p.Probe(context.Background(), task)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.code, out.ErrorCode)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, out.ErrorMessage)
			}
			assert.Equal(t, task, out.Task)
		})
	}
}

func TestTCPThroughDeadProxyIsError(t *testing.T) {
	port := startBannerServer(t, "")
	proxyAddr := net.JoinHostPort("127.0.0.1", strconv.Itoa(int(unusedPort(t, "tcp"))))

	d, err := dialer.New("socks5://"+proxyAddr, time.Second)
	require.NoError(t, err)
	p := NewNetProber(ProberOptions{ProbeTimeout: time.Second, TCPDialer: d})

	// 目标端口在监听，代理不可用时不能报告为 closed
	out := p.Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolTCP})
	assert.Equal(t, model.StatusError, out.Status)
	assert.NotZero(t, out.ErrorCode)
	assert.Contains(t, out.ErrorMessage, "proxy unavailable")
}

func TestDefaultTCPDialerFollowsConfiguredTimeout(t *testing.T) {
	p := NewNetProber(ProberOptions{ProbeTimeout: 5 * time.Second})
	d, ok := p.tcp.(*dialer.DefaultDialer)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, d.Timeout)

	p = NewNetProber(ProberOptions{})
	assert.Equal(t, DefaultProbeTimeout, p.tcp.(*dialer.DefaultDialer).Timeout)
}

func TestProbeSessionEnded(t *testing.T) {
	task := model.ProbeTask{Address: loopback, Port: 1, Protocol: model.ProtocolTCP}
	p := NewNetProber(ProberOptions{ProbeTimeout: time.Second, TCPDialer: stubDialer{delay: true}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := p.Probe(ctx, task)
	assert.Equal(t, model.StatusError, out.Status)
	assert.Equal(t, model.CodeProbeCancelled, out.ErrorCode)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out = p.Probe(ctx, task)
	assert.Equal(t, model.StatusError, out.Status)
	assert.Equal(t, model.CodeScanTimedOut, out.ErrorCode)
	assert.Equal(t, model.MsgScanTimedOut, out.ErrorMessage)
}

func TestProbeUDPOpen(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			_, _ = pc.WriteTo(append([]byte("echo:"), buf[:n]...), addr)
		}
	}()

	port := uint16(pc.LocalAddr().(*net.UDPAddr).Port)
	out := testProber().Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolUDP})
	assert.Equal(t, model.StatusOpen, out.Status)
	assert.Contains(t, out.Banner, "echo:")
}

func TestProbeUDPClosed(t *testing.T) {
	port := unusedPort(t, "udp")
	p := testProber()

	for i := 0; i < 3; i++ {
		out := p.Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolUDP})
		assert.Equal(t, model.StatusClosed, out.Status)
	}
}

func TestProbeUDPSilentIsFiltered(t *testing.T) {
	// 收包但从不回应
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	received := make(chan struct{}, 4)
	go func() {
		buf := make([]byte, 512)
		for {
			if _, _, err := pc.ReadFrom(buf); err != nil {
				return
			}
			received <- struct{}{}
		}
	}()

	p := NewNetProber(ProberOptions{ProbeTimeout: 100 * time.Millisecond, UDPRetries: 1})
	port := uint16(pc.LocalAddr().(*net.UDPAddr).Port)
	out := p.Probe(context.Background(), model.ProbeTask{Address: loopback, Port: port, Protocol: model.ProtocolUDP})

	assert.Equal(t, model.StatusFiltered, out.Status)
	// 首次发送 + 一次重试
	assert.Len(t, received, 2)
}

func TestUDPPayloads(t *testing.T) {
	assert.Equal(t, genericUDPPayload, udpPayload(40000))
	assert.Len(t, udpPayload(123), 48)
	assert.Equal(t, byte(0x30), udpPayload(161)[0], "snmp payload is a BER sequence")

	dnsProbe := udpPayload(53)
	require.Greater(t, len(dnsProbe), 12)
	assert.Equal(t, []byte{0x00, 0x01}, dnsProbe[4:6], "one question")
}
