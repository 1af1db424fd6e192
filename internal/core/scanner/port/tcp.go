package port

import (
	"context"
	"errors"
	"time"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
)

// probeTCP connect() 探测
//
//	握手完成      -> open（随后尝试读取 banner）
//	RST / 拒绝    -> closed（经代理时为 SOCKS5 reply 0x05）
//	超时无应答    -> filtered
//	其他传输错误  -> error(errno)，包括代理不可用
//
// TCP 不重试：拒绝或握手本身就是确定的信号
func (p *NetProber) probeTCP(ctx context.Context, task model.ProbeTask) (model.ProbeOutcome, []byte) {
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	conn, err := p.tcp.DialContext(probeCtx, "tcp", task.Endpoint())
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return sessionOutcome(ctx, task), nil
		case errors.Is(err, dialer.ErrProxyUnavailable):
			// 代理本身连不上，与目标端口状态无关
			return transportError(task, err), nil
		case isConnRefused(err):
			return model.ProbeOutcome{Status: model.StatusClosed}, nil
		case isTimeout(err) || probeCtx.Err() != nil:
			return model.ProbeOutcome{Status: model.StatusFiltered}, nil
		default:
			return transportError(task, err), nil
		}
	}
	defer conn.Close()

	return model.ProbeOutcome{Status: model.StatusOpen}, p.readBanner(ctx, conn)
}

// readBanner 握手成功后尽力读取一次 banner，超时或空读不算错误
func (p *NetProber) readBanner(ctx context.Context, conn interface {
	Read([]byte) (int, error)
	SetDeadline(time.Time) error
}) []byte {
	if p.bannerTimeout == 0 {
		return nil
	}
	stop := abortOnDone(ctx, conn)
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(p.bannerTimeout)); err != nil {
		return nil
	}
	buf := make([]byte, readBufferSize)
	n, _ := conn.Read(buf)
	if n <= 0 {
		return nil
	}
	return buf[:n]
}
