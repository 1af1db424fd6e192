package port

import (
	"context"
	"time"

	"neorecon/internal/core/model"
)

// probeUDP UDP 探测
//
//	收到应答报文          -> open（应答内容作为 banner）
//	ICMP port unreachable -> closed（connected socket 上表现为 ECONNREFUSED）
//	超时静默              -> filtered（可能是 open 但不回应，也可能被过滤，无法区分）
//
// 静默时重试 udpRetries 次，每次都有完整的探测超时
func (p *NetProber) probeUDP(ctx context.Context, task model.ProbeTask) (model.ProbeOutcome, []byte) {
	dialCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	conn, err := p.udp.DialContext(dialCtx, "udp", task.Endpoint())
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return sessionOutcome(ctx, task), nil
		}
		return transportError(task, err), nil
	}
	defer conn.Close()

	stop := abortOnDone(ctx, conn)
	defer stop()

	payload := udpPayload(task.Port)
	buf := make([]byte, readBufferSize)

	for attempt := 0; attempt <= p.udpRetries; attempt++ {
		if err := conn.SetDeadline(time.Now().Add(p.probeTimeout)); err != nil {
			return transportError(task, err), nil
		}

		if _, err := conn.Write(payload); err != nil {
			// 上一轮触发的 ICMP 错误可能在这次 write 时才返回
			if out, done := p.classifyUDPError(ctx, task, err); done {
				return out, nil
			}
			continue
		}

		n, err := conn.Read(buf)
		if err == nil {
			return model.ProbeOutcome{Status: model.StatusOpen}, buf[:n]
		}
		if out, done := p.classifyUDPError(ctx, task, err); done {
			return out, nil
		}
	}

	return model.ProbeOutcome{Status: model.StatusFiltered}, nil
}

// classifyUDPError done=false 表示静默超时，应继续重试
func (p *NetProber) classifyUDPError(ctx context.Context, task model.ProbeTask, err error) (model.ProbeOutcome, bool) {
	switch {
	case ctx.Err() != nil:
		return sessionOutcome(ctx, task), true
	case isConnRefused(err):
		return model.ProbeOutcome{Status: model.StatusClosed}, true
	case isTimeout(err):
		return model.ProbeOutcome{}, false
	default:
		return transportError(task, err), true
	}
}
