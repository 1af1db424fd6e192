package port

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
)

// isConnRefused 判断是否为连接被拒绝
// TCP 对应 RST，UDP 对应内核回传的 ICMP port unreachable
func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	// SOCKS5 代理的 0x05 应答以及部分平台的错误没有 errno，只能看文本
	return strings.Contains(strings.ToLower(err.Error()), "refused")
}

// isTimeout 判断是否为超时（探测自身的超时或读写 deadline）
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errnoOf 从错误链中取出 errno，取不到返回 0
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}

// transportError 将无法归为 closed / filtered 的错误编码为 error 结果
func transportError(task model.ProbeTask, err error) model.ProbeOutcome {
	code := errnoOf(err)
	msg := err.Error()
	if code != 0 {
		// errno 的描述比 "dial tcp x.x.x.x:nn: connect: ..." 更稳定
		msg = syscall.Errno(code).Error()
	} else {
		code = model.CodeUnknownTransport
	}
	if errors.Is(err, dialer.ErrProxyUnavailable) {
		msg = dialer.ErrProxyUnavailable.Error() + ": " + msg
	}
	return model.ErrorOutcome(task, code, msg)
}

// sessionOutcome 会话级终止（截止时间到达或调用方取消）时的结果
func sessionOutcome(ctx context.Context, task model.ProbeTask) model.ProbeOutcome {
	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) {
		return model.ErrorOutcome(task, model.CodeScanTimedOut, model.MsgScanTimedOut)
	}
	return model.ErrorOutcome(task, model.CodeProbeCancelled, model.MsgProbeCancelled)
}
