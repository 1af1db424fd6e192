/**
 * 端口扫描基础类型
 * @author: sun977
 * @date: 2026.10.19
 * @description: 协议、端口状态、探测任务与探测结果等核心值类型
 */
package model

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Protocol 传输层协议
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// ParseProtocol 解析协议字符串（大小写不敏感）
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToLower(strings.TrimSpace(s))) {
	case ProtocolTCP:
		return ProtocolTCP, nil
	case ProtocolUDP:
		return ProtocolUDP, nil
	}
	return "", fmt.Errorf("%w: unsupported protocol %q", ErrInvalidRequest, s)
}

func (p Protocol) String() string { return string(p) }

// PortStatus 端口状态，四种取值互斥且完备
type PortStatus string

const (
	StatusOpen     PortStatus = "open"
	StatusClosed   PortStatus = "closed"
	StatusFiltered PortStatus = "filtered"
	StatusError    PortStatus = "error"
)

func (s PortStatus) String() string { return string(s) }

// 引擎自身合成的错误码，与操作系统 errno 区分开
const (
	CodeUnknownTransport = 1000 // 无法归类的传输层错误
	CodeScanTimedOut     = 1001 // 会话截止时间到达，探测未执行或被中止
	CodeProbeCancelled   = 1002 // 调用方取消了会话
)

const (
	MsgScanTimedOut   = "scan timed out"
	MsgProbeCancelled = "probe cancelled"
)

// ProbeTask 一次探测的最小单元：地址 + 端口 + 协议
// 值类型，创建后不再修改
type ProbeTask struct {
	Address  netip.Addr
	Port     uint16
	Protocol Protocol
}

// Endpoint 返回 host:port 形式的拨号地址（IPv6 自动加方括号）
func (t ProbeTask) Endpoint() string {
	return netip.AddrPortFrom(t.Address, t.Port).String()
}

func (t ProbeTask) String() string {
	return fmt.Sprintf("%s/%s", t.Endpoint(), t.Protocol)
}

// ProbeOutcome 单次探测的分类结果
type ProbeOutcome struct {
	Task         ProbeTask
	Status       PortStatus
	Banner       string
	Service      string
	OSInfo       string
	ErrorCode    int
	ErrorMessage string
	RTT          time.Duration
}

// ErrorOutcome 构造一个 error 状态的探测结果
func ErrorOutcome(task ProbeTask, code int, msg string) ProbeOutcome {
	return ProbeOutcome{
		Task:         task,
		Status:       StatusError,
		ErrorCode:    code,
		ErrorMessage: msg,
	}
}

// ToResult 转换为对外输出的 ScanResult
func (o ProbeOutcome) ToResult() ScanResult {
	r := ScanResult{
		IP:       o.Task.Address.String(),
		Port:     int(o.Task.Port),
		Protocol: o.Task.Protocol,
		Status:   o.Status,
		Service:  o.Service,
		OSInfo:   o.OSInfo,
		Banner:   o.Banner,
		addr:     o.Task.Address,
	}
	if o.Status == StatusError {
		code := o.ErrorCode
		msg := o.ErrorMessage
		r.ErrorCode = &code
		r.ErrorMessage = &msg
	}
	return r
}
