package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	"go4.org/netipx"

	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// HostResolver 域名解析接口，*net.Resolver 与 DNSResolver 都实现了它
type HostResolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolver 目标解析器
// 将目标表达式（IP / CIDR / IP范围 / 域名，可逗号分隔）展开为有序、去重的地址列表
type Resolver struct {
	maxTargets int
	lookup     HostResolver
}

// NewResolver 创建目标解析器，lookup 为空时使用系统解析器
func NewResolver(maxTargets int, lookup HostResolver) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &Resolver{maxTargets: maxTargets, lookup: lookup}
}

// Resolve 解析目标表达式
// 失败时返回包装了 ErrInvalidTarget / ErrResolutionFailed / ErrTargetSetTooLarge 的错误
func (r *Resolver) Resolve(ctx context.Context, expr string) ([]netip.Addr, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty target", model.ErrInvalidTarget)
	}

	set := &addrSet{seen: make(map[netip.Addr]struct{}), limit: r.maxTargets}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty entry in %q", model.ErrInvalidTarget, expr)
		}
		if err := r.resolvePart(ctx, part, set); err != nil {
			return nil, err
		}
	}

	logger.Debugf("target %q resolved to %d address(es)", expr, len(set.addrs))
	return set.addrs, nil
}

func (r *Resolver) resolvePart(ctx context.Context, part string, set *addrSet) error {
	// 1. CIDR (e.g., 192.168.1.0/24)
	if strings.Contains(part, "/") {
		prefix, err := netip.ParsePrefix(part)
		if err != nil {
			return fmt.Errorf("%w: %q is not a valid network block", model.ErrInvalidTarget, part)
		}
		return set.addPrefix(prefix.Masked())
	}

	// 2. IP Range (e.g., 192.168.1.1-192.168.1.10 / 192.168.1.1-10)
	if from, to, ok, err := shortRange(part); ok {
		if err != nil {
			return err
		}
		return set.addRange(from, to)
	}
	if strings.Contains(part, "-") && !looksLikeHostname(part) {
		rng, err := netipx.ParseIPRange(part)
		if err != nil {
			return fmt.Errorf("%w: %q is not a valid address range", model.ErrInvalidTarget, part)
		}
		return set.addRange(rng.From(), rng.To())
	}

	// 3. Single IP
	if addr, err := netip.ParseAddr(part); err == nil {
		return set.add(addr.Unmap())
	}

	// 4. Domain
	if !validHostname(part) {
		return fmt.Errorf("%w: %q is neither an address nor a hostname", model.ErrInvalidTarget, part)
	}
	addrs, err := r.lookup.LookupNetIP(ctx, "ip", part)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrResolutionFailed, part, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s has no address records", model.ErrResolutionFailed, part)
	}
	for _, a := range addrs {
		if err := set.add(a.Unmap()); err != nil {
			return err
		}
	}
	return nil
}

// addrSet 保序去重的地址集合，超过上限立即报错
type addrSet struct {
	addrs []netip.Addr
	seen  map[netip.Addr]struct{}
	limit int
}

func (s *addrSet) add(a netip.Addr) error {
	if _, ok := s.seen[a]; ok {
		return nil
	}
	if s.limit > 0 && len(s.addrs) >= s.limit {
		return fmt.Errorf("%w: more than %d addresses", model.ErrTargetSetTooLarge, s.limit)
	}
	s.seen[a] = struct{}{}
	s.addrs = append(s.addrs, a)
	return nil
}

// addPrefix 展开网段，网段本身超过上限时不分配内存直接拒绝
func (s *addrSet) addPrefix(p netip.Prefix) error {
	first, last := netipx.RangeOfPrefix(p).From(), netipx.PrefixLastIP(p)
	hostBits := p.Addr().BitLen() - p.Bits()

	// 与 RFC 3021 一致：/31、/32（IPv6 的 /127、/128）保留全部地址
	if hostBits >= 2 {
		first = first.Next() // 网络地址
		if p.Addr().Is4() {
			last = last.Prev() // 广播地址
		}
	}

	count := new(big.Int).Lsh(big.NewInt(1), uint(hostBits))
	if hostBits >= 2 {
		count.Sub(count, big.NewInt(1))
		if p.Addr().Is4() {
			count.Sub(count, big.NewInt(1))
		}
	}
	// 只用网段自身大小做快速拒绝；与已有地址重叠的部分由 add 去重后再精确计数
	if s.limit > 0 && count.Cmp(big.NewInt(int64(s.limit))) > 0 {
		return fmt.Errorf("%w: %s expands to %s addresses (limit %d)", model.ErrTargetSetTooLarge, p, count, s.limit)
	}

	return s.addRange(first, last)
}

func (s *addrSet) addRange(from, to netip.Addr) error {
	for a := from; a.IsValid() && a.Compare(to) <= 0; a = a.Next() {
		if err := s.add(a); err != nil {
			return err
		}
	}
	return nil
}

// shortRange 解析 IPv4 末段简写 a.b.c.d-n，ok=false 表示不是这种形式
func shortRange(s string) (from, to netip.Addr, ok bool, err error) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return from, to, false, nil
	}
	hi = strings.TrimSpace(hi)
	from, perr := netip.ParseAddr(strings.TrimSpace(lo))
	if perr != nil || !from.Is4() || !allDigits(hi) {
		return from, to, false, nil
	}
	n, aerr := strconv.Atoi(hi)
	b := from.As4()
	if aerr != nil || n > 255 || n < int(b[3]) {
		return from, to, true, fmt.Errorf("%w: %q is not a valid address range", model.ErrInvalidTarget, s)
	}
	b[3] = byte(n)
	return from, netip.AddrFrom4(b), true, nil
}

// looksLikeHostname 区分 "a-b" 形式的地址范围和带连字符的域名
func looksLikeHostname(s string) bool {
	for _, side := range strings.SplitN(s, "-", 2) {
		if _, err := netip.ParseAddr(strings.TrimSpace(side)); err != nil {
			return true
		}
	}
	return false
}

// validHostname 长度与标签结构交给 dns.IsDomainName，
// 它对字符不做限制，这里再补上主机名的 LDH 规则（允许下划线，兼容内网命名）
func validHostname(host string) bool {
	if _, ok := dns.IsDomainName(host); !ok {
		return false
	}
	labels := dns.SplitDomainName(host)
	if len(labels) == 0 {
		return false
	}
	// 顶级域不能是纯数字，"999.1.1.1" 之类按非法地址处理而不是去解析
	if allDigits(labels[len(labels)-1]) {
		return false
	}
	for _, label := range labels {
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		if strings.IndexFunc(label, func(c rune) bool { return !isHostnameChar(c) }) >= 0 {
			return false
		}
	}
	return true
}

func isHostnameChar(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
