/**
 * 服务与操作系统推断
 * @author: sun977
 * @date: 2026.10.19
 * @description: 端口表给出默认服务名，banner 签名命中时覆盖端口表的猜测；OS 只从 banner 推断
 */
package fingerprint

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"neorecon/internal/core/model"
)

// Unknown 无法推断时的占位值
const Unknown = "unknown"

// MaxBannerLen 输出 banner 的最大长度
const MaxBannerLen = 1024

// Identifier 服务 / OS 识别器，只读，可并发使用
type Identifier struct {
	rules *RuleSet
}

// NewIdentifier 使用内置规则创建识别器
func NewIdentifier() *Identifier {
	rs, err := ParseRules(defaultRules)
	if err != nil {
		// 内置规则在测试中校验，这里出错说明构建产物被破坏
		panic(err)
	}
	return &Identifier{rules: rs}
}

// NewIdentifierWithRules 使用自定义规则创建识别器
func NewIdentifierWithRules(rs *RuleSet) *Identifier {
	return &Identifier{rules: rs}
}

// Identify 推断服务名和 OS，raw 为探测读到的原始字节
func (id *Identifier) Identify(port uint16, proto model.Protocol, raw []byte) (service, os string) {
	service = ServiceByPort(port, proto)
	if service == "" {
		service = Unknown
	}
	os = Unknown
	if len(raw) == 0 {
		return service, os
	}

	text := bytesToRunes(raw)
	for _, r := range id.rules.Services {
		if r.Protocol != "" && r.Protocol != string(proto) {
			continue
		}
		if r.Match(text) {
			service = r.Name
			break
		}
	}
	for _, r := range id.rules.OS {
		if r.Match(text) {
			os = r.Name
			break
		}
	}
	return service, os
}

// bytesToRunes 按 Latin-1 把每个字节映射为同值的 rune
// regexp2 以 rune 为单位匹配，直接转换会把非 UTF-8 字节变成 U+FFFD，\xNN 规则就失效了
func bytesToRunes(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// SanitizeBanner 生成可展示的 banner：去掉首尾空白，不可打印字符转为 \xNN，长度截断
func SanitizeBanner(raw []byte) string {
	var sb strings.Builder
	for len(raw) > 0 && sb.Len() < MaxBannerLen {
		r, size := utf8.DecodeRune(raw)
		switch {
		case r == utf8.RuneError && size <= 1:
			sb.WriteString(`\x`)
			sb.WriteString(hex2(raw[0]))
		case r == '\r' || r == '\n' || r == '\t':
			sb.WriteRune(' ')
		case !unicode.IsPrint(r):
			for _, c := range raw[:size] {
				sb.WriteString(`\x`)
				sb.WriteString(hex2(c))
			}
		default:
			sb.WriteRune(r)
		}
		raw = raw[size:]
	}
	out := strings.TrimSpace(sb.String())
	if len(out) > MaxBannerLen {
		out = out[:MaxBannerLen]
		// 不截断在多字节字符中间
		for !utf8.ValidString(out) {
			out = out[:len(out)-1]
		}
	}
	return out
}

func hex2(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}
