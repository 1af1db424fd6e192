package fingerprint

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2" // PCRE 语法，支持 \xNN 字节匹配与环视
)

//go:embed signatures.rules
var defaultRules string

// 规则行语法：<kind> <name> m<d>pattern<d>flags
var ruleLineRegexp = regexp.MustCompile(`^(match|os) (.+?) m([|=%@])(.+)([|=%@])([is]{0,2})$`)

// matchTimeout 单条规则的匹配超时，防止恶意 banner 触发回溯爆炸
const matchTimeout = 50 * time.Millisecond

// Rule 一条 banner 签名
type Rule struct {
	Kind     string // match / os
	Name     string // 服务名或 OS 名
	Protocol string // 为空表示不限协议
	Pattern  string
	re       *regexp2.Regexp
}

// Match 判断 banner 是否命中规则，超时视为未命中
func (r *Rule) Match(banner string) bool {
	ok, err := r.re.MatchString(banner)
	return err == nil && ok
}

// RuleSet 解析后的规则集，保持文件中的顺序
type RuleSet struct {
	Services []*Rule
	OS       []*Rule
}

// ParseRules 解析规则文本，任何一行非法都会返回错误
func ParseRules(content string) (*RuleSet, error) {
	rs := &RuleSet{}
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := parseRuleLine(line)
		if err != nil {
			return nil, fmt.Errorf("rules line %d: %w", i+1, err)
		}
		if rule.Kind == "match" {
			rs.Services = append(rs.Services, rule)
		} else {
			rs.OS = append(rs.OS, rule)
		}
	}
	return rs, nil
}

func parseRuleLine(line string) (*Rule, error) {
	args := ruleLineRegexp.FindStringSubmatch(line)
	if args == nil {
		return nil, fmt.Errorf("invalid rule %q", line)
	}
	kind, name, open, pattern, closing, opt := args[1], args[2], args[3], args[4], args[5], args[6]
	if open != closing {
		return nil, fmt.Errorf("mismatched delimiters in %q", line)
	}

	rule := &Rule{Kind: kind, Name: name, Pattern: pattern}
	if kind == "match" {
		if svc, proto, ok := strings.Cut(name, "/"); ok {
			rule.Name, rule.Protocol = svc, proto
		}
	}

	re, err := compilePattern(pattern, opt)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	rule.re = re
	return rule, nil
}

func compilePattern(pattern, opt string) (*regexp2.Regexp, error) {
	var options regexp2.RegexOptions
	if strings.Contains(opt, "i") {
		options |= regexp2.IgnoreCase
	}
	if strings.Contains(opt, "s") {
		options |= regexp2.Singleline
	}
	re, err := regexp2.Compile(pattern, options)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return re, nil
}
