package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/model"
)

func TestBuiltinRulesParse(t *testing.T) {
	rs, err := ParseRules(defaultRules)
	require.NoError(t, err)
	assert.NotEmpty(t, rs.Services)
	assert.NotEmpty(t, rs.OS)
}

func TestParseRulesRejectsGarbage(t *testing.T) {
	_, err := ParseRules("match ssh SSH-")
	assert.Error(t, err)

	_, err = ParseRules("match ssh m|(unclosed|")
	assert.Error(t, err)

	_, err = ParseRules("match ssh m|abc=")
	assert.Error(t, err)
}

func TestIdentifyByPort(t *testing.T) {
	id := NewIdentifier()

	svc, os := id.Identify(22, model.ProtocolTCP, nil)
	assert.Equal(t, "ssh", svc)
	assert.Equal(t, Unknown, os)

	svc, _ = id.Identify(80, model.ProtocolTCP, nil)
	assert.Equal(t, "http", svc)

	svc, _ = id.Identify(161, model.ProtocolUDP, nil)
	assert.Equal(t, "snmp", svc)

	svc, _ = id.Identify(40000, model.ProtocolTCP, nil)
	assert.Equal(t, Unknown, svc)
}

func TestIdentifyBannerOverridesPort(t *testing.T) {
	id := NewIdentifier()
	cases := []struct {
		port    uint16
		proto   model.Protocol
		banner  string
		service string
		os      string
	}{
		{2222, model.ProtocolTCP, "SSH-2.0-OpenSSH_8.9p1 Ubuntu-3ubuntu0.6\r\n", "ssh", "Linux (Ubuntu)"},
		{80, model.ProtocolTCP, "SSH-2.0-OpenSSH_7.4\r\n", "ssh", Unknown},
		{2121, model.ProtocolTCP, "220 Microsoft FTP Service\r\n", "ftp", "Windows"},
		{25, model.ProtocolTCP, "220 mail.example.com ESMTP Postfix (Debian/GNU)\r\n", "smtp", "Linux (Debian)"},
		{8000, model.ProtocolTCP, "HTTP/1.1 400 Bad Request\r\nServer: Microsoft-IIS/10.0\r\n", "http", "Windows"},
		{5901, model.ProtocolTCP, "RFB 003.008\n", "vnc", Unknown},
		{3307, model.ProtocolTCP, "J\x00\x00\x00\x0a8.0.36\x00", "mysql", Unknown},
		{110, model.ProtocolTCP, "+OK Dovecot (FreeBSD) ready.", "pop3", "FreeBSD"},
		{23, model.ProtocolTCP, "\xff\xfd\x18\xff\xfd\x20", "telnet", Unknown},
		{22, model.ProtocolTCP, "SSH-2.0-OpenSSH_7.4 el7 Red Hat", "ssh", "Linux (Red Hat)"},
		{10022, model.ProtocolTCP, "SSH-2.0-OpenSSH_9.0 Darwin", "ssh", "macOS"},
	}
	for _, tc := range cases {
		svc, os := id.Identify(tc.port, tc.proto, []byte(tc.banner))
		assert.Equal(t, tc.service, svc, "banner=%q", tc.banner)
		assert.Equal(t, tc.os, os, "banner=%q", tc.banner)
	}
}

func TestIdentifyProtocolScopedRules(t *testing.T) {
	id := NewIdentifier()
	dnsReply := []byte{0x12, 0x34, 0x81, 0x80, 0x00, 0x01}

	svc, _ := id.Identify(5353, model.ProtocolUDP, dnsReply)
	assert.Equal(t, "domain", svc)

	// 同样的字节出现在 TCP 上不应被识别为 DNS
	svc, _ = id.Identify(40001, model.ProtocolTCP, dnsReply)
	assert.Equal(t, Unknown, svc)
}

func TestSanitizeBanner(t *testing.T) {
	assert.Equal(t, "SSH-2.0-OpenSSH_8.9", SanitizeBanner([]byte("  SSH-2.0-OpenSSH_8.9\r\n")))
	assert.Equal(t, `\xff\xfd\x18`, SanitizeBanner([]byte{0xff, 0xfd, 0x18}))
	assert.Equal(t, "", SanitizeBanner(nil))

	long := SanitizeBanner([]byte(strings.Repeat("A", 5000)))
	assert.Len(t, long, MaxBannerLen)
}
