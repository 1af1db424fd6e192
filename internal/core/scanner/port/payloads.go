package port

import (
	"math/rand"

	"github.com/gosnmp/gosnmp"
	"github.com/miekg/dns"

	"neorecon/internal/pkg/logger"
)

// UDP 没有握手，空报文大多会被服务静默丢弃。
// 对常见端口发送一个协议合法的请求，提高拿到应答（open）的概率。

// genericUDPPayload 未知端口使用的通用报文
var genericUDPPayload = []byte("\r\n\r\n")

// ntpClientRequest NTPv3 client 模式请求（LI=0, VN=3, Mode=3）
var ntpClientRequest = func() []byte {
	b := make([]byte, 48)
	b[0] = 0x1b
	return b
}()

// netbiosStatRequest NetBIOS NBSTAT 查询 "*"
var netbiosStatRequest = []byte("\x80\xf0\x00\x10\x00\x01\x00\x00\x00\x00\x00\x00" +
	"\x20CKAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA\x00\x00\x21\x00\x01")

// udpPayload 返回端口对应的探测报文
func udpPayload(port uint16) []byte {
	switch port {
	case 53:
		return dnsQuery("version.bind.", dns.TypeTXT, dns.ClassCHAOS)
	case 5353:
		return dnsQuery("_services._dns-sd._udp.local.", dns.TypePTR, dns.ClassINET)
	case 123:
		return ntpClientRequest
	case 137:
		return netbiosStatRequest
	case 161:
		return snmpGetRequest("public")
	}
	return genericUDPPayload
}

func dnsQuery(name string, qtype, qclass uint16) []byte {
	msg := new(dns.Msg)
	msg.Id = dns.Id()
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{Name: name, Qtype: qtype, Qclass: qclass}}
	b, err := msg.Pack()
	if err != nil {
		logger.Debugf("pack dns probe %s failed: %v", name, err)
		return genericUDPPayload
	}
	return b
}

// snmpGetRequest SNMPv2c GetRequest sysDescr.0
func snmpGetRequest(community string) []byte {
	pkt := &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: community,
		PDUType:   gosnmp.GetRequest,
		RequestID: rand.Uint32() & 0x7fffffff,
		Variables: []gosnmp.SnmpPDU{{
			Name: ".1.3.6.1.2.1.1.1.0",
			Type: gosnmp.Null,
		}},
	}
	b, err := pkt.MarshalMsg()
	if err != nil {
		logger.Debugf("marshal snmp probe failed: %v", err)
		return genericUDPPayload
	}
	return b
}
