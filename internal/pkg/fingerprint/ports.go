package fingerprint

import "neorecon/internal/core/model"

// 常用端口到服务名的映射，命名沿用 IANA / nmap-services
var tcpServices = map[uint16]string{
	7:     "echo",
	20:    "ftp-data",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "domain",
	80:    "http",
	88:    "kerberos-sec",
	110:   "pop3",
	111:   "rpcbind",
	119:   "nntp",
	135:   "msrpc",
	139:   "netbios-ssn",
	143:   "imap",
	179:   "bgp",
	389:   "ldap",
	443:   "https",
	445:   "microsoft-ds",
	465:   "smtps",
	514:   "shell",
	587:   "submission",
	631:   "ipp",
	636:   "ldapssl",
	873:   "rsync",
	993:   "imaps",
	995:   "pop3s",
	1080:  "socks",
	1433:  "ms-sql-s",
	1521:  "oracle",
	1883:  "mqtt",
	2049:  "nfs",
	2181:  "zookeeper",
	2375:  "docker",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5432:  "postgresql",
	5672:  "amqp",
	5900:  "vnc",
	5985:  "wsman",
	6379:  "redis",
	8080:  "http-proxy",
	8443:  "https-alt",
	9092:  "kafka",
	9200:  "elasticsearch",
	11211: "memcache",
	27017: "mongodb",
}

var udpServices = map[uint16]string{
	53:    "domain",
	67:    "dhcps",
	68:    "dhcpc",
	69:    "tftp",
	123:   "ntp",
	137:   "netbios-ns",
	138:   "netbios-dgm",
	161:   "snmp",
	162:   "snmptrap",
	500:   "isakmp",
	514:   "syslog",
	520:   "route",
	1900:  "upnp",
	4500:  "nat-t-ike",
	5353:  "mdns",
	11211: "memcache",
}

// ServiceByPort 按端口和协议查询服务名，未知返回空字符串
func ServiceByPort(port uint16, proto model.Protocol) string {
	if proto == model.ProtocolUDP {
		return udpServices[port]
	}
	return tcpServices[port]
}
