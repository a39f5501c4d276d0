// Package privacy holds helpers for keeping personal data out of logs.
package privacy

import (
	"net"
	"strings"
)

// AnonymizeIP truncates an IP address for logging: IPv4 keeps the /24 prefix,
// IPv6 keeps the /48. Logs need enough of the address to correlate abuse
// without storing a full personal identifier.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String() + "/24"
	}
	masked := parsed.Mask(net.CIDRMask(48, 128))
	return masked.String() + "/48"
}

// MaskCPF hides all but the last two digits of a national person ID so
// operators can correlate records without logging the full identifier.
func MaskCPF(cpf string) string {
	if len(cpf) < 2 {
		return "***"
	}
	return strings.Repeat("*", len(cpf)-2) + cpf[len(cpf)-2:]
}
