package discovery

import (
	"encoding/binary"
	"fmt"
	"net"
	"sort"

	"github.com/mkniffen/matterd/pkg/fabric"
)

// OperationalInstanceName builds the DNS-SD instance name for operational
// discovery: "<CompressedFabricID>-<NodeID>", each 16 uppercase hex
// characters.
func OperationalInstanceName(compressedFabricID [8]byte, nodeID fabric.NodeID) string {
	cfid := binary.BigEndian.Uint64(compressedFabricID[:])
	return fmt.Sprintf("%016X-%016X", cfid, uint64(nodeID))
}

// ParseOperationalInstanceName is OperationalInstanceName's inverse.
func ParseOperationalInstanceName(instanceName string) ([8]byte, fabric.NodeID, error) {
	var compressedFabricID [8]byte
	if len(instanceName) != 33 || instanceName[16] != '-' {
		return compressedFabricID, 0, ErrInvalidInstanceName
	}
	cfid, err := parseHex16(instanceName[:16])
	if err != nil {
		return compressedFabricID, 0, ErrInvalidInstanceName
	}
	nid, err := parseHex16(instanceName[17:])
	if err != nil {
		return compressedFabricID, 0, ErrInvalidInstanceName
	}
	binary.BigEndian.PutUint64(compressedFabricID[:], cfid)
	return compressedFabricID, fabric.NodeID(nid), nil
}

func parseHex16(s string) (uint64, error) {
	if len(s) != 16 {
		return 0, ErrInvalidInstanceName
	}
	var result uint64
	for i := 0; i < 16; i++ {
		c := s[i]
		var v uint64
		switch {
		case c >= '0' && c <= '9':
			v = uint64(c - '0')
		case c >= 'A' && c <= 'F':
			v = uint64(c - 'A' + 10)
		case c >= 'a' && c <= 'f':
			v = uint64(c - 'a' + 10)
		default:
			return 0, ErrInvalidInstanceName
		}
		result = result<<4 | v
	}
	return result, nil
}

// SortIPsByPreference orders ips with globally-routable addresses first,
// then unique-local, then link-local, matching the resolution preference
// spec §4.12 inherits from the underlying mDNS resolution.
func SortIPsByPreference(ips []net.IP) []net.IP {
	if len(ips) <= 1 {
		return ips
	}
	sorted := make([]net.IP, len(ips))
	copy(sorted, ips)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ipRank(sorted[i]) < ipRank(sorted[j])
	})
	return sorted
}

func ipRank(ip net.IP) int {
	switch {
	case ip.IsGlobalUnicast() && !isUniqueLocal(ip):
		return 0
	case isUniqueLocal(ip):
		return 1
	case ip.IsLinkLocalUnicast():
		return 2
	default:
		return 3
	}
}

func isUniqueLocal(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 != nil {
		return false
	}
	return len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc
}

// FilterIPv4 returns only the IPv4 addresses in ips.
func FilterIPv4(ips []net.IP) []net.IP {
	var out []net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			out = append(out, ip)
		}
	}
	return out
}

// FilterIPv6 returns only the IPv6 addresses in ips.
func FilterIPv6(ips []net.IP) []net.IP {
	var out []net.IP
	for _, ip := range ips {
		if ip.To4() == nil {
			out = append(out, ip)
		}
	}
	return out
}
