package resolver

import "net/netip"

// Reserved and non-routable ranges. A DNS record pointed into any of these
// can never be a host's external address, so candidates inside them are
// rejected by exact prefix containment rather than string matching.

var reserved4 = mustPrefixes(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.2.0/24",
	"192.88.99.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
)

// The NAT64 and IPv4-mapped translation ranges are excluded wholesale, which
// also covers every reserved IPv4 address embedded in their low 32 bits.
var reserved6 = mustPrefixes(
	"::1/128",       // loopback
	"64:ff9b::/96",  // IPv4-translated (NAT64)
	"::ffff:0:0/96", // IPv4-mapped
	"100::/64",      // discard-only
	"2001::/32",     // Teredo
	"2001:20::/28",  // ORCHIDv2
	"2001:db8::/32", // documentation
	"3fff::/20",     // documentation
	"2002::/16",     // 6to4
	"5f00::/16",     // SRv6
	"fc00::/7",      // unique-local
	"fe80::/10",     // link-local
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	ps := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		ps = append(ps, netip.MustParsePrefix(c))
	}
	return ps
}

func containsAny(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// isReserved reports whether addr falls inside any reserved range.
func isReserved(addr netip.Addr) bool {
	if addr.Is4() {
		return containsAny(reserved4, addr)
	}
	// Force the 16-byte form so 4-in-6 addresses match v6 prefixes.
	return containsAny(reserved6, netip.AddrFrom16(addr.As16()))
}
