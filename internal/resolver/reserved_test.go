package resolver

import (
	"net/netip"
	"testing"
)

func TestReservedIPv4(t *testing.T) {
	reserved := []string{
		"0.1.2.3",         // 0.0.0.0/8
		"10.255.255.255",  // 10.0.0.0/8
		"100.64.0.1",      // 100.64.0.0/10
		"100.127.255.254", // top of 100.64.0.0/10
		"127.0.0.1",       // loopback
		"169.254.10.10",   // link-local
		"172.16.0.1",      // 172.16.0.0/12
		"172.31.255.255",  // top of 172.16.0.0/12
		"192.0.2.44",      // documentation
		"192.88.99.1",     // 6to4 anycast
		"192.168.2.1",     // private
		"198.18.0.1",      // benchmarking
		"198.19.255.255",  // top of 198.18.0.0/15
		"198.51.100.7",    // documentation
		"203.0.113.5",     // documentation
		"224.0.0.1",       // multicast
		"255.255.255.255", // top of 240.0.0.0/4
	}
	for _, s := range reserved {
		if !isReserved(netip.MustParseAddr(s)) {
			t.Errorf("%s should be reserved", s)
		}
	}

	routable := []string{
		"1.1.1.1",
		"8.8.8.8",
		"93.184.216.34",
		"100.63.255.255", // just below 100.64.0.0/10
		"100.128.0.0",    // just above 100.64.0.0/10
		"172.15.255.255", // just below 172.16.0.0/12
		"172.32.0.0",     // just above 172.16.0.0/12
		"192.0.3.0",      // just above 192.0.2.0/24
		"198.17.255.255", // just below 198.18.0.0/15
		"198.20.0.0",     // just above 198.18.0.0/15
		"223.255.255.255",
	}
	for _, s := range routable {
		if isReserved(netip.MustParseAddr(s)) {
			t.Errorf("%s should be routable", s)
		}
	}
}

func TestReservedIPv6(t *testing.T) {
	reserved := []string{
		"::1",                    // loopback
		"64:ff9b::808:808",       // NAT64 translation
		"::ffff:8.8.8.8",         // IPv4-mapped
		"::ffff:192.168.1.1",     // IPv4-mapped with reserved tail
		"100::dead:beef",         // discard-only
		"2001::1",                // Teredo
		"2001:20::1",             // 2001:2x::
		"2001:2f:ffff::1",        // top of 2001:20::/28
		"2001:db8::1",            // documentation
		"3fff::1",                // documentation
		"3fff:fff:ffff::1",       // inside 3fff::/20
		"2002:102:304::1",        // 6to4
		"5f00::1",                // SRv6
		"fc00::1",                // unique-local
		"fdab:cdef::1",           // unique-local upper half
		"fe80::1",                // link-local
		"febf:ffff::1",           // top of fe80::/10
	}
	for _, s := range reserved {
		if !isReserved(netip.MustParseAddr(s)) {
			t.Errorf("%s should be reserved", s)
		}
	}

	routable := []string{
		"2600:1f18::1",
		"2606:4700:4700::1111",
		"2001:30::1",      // just above 2001:20::/28
		"2001:db9::1",     // just above 2001:db8::/32
		"4000::1",         // just above 3fff::/20 block
		"fec0::1",         // just above fe80::/10
		"2003::1",         // just above 2002::/16
	}
	for _, s := range routable {
		if isReserved(netip.MustParseAddr(s)) {
			t.Errorf("%s should be routable", s)
		}
	}
}
