package webhook

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// allowEntry is one parsed allow-list line: either a literal address compared
// as a string, or an IPv4 network.
type allowEntry struct {
	raw     string
	literal string
	network netip.Prefix
	isCIDR  bool
}

// AllowList matches client addresses against configured IPs and IPv4 CIDRs.
// The zero value allows everything.
type AllowList struct {
	entries []allowEntry
}

// ParseAllowList parses entries in order. Blank entries are ignored. A CIDR
// entry must be IPv4 with a prefix length in 0..32.
func ParseAllowList(entries []string) (*AllowList, error) {
	al := &AllowList{}
	for i, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			al.entries = append(al.entries, allowEntry{raw: raw, literal: raw})
			continue
		}
		prefix, err := parseIPv4CIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("allowed_ips[%d] %q: %w", i, raw, err)
		}
		al.entries = append(al.entries, allowEntry{raw: raw, network: prefix, isCIDR: true})
	}
	return al, nil
}

func parseIPv4CIDR(raw string) (netip.Prefix, error) {
	addrPart, bitsPart, _ := strings.Cut(raw, "/")
	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid network address: %w", err)
	}
	if !addr.Is4() {
		return netip.Prefix{}, fmt.Errorf("network address is not IPv4")
	}
	bits, err := strconv.Atoi(bitsPart)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid prefix length %q", bitsPart)
	}
	if bits < 0 || bits > 32 {
		return netip.Prefix{}, fmt.Errorf("prefix length %d outside 0..32", bits)
	}
	return addr.Prefix(bits)
}

// Empty reports whether no entries are configured.
func (a *AllowList) Empty() bool {
	return a == nil || len(a.entries) == 0
}

// Len returns the number of parsed entries.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Allowed reports whether ip matches at least one entry. An empty list allows
// every address. A non-IPv4 address never matches a CIDR entry.
func (a *AllowList) Allowed(ip string) bool {
	if a.Empty() {
		return true
	}
	_, ok := a.Match(ip)
	return ok
}

// Match returns the entry that allowed ip, for audit logging.
func (a *AllowList) Match(ip string) (string, bool) {
	if a.Empty() {
		return "", false
	}
	ip = strings.TrimSpace(ip)
	for _, e := range a.entries {
		if (!e.isCIDR && ip == e.literal) || (e.isCIDR && ipv4InPrefix(ip, e.network)) {
			return e.raw, true
		}
	}
	return "", false
}

func ipv4InPrefix(ip string, network netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return false
	}
	return network.Contains(addr)
}
