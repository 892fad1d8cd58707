package webhook

import "testing"

func TestAllowList(t *testing.T) {
	al, err := ParseAllowList([]string{"10.0.0.0/24", "192.168.1.1", " 149.154.160.0/20 "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.5", true},
		{"10.0.0.255", true},
		{"10.0.1.5", false},
		{"192.168.1.1", true},
		{"192.168.1.2", false},
		{"149.154.167.220", true},
		{"149.154.176.1", false},
		{"::1", false},
		{"::ffff:10.0.0.5", false},
		{"example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := al.Allowed(tt.ip); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestAllowListEmptyAllowsAll(t *testing.T) {
	for _, entries := range [][]string{nil, {}, {"", "  "}} {
		al, err := ParseAllowList(entries)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !al.Empty() {
			t.Errorf("expected empty list for %q", entries)
		}
		if !al.Allowed("8.8.8.8") || !al.Allowed("not-an-ip") {
			t.Error("empty allow-list should allow everything")
		}
	}
}

func TestAllowListPrefixBounds(t *testing.T) {
	al, err := ParseAllowList([]string{"0.0.0.0/0"})
	if err != nil {
		t.Fatalf("parse /0: %v", err)
	}
	if !al.Allowed("203.0.113.9") {
		t.Error("/0 should match any IPv4 address")
	}

	al, err = ParseAllowList([]string{"203.0.113.9/32"})
	if err != nil {
		t.Fatalf("parse /32: %v", err)
	}
	if !al.Allowed("203.0.113.9") || al.Allowed("203.0.113.10") {
		t.Error("/32 should match exactly one address")
	}
}

func TestAllowListHostBitsIgnored(t *testing.T) {
	al, err := ParseAllowList([]string{"10.0.0.77/24"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !al.Allowed("10.0.0.5") {
		t.Error("network host bits should be masked before comparison")
	}
}

func TestParseAllowListRejectsMalformed(t *testing.T) {
	for _, entry := range []string{"10.0.0.0/33", "10.0.0.0/-1", "10.0.0.0/abc", "10.0.0/24", "fe80::/64", "/24"} {
		if _, err := ParseAllowList([]string{entry}); err == nil {
			t.Errorf("ParseAllowList(%q) should fail", entry)
		}
	}
}

func TestAllowListMatch(t *testing.T) {
	al, _ := ParseAllowList([]string{"192.168.1.1", "10.0.0.0/8"})
	entry, ok := al.Match("10.20.30.40")
	if !ok || entry != "10.0.0.0/8" {
		t.Errorf("Match = %q, %v", entry, ok)
	}
	if al.Len() != 2 {
		t.Errorf("Len = %d", al.Len())
	}
}
