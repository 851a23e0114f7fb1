package icon

import "testing"

const testPrivateKey = "8ad9889bcee734a2605a6c4c50dd8acd28f54e62b828b2c8991aa46bd32976bf"

func TestIdentityAddressDerivation(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey, NetworkID: "mainnet"})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	addr, ok := id.Address()
	if !ok {
		t.Fatalf("expected a derived address")
	}
	want := "hxfd7e4560ba363f5aabd32caac7317feeee70ea57"
	if addr != want {
		t.Fatalf("address = %s, want %s", addr, want)
	}
	if id.NetworkID() != 0x1 {
		t.Fatalf("network id = 0x%x, want 0x1", id.NetworkID())
	}
}

func TestIdentityWithoutKeyCannotSign(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{NetworkID: "mainnet"})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	if id.CanSign() {
		t.Fatalf("identity without a private key should not be able to sign")
	}
	if _, ok := id.Address(); ok {
		t.Fatalf("identity without a private key should have no address")
	}
}

func TestIdentityStringRedactsPrivateKey(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	s := id.String()
	if !contains(s, "8ad9") {
		t.Fatalf("expected redacted key prefix 8ad9 in %q", s)
	}
	if contains(s, testPrivateKey) {
		t.Fatalf("full private key must never appear in String(): %q", s)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestResolveNetworkIDPresets(t *testing.T) {
	cases := map[string]int64{"mainnet": 0x1, "lisbon": 0x2, "berlin": 0x7, "sejong": 0x53, "btp": 0x42}
	for tag, want := range cases {
		got, err := resolveNetworkID(tag)
		if err != nil {
			t.Fatalf("resolve %s: %v", tag, err)
		}
		if got != want {
			t.Fatalf("resolve %s = 0x%x, want 0x%x", tag, got, want)
		}
	}
}
