package icon

import (
	"math/big"
	"testing"
	"time"
)

func TestIntegerRoundTrip(t *testing.T) {
	cases := []struct {
		host *big.Int
		wire string
	}{
		{big.NewInt(0), "0x0"},
		{big.NewInt(42), "0x2a"},
		{big.NewInt(-42), "-0x2a"},
	}
	for _, c := range cases {
		wire, err := Scalars["int"].Dump(c.host)
		if err != nil {
			t.Fatalf("dump(%v): %v", c.host, err)
		}
		if wire != c.wire {
			t.Fatalf("dump(%v) = %v, want %v", c.host, wire, c.wire)
		}
		host, err := Scalars["int"].Load(wire)
		if err != nil {
			t.Fatalf("load(%v): %v", wire, err)
		}
		if host.(*big.Int).Cmp(c.host) != 0 {
			t.Fatalf("load(dump(%v)) = %v, want round trip", c.host, host)
		}
	}
}

func TestLoopRejectsNegative(t *testing.T) {
	if _, err := Scalars["loop"].Load("-0x1"); err == nil {
		t.Fatalf("expected error loading a negative loop value")
	}
}

func TestBooleanCodec(t *testing.T) {
	for host, wire := range map[bool]string{true: "0x1", false: "0x0"} {
		got, err := Scalars["bool"].Dump(host)
		if err != nil || got != wire {
			t.Fatalf("dump(%v) = %v, %v; want %v", host, got, err, wire)
		}
		back, err := Scalars["bool"].Load(wire)
		if err != nil || back != host {
			t.Fatalf("load(%v) = %v, %v; want %v", wire, back, err, host)
		}
	}
}

func TestAddressCodec(t *testing.T) {
	eoa := "hxfd7e4560ba363f5aabd32caac7317feeee70ea57"
	score := "cxb0776ee37f5b45bfaea8cff1d8232fbb6122ec32"

	if _, err := Scalars["eoa"].Load(score); err == nil {
		t.Fatalf("expected eoa codec to reject a cx address")
	}
	if _, err := Scalars["score"].Load(eoa); err == nil {
		t.Fatalf("expected score codec to reject an hx address")
	}
	if _, err := Scalars["address"].Load(eoa); err != nil {
		t.Fatalf("address codec should accept hx: %v", err)
	}
	if _, err := Scalars["address"].Load(score); err != nil {
		t.Fatalf("address codec should accept cx: %v", err)
	}
}

func TestHashCodecRejectsWrongLength(t *testing.T) {
	if _, err := Scalars["hash"].Load("0x1234"); err == nil {
		t.Fatalf("expected a short hash to be rejected")
	}
}

func TestTimestampCodec(t *testing.T) {
	now := time.Now().UTC().Round(time.Microsecond)
	wire, err := Scalars["timestamp"].Dump(now)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	host, err := Scalars["timestamp"].Load(wire)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !host.(time.Time).Equal(now) {
		t.Fatalf("load(dump(now)) = %v, want %v", host, now)
	}
}

func TestBinaryDataRoundTrip(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef}
	wire, err := Scalars["bytes"].Dump(raw)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if wire != "0xdeadbeef" {
		t.Fatalf("dump = %v, want 0xdeadbeef", wire)
	}
	host, err := Scalars["bytes"].Load(wire)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(host.([]byte)) != string(raw) {
		t.Fatalf("load(dump(raw)) = %v, want %v", host, raw)
	}
}

func TestBinaryDataLoadAcceptsPlainText(t *testing.T) {
	host, err := Scalars["bytes"].Load("hello")
	if err != nil {
		t.Fatalf("load(plain text): %v", err)
	}
	if string(host.([]byte)) != "hello" {
		t.Fatalf("load(plain text) = %v, want hello", host)
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	ev := EventLog{
		ScoreAddress: "cxb0776ee37f5b45bfaea8cff1d8232fbb6122ec32",
		Header:       "Transfer(Address,Address,int)",
		Indexed:      []string{"hxfd7e4560ba363f5aabd32caac7317feeee70ea57"},
		Data:         []string{"0x2a"},
	}
	wire, err := Scalars["event_log"].Dump(ev)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	host, err := Scalars["event_log"].Load(wire)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := host.(EventLog)
	if got.Header != ev.Header || got.ScoreAddress != ev.ScoreAddress {
		t.Fatalf("load(dump(ev)) = %+v, want %+v", got, ev)
	}
}
