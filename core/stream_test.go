package icon

import "testing"

func newTestStream(t *testing.T, source StreamSource, filters []EventFilter) *Stream {
	t.Helper()
	s, err := newStream(nil, source, filters, StreamOptions{FromHeight: 0})
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	return s
}

// TestBlockStreamMergeScenario mirrors spec.md §8 scenario 6: two filters,
// merged tx->log index map, height 1100.
func TestBlockStreamMergeScenario(t *testing.T) {
	s := newTestStream(t, SourceBlock, []EventFilter{
		{Event: "Transfer(Address,Address,int)"},
		{Event: "Approval(Address,Address,int)"},
	})

	raw := map[string]any{
		"height":  "0x44c",
		"hash":    "0xabc",
		"indexes": []any{[]any{"0x1"}, []any{"0x2", "0x3"}},
		"events": []any{
			[]any{[]any{"0x1", "0x2"}},
			[]any{[]any{"0x1", "0x2"}, []any{"0x4"}},
		},
	}
	if err := s.Put([]map[string]any{raw}); err != nil {
		t.Fatalf("put: %v", err)
	}

	events := s.Pop(10)
	if len(events) != 1 {
		t.Fatalf("expected exactly one buffered event, got %d", len(events))
	}
	ev := events[0]
	if ev.Height != 1100 {
		t.Fatalf("height = %d, want 1100", ev.Height)
	}
	want := map[uint64][]uint64{1: {1, 2}, 2: {1, 2}, 3: {4}}
	for tx, logs := range want {
		got, ok := ev.Events[tx]
		if !ok || len(got) != len(logs) {
			t.Fatalf("events[%d] = %v, want %v", tx, got, logs)
		}
		for i := range logs {
			if got[i] != logs[i] {
				t.Fatalf("events[%d][%d] = %d, want %d", tx, i, got[i], logs[i])
			}
		}
	}
}

// TestTailDeduplication mirrors spec.md §8 "Tail de-duplication".
func TestTailDeduplication(t *testing.T) {
	s := newTestStream(t, SourceEvent, []EventFilter{{Event: "Transfer(Address,Address,int)"}})

	raw := map[string]any{
		"height": "0x1",
		"hash":   "0xabc",
		"index":  "0x0",
		"events": []any{"0x0"},
	}

	if err := s.Put([]map[string]any{raw, raw}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := len(s.buffer); got != 1 {
		t.Fatalf("put([e,e]) left %d events, want 1", got)
	}

	if err := s.Put([]map[string]any{raw}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put([]map[string]any{raw}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := len(s.buffer); got != 1 {
		t.Fatalf("put(e); put(e) left %d events, want 1", got)
	}
}

func TestStreamMonotonicity(t *testing.T) {
	s := newTestStream(t, SourceEvent, []EventFilter{{Event: "Transfer(Address,Address,int)"}})
	for i, h := range []string{"0x1", "0x2", "0x3"} {
		raw := map[string]any{"height": h, "hash": "0xabc", "index": "0x0", "events": []any{"0x0"}}
		if err := s.Put([]map[string]any{raw}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	before := s.Height()
	s.Pop(1)
	if s.Height() <= before {
		t.Fatalf("height did not advance after pop: before=%d after=%d", before, s.Height())
	}
	afterFirst := s.Height()
	s.Pop(0)
	if s.Height() != afterFirst {
		t.Fatalf("popping zero events must not change height: before=%d after=%d", afterFirst, s.Height())
	}
}

func TestBackPressure(t *testing.T) {
	s := newTestStream(t, SourceEvent, []EventFilter{{Event: "Transfer(Address,Address,int)"}})
	s.maxBufferSize = 2

	if s.CheckSpaceLeft() != 1 {
		t.Fatalf("check_space_left on an empty buffer = %v, want 1", s.CheckSpaceLeft())
	}

	for i, h := range []string{"0x1", "0x2"} {
		raw := map[string]any{"height": h, "hash": "0xabc", "index": "0x0", "events": []any{"0x0"}}
		if err := s.Put([]map[string]any{raw}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	if !s.IsFull() {
		t.Fatalf("expected the stream to be full at capacity")
	}
	if got := s.CheckSpaceLeft(); got != 0 {
		t.Fatalf("check_space_left at capacity = %v, want 0", got)
	}
}

func TestToURISchemeMapping(t *testing.T) {
	s := newTestStream(t, SourceBlock, nil)
	s.identity.node = "https://ctz.solidwallet.io"
	if uri := s.ToURI(); uri != "wss://ctz.solidwallet.io/api/v3/icon_dex/block" {
		t.Fatalf("to_uri = %s", uri)
	}
	s.identity.node = "http://localhost:9000"
	if uri := s.ToURI(); uri != "ws://localhost:9000/api/v3/icon_dex/block" {
		t.Fatalf("to_uri = %s", uri)
	}
}

func TestEncodeEventSourceInlinesFilter(t *testing.T) {
	s := newTestStream(t, SourceEvent, []EventFilter{{Event: "Transfer(Address,Address,int)", Addr: "cxb0776ee37f5b45bfaea8cff1d8232fbb6122ec32"}})
	wire, err := s.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if wire["event"] != "Transfer(Address,Address,int)" {
		t.Fatalf("encode did not inline the filter's event field: %v", wire)
	}
	if _, ok := wire["eventFilters"]; ok {
		t.Fatalf("event-source encode must not carry eventFilters")
	}
}
