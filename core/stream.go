package icon

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// StreamSource selects the websocket channel a Stream subscribes to
// (spec.md §4.5, §6.3): `block` carries one notification per matching
// block across every configured filter, `event` carries one notification
// per matching event log for a single inlined filter.
type StreamSource string

const (
	SourceBlock StreamSource = "block"
	SourceEvent StreamSource = "event"
)

// StreamKind records whether a Stream started from the chain's current
// height (`latest`) or a caller-supplied height (`past`), per spec.md §3
// "Stream".
type StreamKind string

const (
	KindPast   StreamKind = "past"
	KindLatest StreamKind = "latest"
)

// EventFilter is one subscription filter in host form, before wire
// encoding (spec.md §6.3). Event is the parenthesized signature
// ("Transfer(Address,Address,int)"); Addr restricts the filter to a
// single SCORE; Indexed/Data are host values dumped against the
// signature's type list, a nil entry meaning "match any".
type EventFilter struct {
	Event   string
	Addr    string
	Indexed []any
	Data    []any
}

// StreamEvent is one decoded notification buffered by a Stream (spec.md
// §4.5): Events maps a transaction index to the log indexes within it
// that matched the stream's filters.
type StreamEvent struct {
	Height uint64
	Hash   string
	Events map[uint64][]uint64
}

// StreamOptions are the recognized options for new_block_stream /
// new_event_stream (spec.md §4.5).
type StreamOptions struct {
	Identity      *Identity // defaults to an anonymous mainnet identity
	FromHeight    any       // non-negative integer, "latest", or nil (defaults to 0)
	MaxBufferSize int       // default 1000

	// Transport and Context are only consulted when FromHeight == "latest":
	// the constructor issues get_last_block through them to learn the
	// current height (spec.md §4.5 item 2).
	Transport Transport
	Context   context.Context
}

const defaultMaxBufferSize = 1000

// Stream is a single-owner actor (spec.md §5): only the code holding the
// *Stream calls its mutating operations; the mutex below plays the role of
// the actor's serialized mailbox, matching the mutex-guarded style the
// teacher uses for its own long-lived Node type (core/network.go's
// peerLock/topicLock/subLock).
type Stream struct {
	mu sync.Mutex

	identity *Identity
	source   StreamSource
	filters  []EventFilter
	encoded  []map[string]any

	height uint64
	kind   StreamKind

	buffer        []StreamEvent
	maxBufferSize int
}

func resolveStreamIdentity(identity *Identity) (*Identity, error) {
	if identity != nil {
		return identity, nil
	}
	return NewIdentity(IdentityOptions{})
}

func resolveFromHeight(s *Stream, opts StreamOptions) error {
	switch v := opts.FromHeight.(type) {
	case nil:
		s.height = 0
		s.kind = KindPast
		return nil
	case string:
		if v == "latest" {
			return resolveLatestHeight(s, opts)
		}
		n, err := hexToUint64(v)
		if err != nil {
			return NewInvalidParamsError("from_height is invalid")
		}
		s.height = n
		s.kind = KindPast
		return nil
	default:
		n, err := parseIntegerHost(v)
		if err != nil || n.Sign() < 0 {
			return NewInvalidParamsError("from_height is invalid")
		}
		s.height = n.Uint64()
		s.kind = KindPast
		return nil
	}
}

// resolveLatestHeight implements spec.md §4.5 item 2: "If from_height is
// latest, issue a get_last_block through the external transport... on
// transport error the constructor fails with the transport's error."
func resolveLatestHeight(s *Stream, opts StreamOptions) error {
	if opts.Transport == nil {
		return NewInvalidParamsError("from_height \"latest\" requires a transport")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := GetLastBlock(s.identity)
	if err != nil {
		return err
	}
	raw, tErr := opts.Transport.Send(ctx, req)
	if tErr != nil {
		return tErr
	}
	var block struct {
		Height string `json:"height"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return NewSystemError("get_last_block: malformed result")
	}
	n, err := hexToUint64(block.Height)
	if err != nil {
		return NewSystemError("get_last_block: height is invalid")
	}
	s.height = n
	s.kind = KindLatest
	return nil
}

func newStream(identity *Identity, source StreamSource, filters []EventFilter, opts StreamOptions) (*Stream, error) {
	id, err := resolveStreamIdentity(identity)
	if err != nil {
		return nil, err
	}
	maxBuf := opts.MaxBufferSize
	if maxBuf <= 0 {
		maxBuf = defaultMaxBufferSize
	}

	s := &Stream{
		identity:      id,
		source:        source,
		filters:       filters,
		maxBufferSize: maxBuf,
	}

	if err := resolveFromHeight(s, opts); err != nil {
		return nil, err
	}

	encoded := make([]map[string]any, 0, len(filters))
	for _, f := range filters {
		wf, err := encodeFilter(f)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, wf)
	}
	s.encoded = encoded

	log.WithFields(log.Fields{"source": source, "height": s.height, "kind": s.kind}).Info("icon: stream created")
	return s, nil
}

// NewBlockStream corresponds to new_block_stream (spec.md §4.5): filters
// may be empty (an unfiltered block stream).
func NewBlockStream(filters []EventFilter, opts StreamOptions) (*Stream, error) {
	return newStream(opts.Identity, SourceBlock, filters, opts)
}

// NewEventStream corresponds to new_event_stream (spec.md §4.5): filter is
// optional; when supplied it is the single inlined subscription filter.
func NewEventStream(filter *EventFilter, opts StreamOptions) (*Stream, error) {
	var filters []EventFilter
	if filter != nil {
		filters = []EventFilter{*filter}
	}
	return newStream(opts.Identity, SourceEvent, filters, opts)
}

// ToURI corresponds to to_uri(stream) (spec.md §4.5): the node's http(s)
// scheme maps to ws(s), and the path names the stream's source.
func (s *Stream) ToURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.identity.Node()
	scheme := "ws"
	host := node
	if strings.HasPrefix(node, "https://") {
		scheme = "wss"
		host = strings.TrimPrefix(node, "https://")
	} else if strings.HasPrefix(node, "http://") {
		host = strings.TrimPrefix(node, "http://")
	}
	host = strings.TrimSuffix(host, "/")
	return scheme + "://" + host + "/api/v3/icon_dex/" + string(s.source)
}

// Encode corresponds to encode(stream) (spec.md §4.5, §6.3): the outbound
// subscription frame, height always hex-encoded.
func (s *Stream) Encode() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := map[string]any{"height": dumpInteger(new(big.Int).SetUint64(s.height))}
	switch s.source {
	case SourceBlock:
		if len(s.encoded) > 0 {
			wire["eventFilters"] = s.encoded
		}
	case SourceEvent:
		if len(s.encoded) > 0 {
			for k, v := range s.encoded[0] {
				wire[k] = v
			}
		}
	}
	return wire, nil
}

// Put corresponds to put(stream, events) (spec.md §4.5): decode each raw
// inbound map via the schema matching this stream's source, merge
// indexes, and append to the buffer unless it duplicates the tail.
func (s *Stream) Put(rawEvents []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, raw := range rawEvents {
		var (
			ev  StreamEvent
			err error
		)
		switch s.source {
		case SourceEvent:
			ev, err = decodeEventForm(raw)
		case SourceBlock:
			ev, err = decodeBlockForm(raw)
		}
		if err != nil {
			// Malformed inbound frame is a protocol violation, never
			// swallowed (spec.md §7 "Recovery policy").
			return err
		}

		if n := len(s.buffer); n > 0 && eventsEqual(s.buffer[n-1], ev) {
			log.WithFields(log.Fields{"height": ev.Height}).Debug("icon: stream: duplicate event suppressed")
			continue
		}
		s.buffer = append(s.buffer, ev)
	}
	return nil
}

// Pop corresponds to pop(stream, n) (spec.md §4.5): returns up to n
// buffered events in arrival order, advancing height to
// last_event.height + 1.
func (s *Stream) Pop(n int) []StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.buffer) {
		n = len(s.buffer)
	}
	if n <= 0 {
		return nil
	}
	out := append([]StreamEvent{}, s.buffer[:n]...)
	s.buffer = s.buffer[n:]
	s.height = out[len(out)-1].Height + 1
	return out
}

// IsFull corresponds to is_full?(stream) (spec.md §4.5).
func (s *Stream) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer) >= s.maxBufferSize
}

// CheckSpaceLeft corresponds to check_space_left(stream) (spec.md §4.5):
// a fraction in [0.0, 1.0], zero iff the buffer is at or over capacity,
// never negative (spec.md §8 "Back-pressure").
func (s *Stream) CheckSpaceLeft() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxBufferSize <= 0 {
		return 0
	}
	left := 1.0 - float64(len(s.buffer))/float64(s.maxBufferSize)
	if left < 0 {
		return 0
	}
	if left > 1 {
		return 1
	}
	return left
}

// Height returns the stream's current cursor height.
func (s *Stream) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// Kind reports whether the stream started from "latest" or a past height.
func (s *Stream) Kind() StreamKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}
