package icon

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Codec is the (load, dump) pair every scalar type in spec.md §3/§4.1
// implements: Load converts a wire value into its host representation,
// Dump does the inverse. Both return a neutral error; the schema layer
// (schema_state.go) is responsible for attaching the field path and the
// invalid_params wrapping described in spec.md §4.1/§7.
type Codec interface {
	Load(wire any) (any, error)
	Dump(host any) (any, error)
}

var errInvalid = fmt.Errorf("invalid")

// Scalars is the process-wide registry of scalar codecs keyed by tag, used
// by the schema engine's transform pass (schema_state.go) to resolve a
// scalar type tag and by the event-header type list in the websocket
// subscription filter encoder (stream_decode.go, spec.md §6.3).
var Scalars = map[string]Codec{
	"int":         integerCodec{},
	"pos_int":     rangedIntegerCodec{allowNeg: false, allowZero: false},
	"non_neg_int": rangedIntegerCodec{allowNeg: false, allowZero: true},
	"neg_int":     rangedIntegerCodec{allowNeg: true, allowZero: false, negOnly: true},
	"non_pos_int": rangedIntegerCodec{allowNeg: true, allowZero: true, negOnly: true},
	"loop":        rangedIntegerCodec{allowNeg: false, allowZero: true},
	"bool":        booleanCodec{},
	"address":     addressCodec{allowEOA: true, allowSCORE: true},
	"eoa":         addressCodec{allowEOA: true},
	"score":       addressCodec{allowSCORE: true},
	"hash":        hashCodec{},
	"signature":   signatureCodec{},
	"bytes":       binaryDataCodec{},
	"str":         stringCodec{},
	"timestamp":   timestampCodec{},
	"event_log":   eventLogCodec{},
}

// ---------------------------------------------------------------------
// Integer / Loop
// ---------------------------------------------------------------------

type integerCodec struct{}

func parseIntegerHost(wire any) (*big.Int, error) {
	switch v := wire.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, errInvalid
		}
		neg := false
		if strings.HasPrefix(s, "-") {
			neg = true
			s = s[1:]
		}
		var n *big.Int
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			hx := s[2:]
			if hx == "" {
				return nil, errInvalid
			}
			var ok bool
			n, ok = new(big.Int).SetString(hx, 16)
			if !ok {
				return nil, errInvalid
			}
		} else {
			var ok bool
			n, ok = new(big.Int).SetString(s, 10)
			if !ok {
				return nil, errInvalid
			}
		}
		if neg {
			n.Neg(n)
		}
		return n, nil
	default:
		return nil, errInvalid
	}
}

func dumpInteger(n *big.Int) string {
	if n.Sign() == 0 {
		return "0x0"
	}
	mag := new(big.Int).Abs(n)
	s := "0x" + mag.Text(16)
	if n.Sign() < 0 {
		s = "-" + s
	}
	return s
}

func (integerCodec) Load(wire any) (any, error) { return parseIntegerHost(wire) }
func (integerCodec) Dump(host any) (any, error) {
	n, err := toBigInt(host)
	if err != nil {
		return nil, err
	}
	return dumpInteger(n), nil
}

func toBigInt(host any) (*big.Int, error) {
	switch v := host.(type) {
	case *big.Int:
		return v, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, errInvalid
	}
}

// rangedIntegerCodec implements PosInteger/NegInteger/NonNegInteger/
// NonPosInteger/Loop — Integer plus a sign constraint (spec.md §4.1).
type rangedIntegerCodec struct {
	allowNeg  bool
	allowZero bool
	negOnly   bool
}

func (c rangedIntegerCodec) check(n *big.Int) error {
	switch {
	case n.Sign() == 0:
		if !c.allowZero {
			return errInvalid
		}
	case n.Sign() < 0:
		if !c.allowNeg {
			return errInvalid
		}
	case n.Sign() > 0:
		if c.negOnly {
			return errInvalid
		}
	}
	return nil
}

func (c rangedIntegerCodec) Load(wire any) (any, error) {
	n, err := parseIntegerHost(wire)
	if err != nil {
		return nil, err
	}
	if err := c.check(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (c rangedIntegerCodec) Dump(host any) (any, error) {
	n, err := toBigInt(host)
	if err != nil {
		return nil, err
	}
	if err := c.check(n); err != nil {
		return nil, err
	}
	return dumpInteger(n), nil
}

// ---------------------------------------------------------------------
// Boolean
// ---------------------------------------------------------------------

type booleanCodec struct{}

func (booleanCodec) Load(wire any) (any, error) {
	switch v := wire.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "0x0":
			return false, nil
		case "0x1":
			return true, nil
		}
		return nil, errInvalid
	case int:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, errInvalid
	default:
		return nil, errInvalid
	}
}

func (booleanCodec) Dump(host any) (any, error) {
	b, ok := host.(bool)
	if !ok {
		return nil, errInvalid
	}
	if b {
		return "0x1", nil
	}
	return "0x0", nil
}

// ---------------------------------------------------------------------
// Address / EOA / SCORE
// ---------------------------------------------------------------------

type addressCodec struct {
	allowEOA   bool
	allowSCORE bool
}

func validAddress(s string, c addressCodec) bool {
	if len(s) != 42 {
		return false
	}
	prefix := s[:2]
	switch prefix {
	case "hx":
		if !c.allowEOA {
			return false
		}
	case "cx":
		if !c.allowSCORE {
			return false
		}
	default:
		return false
	}
	return isLowerHex(s[2:])
}

func isLowerHex(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			continue
		}
		return false
	}
	return true
}

func (c addressCodec) Load(wire any) (any, error) {
	s, ok := wire.(string)
	if !ok || !validAddress(s, c) {
		return nil, errInvalid
	}
	return s, nil
}

func (c addressCodec) Dump(host any) (any, error) {
	s, ok := host.(string)
	if !ok || !validAddress(s, c) {
		return nil, errInvalid
	}
	return s, nil
}

// ZeroSCOREAddress is the all-zero SCORE address used as the `to` field
// of an install_score transaction (spec.md §4.4 method table).
const ZeroSCOREAddress = "cx0000000000000000000000000000000000000000"

// ---------------------------------------------------------------------
// Hash
// ---------------------------------------------------------------------

type hashCodec struct{}

func validHash(s string) bool {
	return len(s) == 66 && strings.HasPrefix(s, "0x") && isLowerHex(s[2:])
}

func (hashCodec) Load(wire any) (any, error) {
	s, ok := wire.(string)
	if !ok || !validHash(s) {
		return nil, errInvalid
	}
	return s, nil
}

func (hashCodec) Dump(host any) (any, error) {
	s, ok := host.(string)
	if !ok || !validHash(s) {
		return nil, errInvalid
	}
	return s, nil
}

// ---------------------------------------------------------------------
// Signature
// ---------------------------------------------------------------------

type signatureCodec struct{}

func (signatureCodec) Load(wire any) (any, error) {
	s, ok := wire.(string)
	if !ok {
		return nil, errInvalid
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != 65 {
		return nil, errInvalid
	}
	return b, nil
}

func (signatureCodec) Dump(host any) (any, error) {
	b, ok := host.([]byte)
	if !ok || len(b) != 65 {
		return nil, errInvalid
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ---------------------------------------------------------------------
// BinaryData
// ---------------------------------------------------------------------

type binaryDataCodec struct{}

// Load accepts wire-shaped 0x-hex (the normal case, e.g. decoding a node
// response) or, leniently, raw []byte / plain UTF-8 text supplied directly
// by a caller building a request (spec.md §8 scenario 4: send_message's
// text argument is never hex-encoded by the caller).
func (binaryDataCodec) Load(wire any) (any, error) {
	switch v := wire.(type) {
	case []byte:
		return v, nil
	case string:
		if strings.HasPrefix(v, "0x") {
			hx := v[2:]
			if len(hx)%2 != 0 {
				return nil, errInvalid
			}
			if b, err := hex.DecodeString(hx); err == nil {
				return b, nil
			}
		}
		if !utf8.ValidString(v) {
			return nil, errInvalid
		}
		return []byte(v), nil
	default:
		return nil, errInvalid
	}
}

// Dump hex-encodes raw bytes. When host is a plain text string (not
// already wire-shaped 0x-hex), it is treated as UTF-8 bytes and
// hex-encoded, per spec.md §4.1 — this is how send_message's `data`
// field is produced (spec.md §8 scenario 4).
func (binaryDataCodec) Dump(host any) (any, error) {
	switch v := host.(type) {
	case []byte:
		return "0x" + hex.EncodeToString(v), nil
	case string:
		if strings.HasPrefix(v, "0x") && len(v[2:])%2 == 0 {
			if _, err := hex.DecodeString(v[2:]); err == nil {
				return v, nil
			}
		}
		if !utf8.ValidString(v) {
			return nil, errInvalid
		}
		return "0x" + hex.EncodeToString([]byte(v)), nil
	default:
		return nil, errInvalid
	}
}

// ---------------------------------------------------------------------
// String
// ---------------------------------------------------------------------

type stringCodec struct{}

func (stringCodec) Load(wire any) (any, error) {
	s, ok := wire.(string)
	if !ok {
		return nil, errInvalid
	}
	return s, nil
}

func (stringCodec) Dump(host any) (any, error) {
	s, ok := host.(string)
	if !ok {
		return nil, errInvalid
	}
	return s, nil
}

// ---------------------------------------------------------------------
// Timestamp
// ---------------------------------------------------------------------

type timestampCodec struct{}

func (timestampCodec) Load(wire any) (any, error) {
	n, err := parseIntegerHost(wire)
	if err != nil {
		return nil, errInvalid
	}
	if !n.IsInt64() {
		return nil, errInvalid
	}
	micros := n.Int64()
	return time.UnixMicro(micros).UTC(), nil
}

// Dump always emits 0x-hex microseconds. spec.md Open Question (b) notes
// the source's fixtures are inconsistent (plain int at top level, hex when
// nested); this implementation dumps uniformly as 0x-hex and does not
// replicate that inconsistency.
func (timestampCodec) Dump(host any) (any, error) {
	t, ok := host.(time.Time)
	if !ok {
		return nil, errInvalid
	}
	micros := t.UnixMicro()
	return dumpInteger(big.NewInt(micros)), nil
}

// ---------------------------------------------------------------------
// EventLog
// ---------------------------------------------------------------------

// EventLog is the host representation of an ICON event log entry
// (spec.md §3 scalar table).
type EventLog struct {
	ScoreAddress string
	Header       string
	Indexed      []string
	Data         []string
}

type eventLogCodec struct{}

func (eventLogCodec) Load(wire any) (any, error) {
	m, ok := wire.(map[string]any)
	if !ok {
		return nil, errInvalid
	}
	scoreAddr, _ := m["scoreAddress"].(string)
	indexedRaw, _ := m["indexed"].([]any)
	dataRaw, _ := m["data"].([]any)
	if len(indexedRaw) == 0 {
		return nil, errInvalid
	}
	header, ok := indexedRaw[0].(string)
	if !ok {
		return nil, errInvalid
	}
	indexed := make([]string, 0, len(indexedRaw)-1)
	for _, v := range indexedRaw[1:] {
		s, ok := v.(string)
		if !ok {
			return nil, errInvalid
		}
		indexed = append(indexed, s)
	}
	data := make([]string, 0, len(dataRaw))
	for _, v := range dataRaw {
		s, ok := v.(string)
		if !ok {
			return nil, errInvalid
		}
		data = append(data, s)
	}
	return EventLog{ScoreAddress: scoreAddr, Header: header, Indexed: indexed, Data: data}, nil
}

func (eventLogCodec) Dump(host any) (any, error) {
	ev, ok := host.(EventLog)
	if !ok {
		return nil, errInvalid
	}
	indexed := make([]any, 0, len(ev.Indexed)+1)
	indexed = append(indexed, ev.Header)
	for _, s := range ev.Indexed {
		indexed = append(indexed, s)
	}
	data := make([]any, 0, len(ev.Data))
	for _, s := range ev.Data {
		data = append(data, s)
	}
	return map[string]any{
		"scoreAddress": ev.ScoreAddress,
		"indexed":      indexed,
		"data":         data,
	}, nil
}

// hexToUint64 parses a spec-shaped hex/decimal numeric string into a
// uint64, used by the stream decoder (stream_decode.go) for indexes that
// are known never to be negative or oversized.
func hexToUint64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
