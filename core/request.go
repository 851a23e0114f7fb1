package icon

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

var requestIDCounter int64

// nextRequestID returns a process-wide monotonic JSON-RPC request id
// (spec.md §3 "Request": "id: monotonic integer").
func nextRequestID() int64 {
	return atomic.AddInt64(&requestIDCounter, 1)
}

// RequestOptions is the Request.options bag from spec.md §3.
type RequestOptions struct {
	URL      string
	Schema   *CompiledSchema
	Identity *Identity
	Timeout  int // milliseconds; >0 selects the *AndWait method variant
}

// Request is a JSON-RPC envelope {id, method, params, options}, signable
// and verifiable (spec.md §3). Params are already wire-shaped (the
// schema's dump pass has already run by the time a Request exists) so
// that the envelope can be serialized directly for the HTTP transport.
type Request struct {
	ID      int64
	Method  string
	Params  map[string]any
	Options RequestOptions
}

// NewRequest builds a Request, enforcing the timeout/AndWait invariant
// from spec.md §3: "if timeout>0, method suffix is AndWait; otherwise it
// is the base method."
func NewRequest(baseMethod string, params map[string]any, opts RequestOptions) *Request {
	method := baseMethod
	if opts.Timeout > 0 && !strings.HasSuffix(method, "AndWait") {
		method += "AndWait"
	}
	if params == nil {
		params = map[string]any{}
	}
	return &Request{ID: nextRequestID(), Method: method, Params: params, Options: opts}
}

// signingMessagePrefix is constant regardless of the actual *AndWait
// method name — only the base send-transaction semantics are signed
// (spec.md §6.2).
const signingMessagePrefix = "icx_sendTransaction"

var escapedChars = map[rune]bool{'\\': true, '.': true, '{': true, '}': true, '[': true, ']': true}

func escapeSigningString(s string) string {
	var b strings.Builder
	for _, r := range s {
		if escapedChars[r] {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// canonicalizeValue renders one wire value per the grammar in spec.md
// §6.2 (`val := string | "{" pairs "}" | "[" vals "]"`).
func canonicalizeValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return escapeSigningString(val), nil
	case map[string]any:
		return canonicalizePairs(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, el := range val {
			s, err := canonicalizeValue(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "[" + strings.Join(parts, ".") + "]", nil
	default:
		return "", fmt.Errorf("icon: sign: value of type %T is not wire-shaped", v)
	}
}

func canonicalizePairs(m map[string]any) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vs, err := canonicalizeValue(m[k])
		if err != nil {
			return "", err
		}
		parts = append(parts, escapeSigningString(k)+"."+vs)
	}
	return "{" + strings.Join(parts, ".") + "}", nil
}

// canonicalMessage builds `icx_sendTransaction.<k1>.<v1>....` per spec.md
// §4.4/§6.2. Do NOT reuse a generic JSON canonicalizer for this — the
// grammar's escaping and bracket conventions are ICON-specific.
func canonicalMessage(params map[string]any) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, signingMessagePrefix)
	for _, k := range keys {
		vs, err := canonicalizeValue(params[k])
		if err != nil {
			return "", err
		}
		parts = append(parts, escapeSigningString(k), vs)
	}
	return strings.Join(parts, "."), nil
}

func signingDigest(params map[string]any) ([]byte, error) {
	msg, err := canonicalMessage(params)
	if err != nil {
		return nil, err
	}
	h := sha3.Sum256([]byte(msg))
	return h[:], nil
}

// Sign implements spec.md §4.4 "Signing": canonicalize params, SHA3-256
// the message, produce a 65-byte recoverable secp256k1 signature, and
// insert its base64 form as params.signature.
func Sign(req *Request) error {
	id := req.Options.Identity
	if id == nil || !id.CanSign() {
		return NewInvalidParamsError("identity must have a wallet")
	}
	digest, err := signingDigest(req.Params)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	sig, err := id.Sign(digest)
	if err != nil {
		return err
	}
	req.Params["signature"] = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// Verify recomputes the digest from the current params (excluding
// signature), recovers the public key from the signature, and asserts
// the derived address equals params.from (spec.md §4.4 "verify").
func Verify(req *Request) (bool, error) {
	sigB64, ok := req.Params["signature"].(string)
	if !ok {
		return false, NewInvalidParamsError("params.signature is required")
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != 65 {
		return false, NewInvalidParamsError("params.signature is invalid")
	}

	digest, err := signingDigest(req.Params)
	if err != nil {
		return false, NewInvalidParamsError(err.Error())
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return false, nil
	}
	addr := deriveEOAAddress(pub)

	from, _ := req.Params["from"].(string)
	return addr == from, nil
}
