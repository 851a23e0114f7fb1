package icon

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

// networkPreset is one row of the network-id table in spec.md §4.3.
type networkPreset struct {
	tag     string
	id      int64
	nodeURL string
}

var networkPresets = []networkPreset{
	{"mainnet", 0x1, "https://ctz.solidwallet.io"},
	{"lisbon", 0x2, "https://lisbon.net.solidwallet.io"},
	{"berlin", 0x7, "https://berlin.net.solidwallet.io"},
	{"sejong", 0x53, "https://sejong.net.solidwallet.io"},
	{"btp", 0x42, "https://btp.net.solidwallet.io"},
}

func presetByTag(tag string) (networkPreset, bool) {
	for _, p := range networkPresets {
		if p.tag == tag {
			return p, true
		}
	}
	return networkPreset{}, false
}

func presetByID(id int64) (networkPreset, bool) {
	for _, p := range networkPresets {
		if p.id == id {
			return p, true
		}
	}
	return networkPreset{}, false
}

// resolveNetworkID accepts a tag ("mainnet"), a 0x-hex string, a decimal
// string, or a native int and returns the numeric network id.
func resolveNetworkID(v any) (int64, error) {
	switch val := v.(type) {
	case string:
		if p, ok := presetByTag(val); ok {
			return p.id, nil
		}
		n, err := parseIntegerHost(val)
		if err != nil {
			return 0, fmt.Errorf("icon: unknown network id %q", val)
		}
		return n.Int64(), nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case *big.Int:
		return val.Int64(), nil
	default:
		return 0, fmt.Errorf("icon: unsupported network_id type %T", v)
	}
}

// Identity is the immutable holder of {node URL, network id, optional
// private key, derived address, debug flag} described in spec.md §3/§4.3.
// Grounded on the teacher's HDWallet (core/wallet.go): key derivation and
// signing are kept as a small surface (PublicKey/Sign) separate from the
// higher-level Request assembly that calls them, the same split the
// teacher draws between HDWallet.PrivateKey and HDWallet.SignTx.
type Identity struct {
	node      string
	networkID int64
	debug     bool

	privateKey *ecdsa.PrivateKey
	address    string // "" if no private key
}

// IdentityOptions are the recognized options accepted by NewIdentity
// (spec.md §4.3).
type IdentityOptions struct {
	Node       string
	NetworkID  any // tag, hex string, decimal string, or int
	PrivateKey string // 32-byte hex, with or without 0x prefix
	Debug      bool
}

// NewIdentity builds an Identity. When a private key is supplied, its
// secp256k1 public key is computed and hashed (Keccak-256 of the
// uncompressed form, sans 0x04 prefix) to derive the 20-byte EOA address,
// matching spec.md §4.3 exactly ("Keccak vs SHA3" design note: address
// derivation is Keccak-256, never SHA3-256).
func NewIdentity(opts IdentityOptions) (*Identity, error) {
	netID := int64(0x1)
	if opts.NetworkID != nil {
		id, err := resolveNetworkID(opts.NetworkID)
		if err != nil {
			return nil, err
		}
		netID = id
	}

	node := opts.Node
	if node == "" {
		if p, ok := presetByID(netID); ok {
			node = p.nodeURL
		} else {
			return nil, fmt.Errorf("icon: no default node for network id 0x%x; node must be supplied", netID)
		}
	}

	id := &Identity{node: node, networkID: netID, debug: opts.Debug}

	if opts.PrivateKey != "" {
		keyHex := strings.TrimPrefix(opts.PrivateKey, "0x")
		b, err := hex.DecodeString(keyHex)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("icon: private_key must be 32-byte hex")
		}
		priv, err := crypto.ToECDSA(b)
		if err != nil {
			return nil, wrap(err, "icon: invalid private key")
		}
		id.privateKey = priv
		id.address = deriveEOAAddress(&priv.PublicKey)
		log.WithFields(log.Fields{"address": id.address}).Debug("icon: identity address derived")
	}

	return id, nil
}

// deriveEOAAddress implements spec.md §4.3's address derivation rule.
// go-ethereum's PubkeyToAddress already performs Keccak-256 over the
// uncompressed public key (sans the 0x04 prefix) and takes the last 20
// bytes; only the prefix differs (hx vs 0x).
func deriveEOAAddress(pub *ecdsa.PublicKey) string {
	addr := crypto.PubkeyToAddress(*pub)
	return "hx" + hex.EncodeToString(addr[:])
}

// Node returns the configured node base URL.
func (id *Identity) Node() string { return id.node }

// NetworkID returns the numeric network id.
func (id *Identity) NetworkID() int64 { return id.networkID }

// Debug reports whether requests built from this identity should target
// the `/api/v3d` debug endpoint (spec.md §4.4, §6.1).
func (id *Identity) Debug() bool { return id.debug }

// Address returns the derived EOA address and whether one exists.
func (id *Identity) Address() (string, bool) {
	if id.address == "" {
		return "", false
	}
	return id.address, true
}

// HasAddress reports whether this identity carries a derived address.
func (id *Identity) HasAddress() bool { return id.address != "" }

// CanSign reports whether this identity holds a private key.
func (id *Identity) CanSign() bool { return id.privateKey != nil }

// PublicKey returns the identity's public key, if any.
func (id *Identity) PublicKey() (*ecdsa.PublicKey, bool) {
	if id.privateKey == nil {
		return nil, false
	}
	return &id.privateKey.PublicKey, true
}

// Sign produces a 65-byte recoverable secp256k1 signature (R‖S‖V, V∈{0,1})
// over an arbitrary digest. Request.Sign (request.go) is the only
// intended caller; it is exposed here because signing is, per spec.md §5,
// "CPU-bound and may be called from any context" independent of any
// particular Request shape.
func (id *Identity) Sign(digest []byte) ([]byte, error) {
	if id.privateKey == nil {
		return nil, NewInvalidParamsError("identity must have a wallet")
	}
	sig, err := crypto.Sign(digest, id.privateKey)
	if err != nil {
		return nil, wrap(err, "icon: sign")
	}
	return sig, nil
}

// String implements fmt.Stringer, redacting the private key per spec.md
// §4.3 ("Inspecting an Identity MUST redact the private key to the first
// 4 hex characters followed by ellipsis").
func (id *Identity) String() string {
	keyPart := "none"
	if id.privateKey != nil {
		full := hex.EncodeToString(crypto.FromECDSA(id.privateKey))
		keyPart = full[:4] + "…"
	}
	addr := "none"
	if id.address != "" {
		addr = id.address
	}
	return fmt.Sprintf("Identity{node=%s, network_id=0x%x, address=%s, private_key=%s, debug=%v}",
		id.node, id.networkID, addr, keyPart, id.debug)
}
