package icon

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Package-level method name constants, spec.md §4.4 method table.
const (
	MethodGetLastBlock         = "icx_getLastBlock"
	MethodGetBlockByHeight     = "icx_getBlockByHeight"
	MethodGetBlockByHash       = "icx_getBlockByHash"
	MethodGetBalance           = "icx_getBalance"
	MethodGetScoreAPI          = "icx_getScoreApi"
	MethodGetTotalSupply       = "icx_getTotalSupply"
	MethodGetTransactionResult = "icx_getTransactionResult"
	MethodWaitTransactionResult = "icx_waitTransactionResult"
	MethodGetTransactionByHash = "icx_getTransactionByHash"
	MethodCall                 = "icx_call"
	MethodSendTransaction      = "icx_sendTransaction"
	MethodGetScoreStatus       = "icx_getScoreStatus"
	MethodEstimateStep         = "debug_estimateStep"
)

// transactionURL returns {node}/api/v3 or {node}/api/v3d when debug is
// set, per spec.md §4.4 item 4 / §6.1.
func transactionURL(identity *Identity) string {
	if identity.Debug() {
		return identity.node + "/api/v3d"
	}
	return identity.node + "/api/v3"
}

func randomNonce() (*big.Int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, wrap(err, "icon: generate nonce")
	}
	// Ensure strictly positive, matching spec.md §4.4 "random positive
	// integer".
	return n.Add(n, big.NewInt(1)), nil
}

// txSchema builds the full envelope schema shared by every write-call
// constructor. extra adds method-specific fields (e.g. `to`, `value`,
// `dataType`/`data`) on top of the common version/from/nid/timestamp/
// nonce/stepLimit/signature set (spec.md §3 "Request", §4.4).
func txSchema(extra map[string]Field, order []string) Type {
	fields := map[string]Field{
		"version":   WithDefault(Scalar("int"), big.NewInt(3)),
		"from":      Req(Scalar("eoa")),
		"nid":       Req(Scalar("int")),
		"timestamp": Req(Scalar("timestamp")),
		"nonce":     Req(Scalar("int")),
		"stepLimit": Opt(Scalar("int")),
		"signature": Opt(Scalar("str")),
	}
	baseOrder := []string{"version", "from", "nid", "timestamp", "nonce", "stepLimit", "signature"}
	for k, f := range extra {
		fields[k] = f
	}
	return Record(fields, append(baseOrder, order...)...)
}

// buildTxRequest implements the common shape of spec.md §4.4 items 1-5
// for every signed/write constructor: load caller input through
// callerSchema, fill derived fields (from/nid/timestamp/nonce/version),
// dump the merged host map through the full envelope schema, and produce
// a Request.
func buildTxRequest(identity *Identity, callerSchema Type, callerInput map[string]any, extraFields map[string]Field, extraOrder []string, method string, timeout int) (*Request, error) {
	if identity == nil {
		return nil, NewInvalidParamsError("Invalid identity")
	}
	callerCompiled, err := Generate(callerSchema)
	if err != nil {
		return nil, err
	}
	hostParams, err := Load(callerCompiled, callerInput)
	if err != nil {
		return nil, err
	}

	addr, ok := identity.Address()
	if !ok {
		return nil, NewInvalidParamsError("Invalid identity")
	}
	hostParams["from"] = addr
	hostParams["nid"] = big.NewInt(identity.NetworkID())
	hostParams["timestamp"] = time.Now()
	nonce, err := randomNonce()
	if err != nil {
		return nil, err
	}
	hostParams["nonce"] = nonce
	if _, ok := hostParams["version"]; !ok {
		hostParams["version"] = big.NewInt(3)
	}

	full := txSchema(extraFields, extraOrder)
	fullCompiled, err := Generate(full)
	if err != nil {
		return nil, err
	}
	wireParams, err := Dump(fullCompiled, hostParams)
	if err != nil {
		return nil, err
	}

	req := NewRequest(method, wireParams, RequestOptions{
		URL:      transactionURL(identity),
		Schema:   fullCompiled,
		Identity: identity,
		Timeout:  timeout,
	})
	return req, nil
}

// callDataSchema is the {any,...} discriminated union backing the `data`
// field of a write call, keyed by `dataType` (supplement to spec.md §4.4:
// a complete client models ICON's actual dataType-discriminated
// transaction payload shapes).
func callDataSchema() Type {
	return Any(map[string]Type{
		"call": Record(map[string]Field{
			"method": Req(Scalar("str")),
			"params": Opt(Record(map[string]Field{Variable: Opt(Scalar("str"))})),
		}, "method", "params"),
		"deploy": Record(map[string]Field{
			"contentType": Req(Scalar("str")),
			"content":     Req(Scalar("bytes")),
			"params":      Opt(Record(map[string]Field{Variable: Opt(Scalar("str"))})),
		}, "contentType", "content", "params"),
		"message": Scalar("bytes"),
		"deposit": Record(map[string]Field{
			"action": Req(Enum("add", "withdraw")),
			"amount": Opt(Scalar("loop")),
			"id":     Opt(Scalar("hash")),
		}, "action", "amount", "id"),
	}, "dataType")
}

func fmtDottedError(path, reason string) error {
	return NewInvalidParamsError(fmt.Sprintf("%s %s", path, reason))
}
