package icon

import "math/big"

// readRequest implements the read-only half of the method library
// (spec.md §4.4): validate+dump params through a schema, build a Request
// with no signing identity required.
func readRequest(identity *Identity, method string, schema Type, input map[string]any) (*Request, error) {
	compiled, err := Generate(schema)
	if err != nil {
		return nil, err
	}
	host, err := Load(compiled, input)
	if err != nil {
		return nil, err
	}
	wire, err := Dump(compiled, host)
	if err != nil {
		return nil, err
	}
	req := NewRequest(method, wire, RequestOptions{URL: transactionURL(identity), Schema: compiled, Identity: identity})
	return req, nil
}

// GetLastBlock corresponds to icx_getLastBlock (spec.md §4.4 method table).
func GetLastBlock(identity *Identity) (*Request, error) {
	return readRequest(identity, MethodGetLastBlock, Record(nil), map[string]any{})
}

// GetBlockByHeight corresponds to icx_getBlockByHeight.
func GetBlockByHeight(identity *Identity, height *big.Int) (*Request, error) {
	schema := Record(map[string]Field{"height": Req(Scalar("int"))}, "height")
	return readRequest(identity, MethodGetBlockByHeight, schema, map[string]any{"height": height})
}

// GetBlockByHash corresponds to icx_getBlockByHash.
func GetBlockByHash(identity *Identity, hash string) (*Request, error) {
	schema := Record(map[string]Field{"hash": Req(Scalar("hash"))}, "hash")
	return readRequest(identity, MethodGetBlockByHash, schema, map[string]any{"hash": hash})
}

// GetBalance corresponds to icx_getBalance. An empty address defaults to
// the identity's own address (spec.md §4.4).
func GetBalance(identity *Identity, address string) (*Request, error) {
	if address == "" {
		addr, ok := identity.Address()
		if !ok {
			return nil, NewInvalidParamsError("Invalid identity")
		}
		address = addr
	}
	schema := Record(map[string]Field{"address": Req(Scalar("address"))}, "address")
	return readRequest(identity, MethodGetBalance, schema, map[string]any{"address": address})
}

// GetScoreAPI corresponds to icx_getScoreApi; addr must be a cx… SCORE
// address.
func GetScoreAPI(identity *Identity, addr string) (*Request, error) {
	schema := Record(map[string]Field{"address": Req(Scalar("score"))}, "address")
	return readRequest(identity, MethodGetScoreAPI, schema, map[string]any{"address": addr})
}

// GetTotalSupply corresponds to icx_getTotalSupply.
func GetTotalSupply(identity *Identity) (*Request, error) {
	return readRequest(identity, MethodGetTotalSupply, Record(nil), map[string]any{})
}

// GetTransactionResult corresponds to icx_getTransactionResult, or
// icx_waitTransactionResult when timeout > 0 (spec.md §4.4). The wait
// method keeps its own name: NewRequest's AndWait suffix is not applied.
func GetTransactionResult(identity *Identity, txHash string, timeout int) (*Request, error) {
	schema := Record(map[string]Field{"txHash": Req(Scalar("hash"))}, "txHash")
	compiled, err := Generate(schema)
	if err != nil {
		return nil, err
	}
	host, err := Load(compiled, map[string]any{"txHash": txHash})
	if err != nil {
		return nil, err
	}
	wire, err := Dump(compiled, host)
	if err != nil {
		return nil, err
	}
	method := MethodGetTransactionResult
	if timeout > 0 {
		method = MethodWaitTransactionResult
	}
	req := NewRequest(method, wire, RequestOptions{URL: transactionURL(identity), Schema: compiled, Identity: identity, Timeout: timeout})
	req.Method = method
	return req, nil
}

// GetTransactionByHash corresponds to icx_getTransactionByHash.
func GetTransactionByHash(identity *Identity, txHash string) (*Request, error) {
	schema := Record(map[string]Field{"txHash": Req(Scalar("hash"))}, "txHash")
	return readRequest(identity, MethodGetTransactionByHash, schema, map[string]any{"txHash": txHash})
}

// GetScoreStatus corresponds to icx_getScoreStatus — a supplemented
// read-only method (SPEC_FULL.md §8) validated the same way as
// GetScoreAPI.
func GetScoreStatus(identity *Identity, addr string) (*Request, error) {
	schema := Record(map[string]Field{"address": Req(Scalar("score"))}, "address")
	return readRequest(identity, MethodGetScoreStatus, schema, map[string]any{"address": addr})
}

// Call corresponds to icx_call, a read-only SCORE method invocation.
// paramsSchema validates the inner `data.params` shape when supplied;
// nil means "any string-valued map" (the `$variable` wildcard).
func Call(identity *Identity, to, method string, params map[string]any, paramsSchema *Type) (*Request, error) {
	dataFields := map[string]Field{
		"method": Req(Scalar("str")),
	}
	order := []string{"method"}
	if params != nil {
		var pt Type
		if paramsSchema != nil {
			pt = *paramsSchema
		} else {
			pt = Record(map[string]Field{Variable: Opt(Scalar("str"))})
		}
		dataFields["params"] = Opt(pt)
		order = append(order, "params")
	}
	schema := Record(map[string]Field{
		"to":   Req(Scalar("score")),
		"data": Req(Record(dataFields, order...)),
	}, "to", "data")

	input := map[string]any{
		"to":   to,
		"data": map[string]any{"method": method},
	}
	if params != nil {
		input["data"].(map[string]any)["params"] = params
	}
	return readRequest(identity, MethodCall, schema, input)
}
