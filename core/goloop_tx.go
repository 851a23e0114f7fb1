package icon

import "math/big"

// Transfer corresponds to icx_sendTransaction / icx_sendTransactionAndWait
// for a plain value transfer (spec.md §4.4 method table, §8 scenario 3).
func Transfer(identity *Identity, to string, value *big.Int, timeout int) (*Request, error) {
	callerSchema := Record(map[string]Field{
		"to":    Req(Scalar("address")),
		"value": Req(Scalar("loop")),
	}, "to", "value")
	extra := map[string]Field{
		"to":    Req(Scalar("address")),
		"value": Req(Scalar("loop")),
	}
	return buildTxRequest(identity, callerSchema,
		map[string]any{"to": to, "value": value},
		extra, []string{"to", "value"}, MethodSendTransaction, timeout)
}

// SendMessage corresponds to a write call whose `data` is UTF-8
// hex-encoded free text (spec.md §4.4, §8 scenario 4).
func SendMessage(identity *Identity, to, text string, timeout int) (*Request, error) {
	callerSchema := Record(map[string]Field{
		"to":   Req(Scalar("address")),
		"data": Req(Scalar("bytes")),
	}, "to", "data")
	extra := map[string]Field{
		"to":       Req(Scalar("address")),
		"dataType": WithDefault(Enum("call", "deploy", "message", "deposit"), "message"),
		"data":     Req(Scalar("bytes")),
	}
	return buildTxRequest(identity, callerSchema,
		map[string]any{"to": to, "data": text},
		extra, []string{"to", "dataType", "data"}, MethodSendTransaction, timeout)
}

// TransactionCall corresponds to a SCORE write-call (spec.md §4.4).
func TransactionCall(identity *Identity, to, method string, params map[string]any, paramsSchema *Type, timeout int) (*Request, error) {
	var pt Type
	if paramsSchema != nil {
		pt = *paramsSchema
	} else {
		pt = Record(map[string]Field{Variable: Opt(Scalar("str"))})
	}
	callerSchema := Record(map[string]Field{
		"to":     Req(Scalar("address")),
		"method": Req(Scalar("str")),
		"params": Opt(pt),
	}, "to", "method", "params")

	input := map[string]any{"to": to, "method": method}
	if params != nil {
		input["params"] = params
	}
	callerCompiled, err := Generate(callerSchema)
	if err != nil {
		return nil, err
	}
	callerHost, err := Load(callerCompiled, input)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"method": callerHost["method"]}
	if v, ok := callerHost["params"]; ok {
		data["params"] = v
	}

	extra := map[string]Field{
		"to":       Req(Scalar("address")),
		"dataType": WithDefault(Enum("call", "deploy", "message", "deposit"), "call"),
		"data":     Req(callDataSchema().AnyChoices["call"]),
	}
	return buildTxRequest(identity, Record(map[string]Field{
		"to":   Req(Scalar("address")),
		"data": Req(callDataSchema().AnyChoices["call"]),
	}, "to", "data"),
		map[string]any{"to": callerHost["to"], "data": data},
		extra, []string{"to", "dataType", "data"}, MethodSendTransaction, timeout)
}

// InstallScore corresponds to a contract-install write call; `to` is the
// zero SCORE address (spec.md §4.4).
func InstallScore(identity *Identity, content []byte, onInstallParams map[string]any, onInstallSchema *Type, timeout int) (*Request, error) {
	return deployScore(identity, ZeroSCOREAddress, content, onInstallParams, onInstallSchema, timeout)
}

// UpdateScore corresponds to a contract-update write call.
func UpdateScore(identity *Identity, to string, content []byte, onUpdateParams map[string]any, onUpdateSchema *Type, timeout int) (*Request, error) {
	return deployScore(identity, to, content, onUpdateParams, onUpdateSchema, timeout)
}

func deployScore(identity *Identity, to string, content []byte, params map[string]any, paramsSchema *Type, timeout int) (*Request, error) {
	var pt Type
	if paramsSchema != nil {
		pt = *paramsSchema
	} else {
		pt = Record(map[string]Field{Variable: Opt(Scalar("str"))})
	}
	deployFields := map[string]Field{
		"contentType": WithDefault(Scalar("str"), "application/zip"),
		"content":     Req(Scalar("bytes")),
		"params":      Opt(pt),
	}
	deployOrder := []string{"contentType", "content", "params"}

	callerSchema := Record(map[string]Field{
		"to":   Req(Scalar("score")),
		"data": Req(Record(deployFields, deployOrder...)),
	}, "to", "data")

	inputData := map[string]any{"content": content}
	if params != nil {
		inputData["params"] = params
	}
	input := map[string]any{"to": to, "data": inputData}

	callerCompiled, err := Generate(callerSchema)
	if err != nil {
		return nil, err
	}
	callerHost, err := Load(callerCompiled, input)
	if err != nil {
		return nil, err
	}

	extra := map[string]Field{
		"to":       Req(Scalar("score")),
		"dataType": WithDefault(Enum("call", "deploy", "message", "deposit"), "deploy"),
		"data":     Req(Record(deployFields, deployOrder...)),
	}
	return buildTxRequest(identity, callerSchema,
		map[string]any{"to": to, "data": callerHost["data"]},
		extra, []string{"to", "dataType", "data"}, MethodSendTransaction, timeout)
}

// DepositSharedFee corresponds to the deposit fee-sharing write call:
// data.action = "add" (spec.md §4.4 method table).
func DepositSharedFee(identity *Identity, to string, value *big.Int, timeout int) (*Request, error) {
	depositFields := map[string]Field{
		"action": Req(Enum("add", "withdraw")),
		"amount": Opt(Scalar("loop")),
		"id":     Opt(Scalar("hash")),
	}
	depositOrder := []string{"action", "amount", "id"}

	callerSchema := Record(map[string]Field{
		"to":   Req(Scalar("address")),
		"data": Req(Record(depositFields, depositOrder...)),
	}, "to", "data")

	extra := map[string]Field{
		"to":       Req(Scalar("address")),
		"dataType": WithDefault(Enum("call", "deploy", "message", "deposit"), "deposit"),
		"data":     Req(Record(depositFields, depositOrder...)),
	}
	return buildTxRequest(identity, callerSchema,
		map[string]any{"to": to, "data": map[string]any{"action": "add", "amount": value}},
		extra, []string{"to", "dataType", "data"}, MethodSendTransaction, timeout)
}

// WithdrawSharedFee corresponds to the deposit-withdraw write call:
// data.action = "withdraw"; the discriminator is on the shape of the
// single `value` argument — nil means "withdraw everything", a *big.Int
// means "withdraw this amount", a hash string means "withdraw this
// specific deposit" (spec.md §4.4: "discriminator on value shape").
func WithdrawSharedFee(identity *Identity, to string, value any, timeout int) (*Request, error) {
	depositFields := map[string]Field{
		"action": Req(Enum("add", "withdraw")),
		"amount": Opt(Scalar("loop")),
		"id":     Opt(Scalar("hash")),
	}
	depositOrder := []string{"action", "amount", "id"}

	data := map[string]any{"action": "withdraw"}
	switch v := value.(type) {
	case nil:
		// withdraw everything: neither amount nor id set.
	case *big.Int:
		data["amount"] = v
	case string:
		data["id"] = v
	default:
		return nil, NewInvalidParamsError("data.value is invalid")
	}

	callerSchema := Record(map[string]Field{
		"to":   Req(Scalar("address")),
		"data": Req(Record(depositFields, depositOrder...)),
	}, "to", "data")

	extra := map[string]Field{
		"to":       Req(Scalar("address")),
		"dataType": WithDefault(Enum("call", "deploy", "message", "deposit"), "deposit"),
		"data":     Req(Record(depositFields, depositOrder...)),
	}
	return buildTxRequest(identity, callerSchema,
		map[string]any{"to": to, "data": data},
		extra, []string{"to", "dataType", "data"}, MethodSendTransaction, timeout)
}

// SendTransactionOptions is the generic escape hatch from spec.md §4.4:
// callers supply the full envelope directly.
type SendTransactionOptions struct {
	To        string
	Value     *big.Int
	StepLimit *big.Int
	DataType  string
	Data      map[string]any
	Timeout   int
}

// SendTransaction is the generic send_transaction constructor.
func SendTransaction(identity *Identity, opts SendTransactionOptions) (*Request, error) {
	extra := map[string]Field{
		"to": Opt(Scalar("address")),
	}
	order := []string{"to"}
	host := map[string]any{}
	if opts.To != "" {
		host["to"] = opts.To
	}
	if opts.Value != nil {
		extra["value"] = Opt(Scalar("loop"))
		order = append(order, "value")
		host["value"] = opts.Value
	}
	if opts.StepLimit != nil {
		extra["stepLimit"] = Opt(Scalar("int"))
		host["stepLimit"] = opts.StepLimit
	}
	if opts.DataType != "" {
		dt := callDataSchema()
		extra["dataType"] = Req(Enum("call", "deploy", "message", "deposit"))
		extra["data"] = Req(dt.AnyChoices[opts.DataType])
		order = append(order, "dataType", "data")
		host["dataType"] = opts.DataType
		if opts.DataType == "message" {
			host["data"] = opts.Data["message"]
		} else {
			host["data"] = opts.Data
		}
	}

	return buildTxRequest(identity, Record(nil), map[string]any{}, mergeFields(extra, host), order, MethodSendTransaction, opts.Timeout)
}

// mergeFields is a small helper used only by SendTransaction: it folds
// pre-computed host values directly into buildTxRequest by attaching them
// as literal WithDefault fields, since the generic escape hatch bypasses
// per-field caller validation.
func mergeFields(extra map[string]Field, host map[string]any) map[string]Field {
	out := make(map[string]Field, len(extra))
	for k, f := range extra {
		if v, ok := host[k]; ok {
			f.Default = v
			f.Required = true
		}
		out[k] = f
	}
	return out
}

// EstimateStep corresponds to debug_estimateStep (SPEC_FULL.md §8
// supplement): reuses a write call's schema/params minus the signature,
// targeting the debug endpoint.
func EstimateStep(identity *Identity, signed *Request) (*Request, error) {
	params := make(map[string]any, len(signed.Params))
	for k, v := range signed.Params {
		if k == "signature" {
			continue
		}
		params[k] = v
	}
	req := NewRequest(MethodEstimateStep, params, RequestOptions{
		URL:      identity.node + "/api/v3d",
		Schema:   signed.Options.Schema,
		Identity: identity,
	})
	return req, nil
}
