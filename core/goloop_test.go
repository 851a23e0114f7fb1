package icon

import (
	"math/big"
	"testing"
)

func anonymousIdentity(t *testing.T) *Identity {
	t.Helper()
	id, err := NewIdentity(IdentityOptions{NetworkID: "mainnet"})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	return id
}

// TestGetBlockByHeightScenario mirrors spec.md §8 scenario 1.
func TestGetBlockByHeightScenario(t *testing.T) {
	id := anonymousIdentity(t)
	req, err := GetBlockByHeight(id, big.NewInt(42))
	if err != nil {
		t.Fatalf("get_block_by_height: %v", err)
	}
	if req.Method != MethodGetBlockByHeight {
		t.Fatalf("method = %s, want %s", req.Method, MethodGetBlockByHeight)
	}
	if req.Params["height"] != "0x2a" {
		t.Fatalf("height = %v, want 0x2a", req.Params["height"])
	}
}

func TestGetBalanceDefaultsToOwnAddress(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	req, err := GetBalance(id, "")
	if err != nil {
		t.Fatalf("get_balance: %v", err)
	}
	if req.Params["address"] != "hxfd7e4560ba363f5aabd32caac7317feeee70ea57" {
		t.Fatalf("address = %v, want the identity's own address", req.Params["address"])
	}
}

func TestGetBalanceWithoutAddressOrWalletFails(t *testing.T) {
	id := anonymousIdentity(t)
	if _, err := GetBalance(id, ""); err == nil {
		t.Fatalf("expected an error when neither address nor wallet is available")
	}
}

func TestGetTransactionResultSwitchesToWaitVariant(t *testing.T) {
	id := anonymousIdentity(t)
	hash := "0x" + "ab" + strings64()
	req, err := GetTransactionResult(id, hash, 3000)
	if err != nil {
		t.Fatalf("get_transaction_result: %v", err)
	}
	if req.Method != MethodWaitTransactionResult {
		t.Fatalf("method = %s, want %s", req.Method, MethodWaitTransactionResult)
	}
}

func strings64() string {
	s := ""
	for i := 0; i < 62; i++ {
		s += "0"
	}
	return s
}

func TestTransferRequiresWallet(t *testing.T) {
	id := anonymousIdentity(t)
	if _, err := Transfer(id, "cxb0776ee37f5b45bfaea8cff1d8232fbb6122ec32", big.NewInt(1), 0); err == nil {
		t.Fatalf("expected an error building a write call without a wallet")
	}
}

func TestSendMessageEncodesTextAsHex(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	req, err := SendMessage(id, "hxfd7e4560ba363f5aabd32caac7317feeee70ea57", "hello", 0)
	if err != nil {
		t.Fatalf("send_message: %v", err)
	}
	if req.Params["data"] != "0x68656c6c6f" {
		t.Fatalf("data = %v, want 0x68656c6c6f", req.Params["data"])
	}
	if req.Params["dataType"] != "message" {
		t.Fatalf("dataType = %v, want message", req.Params["dataType"])
	}
}

func TestInstallScoreTargetsZeroAddress(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	req, err := InstallScore(id, []byte("zipbytes"), nil, nil, 0)
	if err != nil {
		t.Fatalf("install_score: %v", err)
	}
	if req.Params["to"] != ZeroSCOREAddress {
		t.Fatalf("to = %v, want %v", req.Params["to"], ZeroSCOREAddress)
	}
}

func TestDepositAndWithdrawSharedFee(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	to := "cxb0776ee37f5b45bfaea8cff1d8232fbb6122ec32"

	req, err := DepositSharedFee(id, to, big.NewInt(1000), 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	data := req.Params["data"].(map[string]any)
	if data["action"] != "add" {
		t.Fatalf("action = %v, want add", data["action"])
	}

	req, err = WithdrawSharedFee(id, to, nil, 0)
	if err != nil {
		t.Fatalf("withdraw (all): %v", err)
	}
	data = req.Params["data"].(map[string]any)
	if data["action"] != "withdraw" {
		t.Fatalf("action = %v, want withdraw", data["action"])
	}
	if _, hasAmount := data["amount"]; hasAmount {
		t.Fatalf("withdraw-all should not carry an amount")
	}

	req, err = WithdrawSharedFee(id, to, big.NewInt(500), 0)
	if err != nil {
		t.Fatalf("withdraw (amount): %v", err)
	}
	data = req.Params["data"].(map[string]any)
	if data["amount"] != "0x1f4" {
		t.Fatalf("amount = %v, want 0x1f4", data["amount"])
	}
}

func TestEstimateStepStripsSignature(t *testing.T) {
	id, err := NewIdentity(IdentityOptions{PrivateKey: testPrivateKey})
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	signed, err := Transfer(id, "cxb0776ee37f5b45bfaea8cff1d8232fbb6122ec32", big.NewInt(42), 0)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := Sign(signed); err != nil {
		t.Fatalf("sign: %v", err)
	}
	est, err := EstimateStep(id, signed)
	if err != nil {
		t.Fatalf("estimate_step: %v", err)
	}
	if _, ok := est.Params["signature"]; ok {
		t.Fatalf("estimate_step params must not carry a signature")
	}
	if est.Method != MethodEstimateStep {
		t.Fatalf("method = %s, want %s", est.Method, MethodEstimateStep)
	}
}
