package api

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"

	"tokenized-vault/internal/storage/memory"
	"tokenized-vault/internal/token/stub"
	"tokenized-vault/internal/vault"
)

// testKey derives a deterministic keypair address from a tag. Going through
// ed25519 keeps the result on the curve, like a real signing identity.
func testKey(tag string) string {
	seed := sha256.Sum256([]byte(tag))
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	return base58.Encode(pub)
}

type apiEnv struct {
	handler http.Handler
	ledger  *stub.Ledger
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	ledger := stub.NewLedger()
	svc := vault.NewService(
		memory.NewVaultStateStore(),
		memory.NewRegistryStore(),
		ledger, ledger, ledger,
	)
	server := NewServer(svc, nil, nil, nil)
	return &apiEnv{handler: server.Handler(), ledger: ledger}
}

// do runs a request against the handler and decodes the JSON response.
func (e *apiEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, decoded
}

// initVault creates a vault through the API and returns its id.
func (e *apiEnv) initVault(t *testing.T, authority string) string {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/v1/vaults", initializeRequest{
		Authority: authority,
		AssetMint: testKey("asset-mint"),
	})
	if status != http.StatusCreated {
		t.Fatalf("Initialize returned %d: %v", status, body)
	}
	id, _ := body["vault_id"].(string)
	if id == "" {
		t.Fatal("Initialize response missing vault_id")
	}
	return id
}

func TestAPI_InitializeAndGetVault(t *testing.T) {
	env := newAPIEnv(t)
	authority := testKey("authority")

	vaultID := env.initVault(t, authority)

	status, body := env.do(t, http.MethodGet, "/v1/vaults/"+vaultID, nil)
	if status != http.StatusOK {
		t.Fatalf("GetVault returned %d: %v", status, body)
	}
	if body["authority"] != authority {
		t.Errorf("Expected authority %s, got %v", authority, body["authority"])
	}
	if body["total_assets"] != "0" || body["total_shares"] != "0" {
		t.Errorf("Expected zero totals, got %v/%v", body["total_assets"], body["total_shares"])
	}
}

func TestAPI_InitializeBadAuthority(t *testing.T) {
	env := newAPIEnv(t)

	// A malformed address is the caller's mistake, not a server fault
	status, body := env.do(t, http.MethodPost, "/v1/vaults", initializeRequest{
		Authority: "not-a-pubkey",
		AssetMint: testKey("asset-mint"),
	})
	if status != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %v", status, body)
	}
	if body["error"] != "invalid_pubkey" {
		t.Errorf("Expected code invalid_pubkey, got %v", body["error"])
	}
}

func TestAPI_ListVaults(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/v1/vaults", nil)
	if status != http.StatusOK {
		t.Fatalf("ListVaults returned %d: %v", status, body)
	}
	if vaults, _ := body["vaults"].([]any); len(vaults) != 0 {
		t.Errorf("Expected empty vault list, got %d entries", len(vaults))
	}

	vaultID := env.initVault(t, testKey("authority"))

	status, body = env.do(t, http.MethodGet, "/v1/vaults", nil)
	if status != http.StatusOK {
		t.Fatalf("ListVaults returned %d: %v", status, body)
	}
	vaults, _ := body["vaults"].([]any)
	if len(vaults) != 1 {
		t.Fatalf("Expected 1 vault, got %d", len(vaults))
	}
	entry := vaults[0].(map[string]any)
	if entry["vault_id"] != vaultID {
		t.Errorf("Expected vault_id %s, got %v", vaultID, entry["vault_id"])
	}
}

func TestAPI_GetVaultNotFound(t *testing.T) {
	env := newAPIEnv(t)

	status, body := env.do(t, http.MethodGet, "/v1/vaults/missing", nil)
	if status != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %v", status, body)
	}
	if body["error"] != "not_found" {
		t.Errorf("Expected code not_found, got %v", body["error"])
	}
}

func TestAPI_Deposit(t *testing.T) {
	env := newAPIEnv(t)
	vaultID := env.initVault(t, testKey("authority"))
	depositor := testKey("depositor")
	env.ledger.SetBalance(depositor, 5000)

	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/deposit", depositRequest{
		Depositor: depositor,
		Amount:    "1000",
	})
	if status != http.StatusOK {
		t.Fatalf("Deposit returned %d: %v", status, body)
	}
	if body["shares_minted"] != "1000" {
		t.Errorf("Expected shares_minted 1000, got %v", body["shares_minted"])
	}
	if body["total_assets"] != "1000" || body["total_shares"] != "1000" {
		t.Errorf("Expected totals 1000/1000, got %v/%v", body["total_assets"], body["total_shares"])
	}
}

func TestAPI_DepositBadAmounts(t *testing.T) {
	env := newAPIEnv(t)
	vaultID := env.initVault(t, testKey("authority"))
	depositor := testKey("depositor")

	for _, amount := range []string{"", "-5", "abc", "1.5", "0"} {
		status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/deposit", depositRequest{
			Depositor: depositor,
			Amount:    amount,
		})
		if status != http.StatusBadRequest {
			t.Errorf("Amount %q: expected 400, got %d: %v", amount, status, body)
			continue
		}
		if body["error"] != "invalid_amount" {
			t.Errorf("Amount %q: expected code invalid_amount, got %v", amount, body["error"])
		}
	}
}

func TestAPI_ValueOfShares(t *testing.T) {
	env := newAPIEnv(t)
	vaultID := env.initVault(t, testKey("authority"))
	depositor := testKey("depositor")
	env.ledger.SetBalance(depositor, 5000)

	env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/deposit", depositRequest{
		Depositor: depositor,
		Amount:    "1000",
	})

	status, body := env.do(t, http.MethodGet, "/v1/vaults/"+vaultID+"/value?shares=400", nil)
	if status != http.StatusOK {
		t.Fatalf("Value returned %d: %v", status, body)
	}
	if body["assets"] != "400" {
		t.Errorf("Expected 400 assets at 1:1, got %v", body["assets"])
	}
}

func TestAPI_ProtocolLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	authority := testKey("authority")
	vaultID := env.initVault(t, authority)
	target := testKey("protocol-a")

	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
		Authority: authority,
		Target:    target,
		Name:      "amm pool",
	})
	if status != http.StatusCreated {
		t.Fatalf("AddProtocol returned %d: %v", status, body)
	}

	// Duplicate add conflicts
	status, body = env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
		Authority: authority,
		Target:    target,
	})
	if status != http.StatusConflict || body["error"] != "protocol_already_approved" {
		t.Errorf("Expected 409 protocol_already_approved, got %d %v", status, body["error"])
	}

	// Disable
	status, body = env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols/toggle", toggleProtocolRequest{
		Authority: authority,
		Target:    target,
		Enabled:   false,
	})
	if status != http.StatusOK {
		t.Fatalf("ToggleProtocol returned %d: %v", status, body)
	}

	// Listing shows the disabled entry with its name
	status, body = env.do(t, http.MethodGet, "/v1/vaults/"+vaultID+"/protocols", nil)
	if status != http.StatusOK {
		t.Fatalf("GetProtocols returned %d: %v", status, body)
	}
	protocols, _ := body["protocols"].([]any)
	if len(protocols) != 1 {
		t.Fatalf("Expected 1 protocol, got %d", len(protocols))
	}
	entry := protocols[0].(map[string]any)
	if entry["enabled"] != false || entry["name"] != "amm pool" {
		t.Errorf("Unexpected protocol entry: %v", entry)
	}
}

func TestAPI_AddProtocolUnauthorized(t *testing.T) {
	env := newAPIEnv(t)
	vaultID := env.initVault(t, testKey("authority"))

	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
		Authority: testKey("intruder"),
		Target:    testKey("protocol-a"),
	})
	if status != http.StatusForbidden || body["error"] != "unauthorized" {
		t.Errorf("Expected 403 unauthorized, got %d %v", status, body["error"])
	}
}

func TestAPI_RegistryFull(t *testing.T) {
	env := newAPIEnv(t)
	authority := testKey("authority")
	vaultID := env.initVault(t, authority)

	for i := 0; i < 10; i++ {
		status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
			Authority: authority,
			Target:    testKey(fmt.Sprintf("protocol-%d", i)),
		})
		if status != http.StatusCreated {
			t.Fatalf("AddProtocol %d returned %d: %v", i, status, body)
		}
	}

	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
		Authority: authority,
		Target:    testKey("protocol-overflow"),
	})
	if status != http.StatusConflict || body["error"] != "registry_full" {
		t.Errorf("Expected 409 registry_full, got %d %v", status, body["error"])
	}
}

func TestAPI_InvestDenialsShareOneCode(t *testing.T) {
	env := newAPIEnv(t)
	authority := testKey("authority")
	vaultID := env.initVault(t, authority)
	depositor := testKey("depositor")
	env.ledger.SetBalance(depositor, 5000)
	env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/deposit", depositRequest{
		Depositor: depositor,
		Amount:    "1000",
	})
	target := testKey("protocol-a")

	// Never whitelisted
	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/invest", investRequest{
		Authority: authority,
		Target:    target,
		Amount:    "100",
	})
	if status != http.StatusForbidden || body["error"] != "protocol_not_approved" {
		t.Errorf("Unknown target: expected 403 protocol_not_approved, got %d %v", status, body["error"])
	}

	// Whitelisted but disabled: same external code
	env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
		Authority: authority,
		Target:    target,
	})
	env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols/toggle", toggleProtocolRequest{
		Authority: authority,
		Target:    target,
		Enabled:   false,
	})
	status, body = env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/invest", investRequest{
		Authority: authority,
		Target:    target,
		Amount:    "100",
	})
	if status != http.StatusForbidden || body["error"] != "protocol_not_approved" {
		t.Errorf("Disabled target: expected 403 protocol_not_approved, got %d %v", status, body["error"])
	}
}

func TestAPI_InvestSuccess(t *testing.T) {
	env := newAPIEnv(t)
	authority := testKey("authority")
	vaultID := env.initVault(t, authority)
	depositor := testKey("depositor")
	env.ledger.SetBalance(depositor, 5000)
	env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/deposit", depositRequest{
		Depositor: depositor,
		Amount:    "1000",
	})
	target := testKey("protocol-a")
	env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/protocols", addProtocolRequest{
		Authority: authority,
		Target:    target,
	})

	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/invest", investRequest{
		Authority: authority,
		Target:    target,
		Amount:    "250",
	})
	if status != http.StatusOK {
		t.Fatalf("Invest returned %d: %v", status, body)
	}
	if body["invested_amount"] != "250" {
		t.Errorf("Expected invested_amount 250, got %v", body["invested_amount"])
	}
}

func TestAPI_WithdrawNotImplemented(t *testing.T) {
	env := newAPIEnv(t)
	vaultID := env.initVault(t, testKey("authority"))

	status, body := env.do(t, http.MethodPost, "/v1/vaults/"+vaultID+"/withdraw", map[string]string{})
	if status != http.StatusNotImplemented || body["error"] != "not_implemented" {
		t.Errorf("Expected 501 not_implemented, got %d %v", status, body["error"])
	}
}

func TestAPI_Health(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from /healthz, got %d", rec.Code)
	}
}
