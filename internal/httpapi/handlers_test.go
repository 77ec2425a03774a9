package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lanepos/backend/internal/catalog"
	"lanepos/backend/internal/checkout"
	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/events"
	jmemory "lanepos/backend/internal/journal/memory"
	"lanepos/backend/internal/salesapi"
)

// newTestAPI builds a full API with an in-memory catalog, sale store and
// journal plus a real AuthManager, so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	gateway := catalog.NewSeeded()
	gateway.Put(domain.Product{ID: "p-coffee", Barcode: "8690637123456", Name: "Filter Coffee 250g", UnitCents: 1250, StockQuantity: 100, Category: "grocery"})
	sales := salesapi.NewMemoryClient()
	jrnl := jmemory.NewSeeded()
	engine := checkout.NewEngine(gateway, sales, jrnl, events.NoopPublisher{}, time.Nanosecond)
	auth := NewAuthManager("test-secret-key", time.Hour, jrnl)

	return New(engine, gateway, sales, jrnl, auth, "*")
}

func login(t *testing.T, api *API, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d: %s", username, res.Code, res.Body.String())
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return payload.AccessToken
}

func doJSON(t *testing.T, api *API, token, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, "", http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body)
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, "", http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: "admin", Password: "wrongpassword"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestChannelsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, "", http.MethodGet, "/api/v1/channels", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	// The engine boots with one channel.
	res := doJSON(t, api, token, http.MethodGet, "/api/v1/channels", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list channels: %d %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	channelID, _ := body["active_id"].(string)
	if channelID == "" {
		t.Fatalf("no active channel in %v", body)
	}

	// Scan two units of the same product.
	for i := 0; i < 2; i++ {
		res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/scan", map[string]string{"barcode": "8690637123456"})
		if res.Code != http.StatusOK {
			t.Fatalf("scan %d: %d %s", i+1, res.Code, res.Body.String())
		}
	}

	res = doJSON(t, api, token, http.MethodGet, "/api/v1/channels/"+channelID+"/totals", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("totals: %d", res.Code)
	}
	totals := decodeBody(t, res)["totals"].(map[string]any)
	if totals["net_cents"].(float64) != 2500 {
		t.Fatalf("net = %v, want 2500", totals["net_cents"])
	}

	// Settle with mixed tender: 20.00 cash + 6.00 card against 25.00.
	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/pay/mixed", map[string]string{"cash": "20.00", "card": "6.00"})
	if res.Code != http.StatusCreated {
		t.Fatalf("mixed pay: %d %s", res.Code, res.Body.String())
	}
	payBody := decodeBody(t, res)
	if payBody["change"] != "1.00" {
		t.Fatalf("change = %v, want 1.00", payBody["change"])
	}

	// The cart is cleared and the receipt shows the committed sale.
	res = doJSON(t, api, token, http.MethodGet, "/api/v1/channels/"+channelID+"/totals", nil)
	totals = decodeBody(t, res)["totals"].(map[string]any)
	if totals["item_count"].(float64) != 0 {
		t.Fatalf("cart not cleared: %v", totals)
	}

	res = doJSON(t, api, token, http.MethodGet, "/api/v1/checkout/receipt", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("receipt: %d %s", res.Code, res.Body.String())
	}
	receipt := decodeBody(t, res)
	if receipt["preview_text"] == "" || receipt["escpos_base64"] == "" {
		t.Fatalf("incomplete receipt: %v", receipt)
	}
}

func TestMixedPayShortfallReturns422(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodGet, "/api/v1/channels", nil)
	channelID := decodeBody(t, res)["active_id"].(string)

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/scan", map[string]string{"barcode": "8690637123456"})
	if res.Code != http.StatusOK {
		t.Fatalf("scan: %d", res.Code)
	}

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/pay/mixed", map[string]string{"cash": "10.00"})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short tender: %d %s", res.Code, res.Body.String())
	}
}

func TestPayRejectsMalformedAmount(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodGet, "/api/v1/channels", nil)
	channelID := decodeBody(t, res)["active_id"].(string)

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/pay/mixed", map[string]string{"cash": "12.345"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("sub-cent amount: %d, want 400", res.Code)
	}
}

func TestChannelLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodPost, "/api/v1/channels", nil)
	if res.Code != http.StatusCreated {
		t.Fatalf("create channel: %d", res.Code)
	}
	created := decodeBody(t, res)["channel"].(map[string]any)
	newID := created["id"].(string)

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+newID+"/scan", map[string]string{"barcode": "8690637123456"})
	if res.Code != http.StatusOK {
		t.Fatalf("scan: %d", res.Code)
	}

	// Unconfirmed close of a non-empty channel conflicts.
	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+newID+"/close", map[string]bool{"confirmed": false})
	if res.Code != http.StatusConflict {
		t.Fatalf("unconfirmed close: %d, want 409", res.Code)
	}

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+newID+"/close", map[string]bool{"confirmed": true})
	if res.Code != http.StatusOK {
		t.Fatalf("confirmed close: %d %s", res.Code, res.Body.String())
	}

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/chan-missing/activate", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("activate missing channel: %d, want 404", res.Code)
	}
}

func TestScanUnknownBarcodeReturns404(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodGet, "/api/v1/channels", nil)
	channelID := decodeBody(t, res)["active_id"].(string)

	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/scan", map[string]string{"barcode": "1111111111111"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("unknown barcode: %d, want 404", res.Code)
	}
}

func TestCustomerSelectionOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodGet, "/api/v1/customers", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("list customers: %d", res.Code)
	}

	chRes := doJSON(t, api, token, http.MethodGet, "/api/v1/channels", nil)
	channelID := decodeBody(t, chRes)["active_id"].(string)

	res = doJSON(t, api, token, http.MethodPut, "/api/v1/channels/"+channelID+"/customer", map[string]any{
		"customer": map[string]string{"id": "cust-2", "name": "Acme Canteen"},
	})
	if res.Code != http.StatusOK {
		t.Fatalf("select customer: %d %s", res.Code, res.Body.String())
	}

	// On-account now settles against the selected customer.
	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/scan", map[string]string{"barcode": "8690637123456"})
	if res.Code != http.StatusOK {
		t.Fatalf("scan: %d", res.Code)
	}
	res = doJSON(t, api, token, http.MethodPost, "/api/v1/channels/"+channelID+"/pay/quick", map[string]string{"method": "on_account"})
	if res.Code != http.StatusCreated {
		t.Fatalf("on-account pay: %d %s", res.Code, res.Body.String())
	}
	sale := decodeBody(t, res)["sale"].(map[string]any)
	if sale["customer_id"] != "cust-2" {
		t.Fatalf("sale customer = %v", sale["customer_id"])
	}
}

func TestJournalRoutesAreAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	cashierToken := login(t, api, "cashier", "cashier123")
	adminToken := login(t, api, "admin", "admin123")

	res := doJSON(t, api, cashierToken, http.MethodGet, "/api/v1/journal/sales", nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("cashier on journal: %d, want 403", res.Code)
	}

	res = doJSON(t, api, adminToken, http.MethodGet, "/api/v1/journal/sales", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("admin on journal: %d", res.Code)
	}
	res = doJSON(t, api, adminToken, http.MethodGet, "/api/v1/journal/audit", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("admin on audit: %d", res.Code)
	}
}

func TestAuditEntriesCarryRequestActor(t *testing.T) {
	api := newTestAPI(t)
	cashierToken := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, cashierToken, http.MethodGet, "/api/v1/channels", nil)
	channelID := decodeBody(t, res)["active_id"].(string)

	res = doJSON(t, api, cashierToken, http.MethodPost, "/api/v1/channels/"+channelID+"/scan", map[string]string{"barcode": "8690637123456"})
	if res.Code != http.StatusOK {
		t.Fatalf("scan: %d", res.Code)
	}
	res = doJSON(t, api, cashierToken, http.MethodPost, "/api/v1/channels/"+channelID+"/pay/quick", map[string]string{"method": "cash"})
	if res.Code != http.StatusCreated {
		t.Fatalf("pay: %d %s", res.Code, res.Body.String())
	}

	adminToken := login(t, api, "admin", "admin123")
	res = doJSON(t, api, adminToken, http.MethodGet, "/api/v1/journal/audit", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("audit: %d", res.Code)
	}
	entries := decodeBody(t, res)["entries"].([]any)
	committed := false
	for _, raw := range entries {
		entry := raw.(map[string]any)
		if entry["action"] == "sale_commit" {
			committed = true
			if entry["actor_username"] != "cashier" {
				t.Fatalf("commit attributed to %v, want cashier", entry["actor_username"])
			}
		}
	}
	if !committed {
		t.Fatalf("no commit audit entry in %v", entries)
	}
}

func TestProductSearchOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodGet, "/api/v1/products?search=coffee", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("search: %d", res.Code)
	}
	products := decodeBody(t, res)["products"].([]any)
	if len(products) != 1 {
		t.Fatalf("results = %d, want 1", len(products))
	}
}

func TestReceiptBeforeAnySaleIs404(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "cashier", "cashier123")

	res := doJSON(t, api, token, http.MethodGet, "/api/v1/checkout/receipt", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("receipt without sale: %d, want 404", res.Code)
	}
}
