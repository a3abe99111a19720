package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"kitabu.org/internal/book"
	"kitabu.org/internal/tenant"
)

type apiClient struct {
	baseURL  string
	client   *http.Client
	verifier *tenant.Verifier
	t        *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	verifier, err := tenant.NewVerifier("test-secret", "kitabu-test")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	api := New(book.NewInMemory(), verifier, ReadyProbe{}, "test")
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL:  srv.URL,
		client:   srv.Client(),
		verifier: verifier,
		t:        t,
	}
}

func (c *apiClient) token(tenantID string) string {
	c.t.Helper()
	tok, err := c.verifier.Mint(tenantID, time.Hour)
	if err != nil {
		c.t.Fatalf("mint token: %v", err)
	}
	return tok
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, token string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (c *apiClient) seed(token string) {
	c.t.Helper()
	resp := c.post("/v1/seed", map[string]any{"kind": "family"}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("seed status: %d", resp.StatusCode)
	}
}

func TestPostAndReportFlow(t *testing.T) {
	c := newTestAPI(t)
	token := c.token("tenant-1")
	c.seed(token)

	resp := c.post("/v1/journal-entries", map[string]any{
		"date":      "2025-03-01",
		"reference": "march salary",
		"lines": []map[string]any{
			{"account_code": "1020", "debit": "3000"},
			{"account_code": "4010", "credit": "3000"},
		},
	}, token)
	entry := decode[book.JournalEntry](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post entry status: %d", resp.StatusCode)
	}
	if len(entry.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entry.Lines))
	}

	resp = c.get("/v1/reports/trial-balance", nil, token)
	tb := decode[book.TrialBalance](t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trial balance status: %d", resp.StatusCode)
	}
	if !tb.Balanced {
		t.Fatalf("trial balance should balance: debits %s credits %s", tb.TotalDebits, tb.TotalCredits)
	}
	if !tb.TotalDebits.Equal(tb.TotalCredits) {
		t.Fatalf("totals differ: %s vs %s", tb.TotalDebits, tb.TotalCredits)
	}

	resp = c.post("/v1/journal-entries/"+entry.ID+"/void", nil, token)
	rev := decode[book.JournalEntry](t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("void status: %d", resp.StatusCode)
	}
	if rev.Status != book.StatusReversal || rev.ReversalOf != entry.ID {
		t.Fatalf("unexpected reversal: %+v", rev)
	}

	resp = c.post("/v1/journal-entries/"+entry.ID+"/void", nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second void status: %d", resp.StatusCode)
	}
}

func TestUnbalancedEntryRejected(t *testing.T) {
	c := newTestAPI(t)
	token := c.token("tenant-1")
	c.seed(token)

	resp := c.post("/v1/journal-entries", map[string]any{
		"date": "2025-03-01",
		"lines": []map[string]any{
			{"account_code": "1020", "debit": "100"},
			{"account_code": "4010", "credit": "99"},
		},
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestRequiresToken(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/accounts", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = c.get("/healthz", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz should be public, got %d", resp.StatusCode)
	}
}

func TestTenantIsolation(t *testing.T) {
	c := newTestAPI(t)
	alpha := c.token("tenant-alpha")
	beta := c.token("tenant-beta")
	c.seed(alpha)

	resp := c.get("/v1/accounts", nil, beta)
	payload := decode[struct {
		Items []book.Account `json:"items"`
	}](t, resp)
	if len(payload.Items) != 0 {
		t.Fatalf("tenant-beta should see no accounts, got %d", len(payload.Items))
	}
}

func TestAssetLifecycleOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	token := c.token("tenant-1")
	c.seed(token)

	resp := c.post("/v1/assets", map[string]any{
		"account_code": "1540",
		"name":         "workstation",
		"cost":         "50000",
		"acquired_on":  "2025-01-15",
		"serial":       "SN-1",
	}, token)
	asset := decode[book.FixedAsset](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create asset status: %d", resp.StatusCode)
	}

	resp = c.post("/v1/assets/"+asset.ID+"/depreciation", map[string]any{
		"amount": "10000",
		"date":   "2025-12-31",
	}, token)
	asset = decode[book.FixedAsset](t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("depreciate status: %d", resp.StatusCode)
	}
	if asset.AccumulatedDepreciation.String() != "10000" {
		t.Fatalf("accumulated = %s, want 10000", asset.AccumulatedDepreciation)
	}

	resp = c.post("/v1/assets/"+asset.ID+"/disposal", map[string]any{
		"proceeds": "45000",
		"date":     "2026-01-10",
	}, token)
	asset = decode[book.FixedAsset](t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dispose status: %d", resp.StatusCode)
	}
	if !asset.Disposed() {
		t.Fatal("asset should be disposed")
	}

	resp = c.post("/v1/assets/"+asset.ID+"/depreciation", map[string]any{
		"amount": "1000",
		"date":   "2026-02-01",
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("depreciating disposed asset: expected 409, got %d", resp.StatusCode)
	}

	resp = c.get("/v1/reports/balance-sheet", nil, token)
	bs := decode[book.BalanceSheet](t, resp)
	if !bs.Balanced {
		t.Fatalf("balance sheet should balance after disposal: %s", bs.Warning)
	}
}

func TestLandDoesNotDepreciate(t *testing.T) {
	c := newTestAPI(t)
	token := c.token("tenant-1")
	c.seed(token)

	resp := c.post("/v1/assets", map[string]any{
		"account_code": "1520",
		"name":         "plot",
		"cost":         "200000",
		"acquired_on":  "2025-01-01",
	}, token)
	asset := decode[book.FixedAsset](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create asset status: %d", resp.StatusCode)
	}

	resp = c.post("/v1/assets/"+asset.ID+"/depreciation", map[string]any{
		"amount": "1000",
		"date":   "2025-12-31",
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for land depreciation, got %d", resp.StatusCode)
	}
}

func TestProfitAndLossWindowRequired(t *testing.T) {
	c := newTestAPI(t)
	token := c.token("tenant-1")
	c.seed(token)

	resp := c.get("/v1/reports/profit-and-loss", nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without window, got %d", resp.StatusCode)
	}

	resp = c.get("/v1/reports/profit-and-loss", url.Values{
		"from": {"2025-06-01"},
		"to":   {"2025-01-01"},
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted window, got %d", resp.StatusCode)
	}
}

func TestAccountMappingLookup(t *testing.T) {
	c := newTestAPI(t)
	token := c.token("tenant-1")
	c.seed(token)

	resp := c.get("/v1/accounts/mapping", url.Values{"hint": {"1010"}}, token)
	acc := decode[book.Account](t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mapping status: %d", resp.StatusCode)
	}
	if acc.Code != "1010" {
		t.Fatalf("mapping returned %s, want 1010", acc.Code)
	}

	resp = c.get("/v1/accounts/mapping", url.Values{"hint": {"no-such-account"}}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown hint, got %d", resp.StatusCode)
	}
}
