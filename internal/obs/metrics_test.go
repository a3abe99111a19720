package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/v1/accounts/abc":                  "/v1/accounts/:id",
		"/v1/accounts/abc/balance":          "/v1/accounts/:id/balance",
		"/v1/accounts/abc/x/y":              "/v1/accounts/abc/x/y",
		"/v1/journal-entries":               "/v1/journal-entries",
		"/v1/journal-entries/xyz/void":      "/v1/journal-entries/:id/void",
		"/v1/assets/a1":                     "/v1/assets/:id",
		"/v1/assets/a1/depreciation":        "/v1/assets/:id/depreciation",
		"/v1/assets/a1/disposal":            "/v1/assets/:id/disposal",
		"/v1/reports/trial-balance?as_of=x": "/v1/reports/trial-balance",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
