package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                            "/",
		"/metrics":                    "/metrics",
		"/v1/accounts":                "/v1/accounts",
		"/v1/accounts/abc":            "/v1/accounts/:id",
		"/v1/accounts/abc/deposit":    "/v1/accounts/:id/deposit",
		"/v1/accounts/abc/convert":    "/v1/accounts/:id/convert",
		"/v1/accounts/abc/extra/more": "/v1/accounts/abc/extra/more",
		"/v1/transfers":               "/v1/transfers",
		"/v1/accounts?name=Alice":     "/v1/accounts",
		"/v1/accounts/abc?x=1":        "/v1/accounts/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
