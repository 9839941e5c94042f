package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/healthz":                      "/healthz",
		"/api/auth/login":               "/api/auth/login",
		"/api/customers/abc":            "/api/customers/:id",
		"/api/customers/abc/orders":     "/api/customers/:id/orders",
		"/api/users/abc/password":       "/api/users/:id/password",
		"/api/orders/my":                "/api/orders/my",
		"/api/orders/abc/status":        "/api/orders/:id/status",
		"/api/products/abc":             "/api/products/:id",
		"/api/products/abc?limit=10":    "/api/products/:id",
		"/api/dashboard/stats":          "/api/dashboard/stats",
		"/api/customers/abc/orders/etc": "/api/customers/abc/orders/etc",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
