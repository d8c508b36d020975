//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

func TestSystem_E2E(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	email := fmt.Sprintf("e2e_%d@example.com", time.Now().UnixNano())
	pass := "password123!"

	doJSON(t, http.MethodPost, baseURL+"/auth/register", map[string]any{
		"firstName": "E2E",
		"lastName":  "Probe",
		"email":     email,
		"password":  pass,
	}, nil, 201)

	var sess struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, baseURL+"/auth/login", map[string]any{
		"email":    email,
		"password": pass,
	}, &sess, 200)
	if sess.Token == "" {
		t.Fatalf("empty token in login response")
	}

	var who struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	doJSONAuth(t, http.MethodGet, baseURL+"/auth/whoami", sess.Token, nil, &who, 200)
	if who.UserID != sess.User.ID {
		t.Fatalf("whoami user_id=%q want %q", who.UserID, sess.User.ID)
	}

	// Mutations require a bearer token.
	doJSON(t, http.MethodPost, baseURL+"/products", map[string]any{
		"name": "nope", "price": 1, "stock": 1, "isActive": true,
	}, nil, 401)

	name := fmt.Sprintf("e2e-widget-%d", time.Now().UnixNano())
	var created struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	doJSONAuth(t, http.MethodPost, baseURL+"/products", sess.Token, map[string]any{
		"name":     name,
		"price":    49.99,
		"category": "E2E",
		"stock":    3,
		"isActive": true,
	}, &created, 201)
	if created.ID == 0 {
		t.Fatalf("product id missing: %+v", created)
	}

	var page struct {
		Products   []map[string]any `json:"products"`
		TotalCount int              `json:"totalCount"`
	}
	doJSONAuth(t, http.MethodGet, baseURL+"/products", sess.Token, nil, &page, 200)
	if page.TotalCount == 0 || len(page.Products) == 0 {
		t.Fatalf("expected non-empty catalog, got totalCount=%d items=%d", page.TotalCount, len(page.Products))
	}

	var stats struct {
		TotalProducts int `json:"totalProducts"`
		LowStock      int `json:"lowStockProducts"`
	}
	doJSONAuth(t, http.MethodGet, baseURL+"/dashboard/stats", sess.Token, nil, &stats, 200)
	if stats.TotalProducts != page.TotalCount {
		t.Fatalf("stats totalProducts=%d want %d", stats.TotalProducts, page.TotalCount)
	}
	if stats.LowStock == 0 {
		t.Fatalf("expected created product (stock=3) to count as low stock")
	}

	doJSONAuth(t, http.MethodDelete, baseURL+fmt.Sprintf("/products/%d", created.ID), sess.Token, nil, nil, 204)
	doJSONAuth(t, http.MethodGet, baseURL+fmt.Sprintf("/products/%d", created.ID), sess.Token, nil, nil, 404)
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()
	doJSONAuth(t, method, url, "", body, out, want)
}

func doJSONAuth(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
