package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sistemasj/backend/internal/cache"
	"sistemasj/backend/internal/service"
	"sistemasj/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopStorefrontCache{}, time.UTC, 5*time.Second)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d (body: %s)", username, rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access_token in login response, got %v", body)
	}
	return token
}

func authedRequest(method string, target string, body []byte, token string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "badpass",
	})

	var last int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on sixth attempt, got %d", last)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", rec.Code)
	}
}

func TestSaleAndCashRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "seller", "seller123")

	payload, _ := json.Marshal(map[string]any{
		"payment_method": "cash",
		"lines": []map[string]any{
			{"product_id": "prod-cargador", "quantity": 2, "display_name": "CARGADOR USB-C 20W", "price_tier": "reseller"},
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/sales", payload, token))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for sale, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/cash", nil, token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for cash report, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var report struct {
		Sold map[string]string `json:"sold"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode cash report: %v", err)
	}
	if report.Sold["cash"] != "19000" {
		t.Fatalf("expected cash total 19000, got %q", report.Sold["cash"])
	}
}

func TestSaleUnknownProductReturns404(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "seller", "seller123")

	payload, _ := json.Marshal(map[string]any{
		"payment_method": "cash",
		"lines": []map[string]any{
			{"product_id": "prod-nope", "quantity": 1, "display_name": "NADA"},
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/sales", payload, token))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestDeleteSaleForbiddenForSeller(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "seller", "seller123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/sales/sale-x", nil, token))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller delete, got %d", rec.Code)
	}
}

func TestRepairLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "seller", "seller123")

	payload, _ := json.Marshal(map[string]any{
		"order_number":  "0099",
		"repair_type":   "PANTALLA",
		"brand":         "SAMSUNG",
		"model":         "A30",
		"technician":    "J",
		"quoted_amount": "35000",
		"customer_name": "CARLOS",
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/repairs", payload, token))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for repair intake, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	patch, _ := json.Marshal(map[string]string{
		"order_number": "0099",
		"status":       "repaired",
	})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPatch, "/api/v1/repairs/status", patch, token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for status patch, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Unknown order number still succeeds.
	patch, _ = json.Marshal(map[string]string{
		"order_number": "4040",
		"status":       "delivered",
	})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPatch, "/api/v1/repairs/status", patch, token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for no-op status patch, got %d", rec.Code)
	}
}

func TestStorefrontIsPublic(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/storefront", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for public storefront, got %d", rec.Code)
	}
	var body struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode storefront body: %v", err)
	}
	if len(body.Products) == 0 {
		t.Fatalf("expected seeded storefront products")
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "seller", "seller123")

	payload := []byte(`{"payment_method":"cash","lines":[],"surprise":true}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/sales", payload, token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
