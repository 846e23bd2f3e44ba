package cart

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func setupApp() *fiber.App {
	a := fiber.New()
	NewHandler(newFixture().svc).RegisterRoutes(a)
	return a
}

func doJSON(t *testing.T, a *fiber.App, method, path, token string, body any) (int, View) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var v View
	if resp.StatusCode == fiber.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode, v
}

func TestHandler_AddAndView(t *testing.T) {
	a := setupApp()

	status, v := doJSON(t, a, "POST", "/api/v1/cart/items", "cust", map[string]any{"productId": 10, "quantity": 2})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if v.TotalItemCount != 2 || v.TotalPrice != 25 {
		t.Fatalf("unexpected cart %+v", v)
	}

	status, v = doJSON(t, a, "DELETE", "/api/v1/cart/items/10?quantity=1", "cust", nil)
	if status != fiber.StatusOK || v.TotalItemCount != 1 {
		t.Fatalf("unexpected remove result %d %+v", status, v)
	}

	status, _ = doJSON(t, a, "DELETE", "/api/v1/cart", "cust", nil)
	if status != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", status)
	}

	status, v = doJSON(t, a, "GET", "/api/v1/cart", "cust", nil)
	if status != fiber.StatusOK || len(v.Items) != 0 || v.UserID != 1 {
		t.Fatalf("expected empty cart, got %d %+v", status, v)
	}
}

func TestHandler_Errors(t *testing.T) {
	a := setupApp()

	cases := []struct {
		method, path, token string
		body                any
		want                int
	}{
		{"GET", "/api/v1/cart", "", nil, fiber.StatusUnauthorized},
		{"GET", "/api/v1/cart", "merch", nil, fiber.StatusForbidden},
		{"POST", "/api/v1/cart/items", "cust", map[string]any{"productId": 0, "quantity": 1}, fiber.StatusBadRequest},
		{"POST", "/api/v1/cart/items", "cust", map[string]any{"productId": 10, "quantity": -1}, fiber.StatusBadRequest},
		{"POST", "/api/v1/cart/items", "cust", map[string]any{"productId": 99, "quantity": 1}, fiber.StatusNotFound},
		{"POST", "/api/v1/cart/items", "cust", map[string]any{"productId": 20, "quantity": 5}, fiber.StatusConflict},
		{"DELETE", "/api/v1/cart/items/10", "cust", nil, fiber.StatusNotFound},
		{"DELETE", "/api/v1/cart/items/abc", "cust", nil, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		status, _ := doJSON(t, a, tc.method, tc.path, tc.token, tc.body)
		if status != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, status)
		}
	}
}
