package order

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func setupApp(t *testing.T) (*fiber.App, testEnv) {
	env := newEnv(t, nil)
	a := fiber.New()
	NewHandler(env.svc).RegisterRoutes(a)
	return a, env
}

func call(t *testing.T, a *fiber.App, method, path, token string, body any, headers ...string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func TestHandler_CheckoutAndLifecycle(t *testing.T) {
	a, env := setupApp(t)
	env.fillCart(t)

	status, raw := call(t, a, "POST", "/api/v1/orders/checkout", "Bearer cust", nil, "Idempotency-Key", "abc")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, raw)
	}
	var orders []Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}

	status, raw = call(t, a, "POST", "/api/v1/orders/checkout", "Bearer cust", nil, "Idempotency-Key", "abc")
	var replay []Order
	_ = json.Unmarshal(raw, &replay)
	if status != fiber.StatusCreated || len(replay) != 2 || replay[0].ID != orders[0].ID {
		t.Fatalf("replay should return the same orders, got %d %s", status, raw)
	}

	first := "/api/v1/orders/" + itoa(orders[0].ID)
	status, raw = call(t, a, "POST", first+"/ship", "merchA", map[string]string{"deliveryDate": "2026-10-20"})
	if status != fiber.StatusOK {
		t.Fatalf("ship: expected 200, got %d: %s", status, raw)
	}

	status, raw = call(t, a, "GET", first+"/track", "cust", nil)
	if status != fiber.StatusOK || !bytes.Contains(raw, []byte("It will be Delivered on 2026-10-20")) {
		t.Fatalf("unexpected track response %d %s", status, raw)
	}

	status, _ = call(t, a, "POST", first+"/cancel", "cust", nil)
	if status != fiber.StatusConflict {
		t.Fatalf("cancel after ship: expected 409, got %d", status)
	}

	status, _ = call(t, a, "DELETE", first, "admin", nil)
	if status != fiber.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", status)
	}
	status, _ = call(t, a, "GET", first, "admin", nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestHandler_BadInput(t *testing.T) {
	a, env := setupApp(t)
	o := env.checkoutOne(t)
	path := "/api/v1/orders/" + itoa(o.ID)

	status, _ := call(t, a, "POST", path+"/ship", "merchA", map[string]string{"deliveryDate": "next week"})
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	status, _ = call(t, a, "GET", "/api/v1/orders", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	status, _ = call(t, a, "POST", "/api/v1/orders/checkout", "cust", nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("checkout without cart: expected 404, got %d", status)
	}
	status, _ = call(t, a, "GET", path, "merchB", nil)
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
