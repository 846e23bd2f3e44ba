package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/upstream"
)

func TestHTTPClient_Deposit(t *testing.T) {
	var gotAmount float64
	var gotKey string
	var gotUser float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deposit/42", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
		if assert.NoError(t, err) {
			gotUser, _ = tok.Claims.(jwt.MapClaims)["user_id"].(float64)
		}

		var body depositRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotAmount = body.Amount
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(upstream.New(upstream.Config{Name: "wallet", BaseURL: srv.URL, Timeout: time.Second}), "secret")
	require.NoError(t, c.Deposit(context.Background(), 42, 30.5, "refund-1"))
	assert.Equal(t, 30.5, gotAmount)
	assert.Equal(t, "refund-1", gotKey)
	assert.Equal(t, float64(42), gotUser)
}

func TestHTTPClient_DepositFailures(t *testing.T) {
	status := http.StatusBadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewHTTPClient(upstream.New(upstream.Config{Name: "wallet", BaseURL: srv.URL}), "secret")

	err := c.Deposit(context.Background(), 1, 5, "k")
	assert.ErrorIs(t, err, apperr.ErrDepositRejected)
	assert.False(t, apperr.Retryable(err))

	status = http.StatusServiceUnavailable
	err = c.Deposit(context.Background(), 1, 5, "k")
	assert.ErrorIs(t, err, apperr.ErrWalletUnavailable)
	assert.True(t, apperr.Retryable(err))
}

func TestInMemoryLedger(t *testing.T) {
	l := NewInMemoryLedger()
	ctx := context.Background()
	require.NoError(t, l.Deposit(ctx, 1, 10, "a"))
	require.NoError(t, l.Deposit(ctx, 1, 10, "a"))
	require.NoError(t, l.Deposit(ctx, 1, 2.5, ""))
	assert.Equal(t, 12.5, l.Balance(1))
}
