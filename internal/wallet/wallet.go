// Package wallet credits users through the wallet/ledger service when a
// refund is accepted.
package wallet

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/infrastructure/upstream"
)

// Depositor credits amount to a user's wallet. The idempotency key lets the
// wallet service drop a repeated deposit for the same refund.
type Depositor interface {
	Deposit(ctx context.Context, userID int64, amount float64, idempotencyKey string) error
}

type HTTPClient struct {
	client *upstream.Client
	secret []byte
	now    func() time.Time
}

func NewHTTPClient(client *upstream.Client, jwtSecret string) *HTTPClient {
	return &HTTPClient{client: client, secret: []byte(jwtSecret), now: time.Now}
}

type depositRequest struct {
	Amount float64 `json:"amount"`
}

func (c *HTTPClient) Deposit(ctx context.Context, userID int64, amount float64, idempotencyKey string) error {
	token, err := c.serviceToken(userID)
	if err != nil {
		return fmt.Errorf("sign wallet token: %w", err)
	}

	headers := map[string]string{
		"Authorization":   "Bearer " + token,
		"Idempotency-Key": idempotencyKey,
	}
	resp, err := c.client.Post(ctx, fmt.Sprintf("/deposit/%d", userID), headers, depositRequest{Amount: amount})
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrWalletUnavailable, err)
	}
	if resp.Status < http.StatusOK || resp.Status >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", apperr.ErrDepositRejected, resp.Status)
	}
	return nil
}

// serviceToken signs a short-lived HS256 token identifying this service to
// the wallet service.
func (c *HTTPClient) serviceToken(userID int64) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"sub":     "order-service",
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// InMemoryLedger keeps balances in memory. Used for tests and when no wallet
// service is configured locally.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[int64]float64
	seen     map[string]struct{}
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: map[int64]float64{}, seen: map[string]struct{}{}}
}

func (l *InMemoryLedger) Deposit(_ context.Context, userID int64, amount float64, idempotencyKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idempotencyKey != "" {
		if _, dup := l.seen[idempotencyKey]; dup {
			return nil
		}
		l.seen[idempotencyKey] = struct{}{}
	}
	l.balances[userID] += amount
	return nil
}

func (l *InMemoryLedger) Balance(userID int64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}
