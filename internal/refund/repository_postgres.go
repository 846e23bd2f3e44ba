package refund

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

const (
	requestColumns  = `id, user_id, merchant_id, order_id, status, deposited, created_at, updated_at`
	uniqueViolation = "23505"
)

type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresRepository(db *sql.DB, timeout time.Duration) *PostgresRepository {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &PostgresRepository{db: db, timeout: timeout}
}

func (r *PostgresRepository) Create(ctx context.Context, req *Request) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `INSERT INTO refund_requests (user_id, merchant_id, order_id, status, deposited)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		req.UserID, req.MerchantID, req.OrderID, string(req.Status), req.Deposited).
		Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.ErrRefundAlreadyPending
	}
	if err != nil {
		return apperr.Unavailable("insert refund request", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, req *Request) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `UPDATE refund_requests SET status = $2, deposited = $3, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		req.ID, string(req.Status), req.Deposited).Scan(&req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrRefundRequestNotFound
	}
	if err != nil {
		return apperr.Unavailable(fmt.Sprintf("update refund request %d", req.ID), err)
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Request, error) {
	return r.one(ctx, `SELECT `+requestColumns+` FROM refund_requests WHERE id = $1`, id)
}

func (r *PostgresRepository) FindPendingByOrderID(ctx context.Context, orderID int64) (*Request, error) {
	return r.one(ctx, `SELECT `+requestColumns+` FROM refund_requests WHERE order_id = $1 AND status = 'PENDING'`, orderID)
}

func (r *PostgresRepository) FindByUserID(ctx context.Context, userID int64) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM refund_requests WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *PostgresRepository) FindByMerchantID(ctx context.Context, merchantID int64) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM refund_requests WHERE merchant_id = $1 ORDER BY id`, merchantID)
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM refund_requests ORDER BY id`)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM refund_requests WHERE id = $1`, id); err != nil {
		return apperr.Unavailable(fmt.Sprintf("delete refund request %d", id), err)
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg int64) (*Request, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrRefundRequestNotFound
	}
	if err != nil {
		return nil, apperr.Unavailable("find refund request", err)
	}
	return req, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Request, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable("list refund requests", err)
	}
	defer rows.Close()

	out := make([]*Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, apperr.Unavailable("scan refund request", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list refund requests", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(s scanner) (*Request, error) {
	var (
		req    Request
		status string
	)
	if err := s.Scan(&req.ID, &req.UserID, &req.MerchantID, &req.OrderID, &status, &req.Deposited, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	req.Status = Status(status)
	return &req, nil
}
