package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/wichananm65/pet-shop-orders/internal/apperr"
	"github.com/wichananm65/pet-shop-orders/internal/cart"
)

const orderColumns = `id, user_id, merchant_id, user_email, line_items, status, total_price, total_item_count, delivery_date, refund_request_id, created_at, updated_at`

// errCorruptRow marks a stored row that cannot be decoded. Retrying will not
// help, so it is kept apart from driver failures.
var errCorruptRow = errors.New("corrupt order row")

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

// storageErr tags driver failures as retryable and leaves decode errors alone.
func storageErr(op string, err error) error {
	if errors.Is(err, errCorruptRow) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return apperr.Unavailable(op, err)
}

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = r.db.QueryRowContext(ctx, `INSERT INTO orders (user_id, merchant_id, user_email, line_items, status, total_price, total_item_count, delivery_date, refund_request_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.MerchantID, o.UserEmail, items, string(o.Status), o.TotalPrice, o.TotalItemCount, nullTime(o.DeliveryDate), nullInt(o.RefundRequestID)).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return apperr.Unavailable("insert order", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, o *Order, expected Status) error {
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE orders SET line_items = $3, status = $4, total_price = $5, total_item_count = $6,
		delivery_date = $7, refund_request_id = $8, updated_at = now()
		WHERE id = $1 AND status = $2`,
		o.ID, string(expected), items, string(o.Status), o.TotalPrice, o.TotalItemCount, nullTime(o.DeliveryDate), nullInt(o.RefundRequestID))
	if err != nil {
		return apperr.Unavailable(fmt.Sprintf("update order %d", o.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Unavailable(fmt.Sprintf("update order %d", o.ID), err)
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: either the order is gone or someone moved it first.
	if _, err := r.FindByID(ctx, o.ID); err != nil {
		return err
	}
	return apperr.ErrOrderConflict
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("find order %d", id), err)
	}
	return o, nil
}

// FindByIDs returns orders matching ids in the sequence of ids. An empty
// slice returns immediately.
func (r *PostgresRepository) FindByIDs(ctx context.Context, ids []int64) ([]*Order, error) {
	if len(ids) == 0 {
		return []*Order{}, nil
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], id)`, pq.Array(ids))
}

func (r *PostgresRepository) FindByUserID(ctx context.Context, userID int64) ([]*Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *PostgresRepository) FindByMerchantID(ctx context.Context, merchantID int64) ([]*Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE merchant_id = $1 ORDER BY id`, merchantID)
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]*Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return apperr.Unavailable(fmt.Sprintf("delete order %d", id), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrOrderNotFound
	}
	return nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable("list orders", err)
	}
	defer rows.Close()

	orders := make([]*Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, storageErr("scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list orders", err)
	}
	return orders, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*Order, error) {
	var (
		o        Order
		items    []byte
		status   string
		delivery sql.NullTime
		refundID sql.NullInt64
	)
	if err := s.Scan(&o.ID, &o.UserID, &o.MerchantID, &o.UserEmail, &items, &status, &o.TotalPrice, &o.TotalItemCount,
		&delivery, &refundID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	var lines []cart.Line
	if err := json.Unmarshal(items, &lines); err != nil {
		return nil, fmt.Errorf("%w: decode line items: %w", errCorruptRow, err)
	}
	o.LineItems = lines
	o.Status = Status(status)
	if delivery.Valid {
		d := delivery.Time
		o.DeliveryDate = &d
	}
	if refundID.Valid {
		id := refundID.Int64
		o.RefundRequestID = &id
	}
	return &o, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
