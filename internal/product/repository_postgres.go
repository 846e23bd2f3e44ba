package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wichananm65/pet-shop-orders/internal/apperr"
)

const getByIDQuery = `SELECT id, name, price, stock, merchant_id FROM products WHERE id = $1`

// PostgresRepository serves the catalog from the shared products table when
// no product service URL is configured.
type PostgresRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresRepository(db *sql.DB, timeout time.Duration) *PostgresRepository {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PostgresRepository{db: db, timeout: timeout}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p Product
	err := r.db.QueryRowContext(ctx, getByIDQuery, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.MerchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, apperr.ErrProductNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", apperr.ErrProductServiceUnavailable, err)
	}
	return p, nil
}
