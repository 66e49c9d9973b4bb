package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"stock-alert-service/internal/models"
)

const productColumns = "id, barcode, name, category, stock, expiration_date"

// FindAll returns the full product catalog. The alerting pipeline only reads;
// stock mutations belong to the sales service.
func (d *DB) FindAll(ctx context.Context) ([]models.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products", productColumns)
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// FindExpired returns products whose expiration date is before the given
// instant.
func (d *DB) FindExpired(ctx context.Context, before time.Time) ([]models.Product, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM products WHERE expiration_date IS NOT NULL AND expiration_date < $1",
		productColumns)
	rows, err := d.Pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// FindExpiringBetween returns products expiring inside [start, end).
func (d *DB) FindExpiringBetween(ctx context.Context, start, end time.Time) ([]models.Product, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM products WHERE expiration_date IS NOT NULL AND expiration_date >= $1 AND expiration_date < $2",
		productColumns)
	rows, err := d.Pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Barcode, &p.Name, &p.Category, &p.Stock, &p.ExpirationDate); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return products, nil
}
