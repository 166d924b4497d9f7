package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Product struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	Price             int64     `json:"price"`
	OriginalPrice     int64     `json:"original_price"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p Product) LowStock() bool { return p.Stock <= p.LowStockThreshold }

type FlashSale struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	FlashPrice    int64     `json:"flash_price"`
	OriginalPrice int64     `json:"original_price"`
	StockLimit    int       `json:"stock_limit"`
	StockSold     int       `json:"stock_sold"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	IsActive      bool      `json:"is_active"`
}

// ActiveAt: window mulai inklusif, akhir eksklusif.
func (f FlashSale) ActiveAt(now time.Time) bool {
	return f.IsActive && !now.Before(f.StartsAt) && now.Before(f.EndsAt)
}

func (f FlashSale) Remaining() int { return f.StockLimit - f.StockSold }

// Store adalah kontrak read-only ke catalog. Return nil (tanpa error) kalau
// row tidak ada — harga fallback ke list price di pricing.
type Store interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetActiveFlashSale(ctx context.Context, productID string) (*FlashSale, error)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, sku, name, price, original_price, stock, low_stock_threshold, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.OriginalPrice, &p.Stock, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) GetActiveFlashSale(ctx context.Context, productID string) (*FlashSale, error) {
	var f FlashSale
	err := r.DB.QueryRow(ctx, `
		SELECT id, product_id, flash_price, original_price, stock_limit, stock_sold, starts_at, ends_at, is_active
		FROM flash_sales
		WHERE product_id=$1 AND is_active AND starts_at <= now() AND ends_at > now()
		ORDER BY starts_at DESC LIMIT 1`, productID).
		Scan(&f.ID, &f.ProductID, &f.FlashPrice, &f.OriginalPrice, &f.StockLimit, &f.StockSold, &f.StartsAt, &f.EndsAt, &f.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
