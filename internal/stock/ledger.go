// Package stock menjaga counter stok (stok produk & pool flash sale) supaya
// tidak pernah oversell di bawah demand konkuren. Semua mutasi pakai
// conditional UPDATE yang re-check invariant di WHERE clause — bukan
// read-then-write. Jangan "disederhanakan" balik ke read-modify-write:
// pola ini fix untuk bug oversell, bukan kebetulan.
package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrQuantityExceeded  = errors.New("quantity exceeds per-line cap")
)

// execer dipenuhi *pgxpool.Pool dan pgx.Tx, biar primitive yang sama bisa
// dipakai standalone atau di dalam transaksi checkout.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ValidateQuantity: pre-check murni sebelum nyentuh store. Capacity violation
// itu outcome bisnis, selalu balik sebagai error value.
func ValidateQuantity(requested, available, maxPerLine int) error {
	if requested <= 0 {
		return ErrInvalidQuantity
	}
	if maxPerLine > 0 && requested > maxPerLine {
		return ErrQuantityExceeded
	}
	if requested > available {
		return ErrInsufficientStock
	}
	return nil
}

type Ledger struct{ DB *pgxpool.Pool }

// ReserveFlashSaleUnits: compare-and-increment atomik. stock_sold naik qty
// hanya kalau hasilnya masih <= stock_limit dan sale masih di window aktif;
// kalau kondisi gagal tidak ada row yang berubah (fail closed).
func (l *Ledger) ReserveFlashSaleUnits(ctx context.Context, flashSaleID string, qty int) error {
	return reserveFlashSaleUnits(ctx, l.DB, flashSaleID, qty)
}

// ReserveFlashSaleUnitsTx: varian di dalam transaksi caller (checkout).
func (l *Ledger) ReserveFlashSaleUnitsTx(ctx context.Context, tx pgx.Tx, flashSaleID string, qty int) error {
	return reserveFlashSaleUnits(ctx, tx, flashSaleID, qty)
}

func reserveFlashSaleUnits(ctx context.Context, q execer, flashSaleID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	ct, err := q.Exec(ctx, `
		UPDATE flash_sales
		SET stock_sold = stock_sold + $2, updated_at = now()
		WHERE id = $1
		  AND is_active
		  AND starts_at <= now() AND ends_at > now()
		  AND stock_sold + $2 <= stock_limit`, flashSaleID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// ReserveProductStock: decrement stok produk dengan guard stock >= qty.
func (l *Ledger) ReserveProductStock(ctx context.Context, productID string, qty int) error {
	return reserveProductStock(ctx, l.DB, productID, qty)
}

func (l *Ledger) ReserveProductStockTx(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	return reserveProductStock(ctx, tx, productID, qty)
}

func reserveProductStock(ctx context.Context, q execer, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	ct, err := q.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// ReleaseProductStock: kompensasi untuk checkout yang gagal setelah sebagian
// reserve. Tidak dipakai untuk pembatalan oleh client — itu harus lewat
// operasi pembalik eksplisit.
func (l *Ledger) ReleaseProductStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	_, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, productID, qty)
	return err
}
