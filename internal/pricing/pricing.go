// Package pricing resolve harga satuan efektif. Pure function tanpa I/O:
// promo flash sale itu time-windowed, jadi snapshot harga di mana pun harus
// di-recompute lewat sini setiap kali mau ditampilkan atau disimpan.
package pricing

import (
	"time"

	"github.com/JAAFAR1996/fish-web-sub001/internal/catalog"
)

// EffectivePrice: harga flash sale kalau ada dan aktif pada now (mulai
// inklusif, akhir eksklusif), selain itu harga list produk. Tidak ada error
// case — data yang absen degrade ke list price.
func EffectivePrice(p catalog.Product, fs *catalog.FlashSale, now time.Time) int64 {
	if fs != nil && fs.ActiveAt(now) {
		return fs.FlashPrice
	}
	return p.Price
}
