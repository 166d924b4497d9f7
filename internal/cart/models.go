package cart

import "time"

type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item: satu baris (cart_id, product_id) unik. unit_price itu snapshot
// waktu write terakhir; setiap read di-resolve ulang lewat pricing.
type Item struct {
	CartID        string    `json:"cart_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	UnitPrice     int64     `json:"unit_price"`
	SavedForLater bool      `json:"saved_for_later"`
	AddedAt       time.Time `json:"added_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Line: proyeksi item untuk response, harga sudah fresh.
type Line struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	LineTotal     int64  `json:"line_total"`
	SavedForLater bool   `json:"saved_for_later"`
	LowStock      bool   `json:"low_stock"`
	PriceChanged  bool   `json:"price_changed"`
}

type Totals struct {
	Subtotal     int64 `json:"subtotal"`
	Shipping     int64 `json:"shipping"`
	Total        int64 `json:"total"`
	FreeShipping bool  `json:"free_shipping"`
}

type Summary struct {
	CartID string `json:"cart_id"`
	Lines  []Line `json:"lines"`
	Totals Totals `json:"totals"`
}

// AddResult: berapa qty yang benar-benar ke-apply setelah clamp stok/cap.
// Applied selalu <= Requested dan >= 0 — request tidak pernah di-drop diam-diam.
type AddResult struct {
	ProductID     string `json:"product_id"`
	Requested     int    `json:"requested"`
	Applied       int    `json:"applied"`
	FinalQuantity int    `json:"final_quantity"`
	UnitPrice     int64  `json:"unit_price"`
	Clamped       bool   `json:"clamped"`
}
