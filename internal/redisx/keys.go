package redisx

import "time"

const (
	// Guest cart: hash guest:cart:{session_id} -> field product_id, value qty
	KeyGuestCart = "guest:cart:%s"

	// Guest wishlist: set guest:wishlist:{session_id} berisi product_id
	KeyGuestWishlist = "guest:wishlist:%s"

	// Cache ringkasan cart: cart_totals:{user_id} -> JSON totals
	KeyCartTotals = "cart_totals:%s"

	// Idempotency checkout: idem:order:confirm:{external_id} -> order_id
	KeyIdemOrderConfirm = "idem:order:confirm:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLGuest       = 30 * 24 * time.Hour
	TTLCartTotals  = 2 * time.Minute
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
