package guest

import (
	"context"
	"errors"
	"log"

	"github.com/JAAFAR1996/fish-web-sub001/internal/cart"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

// CartWriter: write path rekonsiliasi cart. AddItem-nya sendiri yang baca
// quantity account-bound sekarang dan clamp ke stok/cap — merge tinggal
// nambah, tidak overwrite.
type CartWriter interface {
	AddItem(ctx context.Context, userID, productID string, qty int) (*cart.AddResult, error)
}

type WishlistWriter interface {
	Add(ctx context.Context, userID, productID string) error
}

// Merger melipat state guest ke store account-bound pas transisi
// anonim -> authenticated. Idempotent: state guest dibaca fresh tiap attempt
// (jangan cache snapshot pre-merge antar retry), dan line yang sudah
// ke-merge langsung dihapus dari store guest — retry cuma ngulang line yang
// belum masuk.
type Merger struct {
	Guest    State
	Cart     CartWriter
	Wishlist WishlistWriter
}

type LineResult struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
	Merged    bool   `json:"merged"`
	Error     string `json:"error,omitempty"`
}

type MergeResult struct {
	CartLines     []LineResult `json:"cart_lines"`
	WishlistAdded []string     `json:"wishlist_added"`
	Complete      bool         `json:"complete"`
}

// OnIdentityTransition: dipanggil sekali per transisi login (tidak untuk
// logout, dan aman dipanggil ulang karena event/webhook bisa double).
func (m *Merger) OnIdentityTransition(ctx context.Context, sessionID, userID string) (*MergeResult, error) {
	res := &MergeResult{Complete: true}

	lines, err := m.Guest.CartLines(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, ln := range lines {
		lr := LineResult{ProductID: ln.ProductID, Requested: ln.Quantity}
		add, err := m.Cart.AddItem(ctx, userID, ln.ProductID, ln.Quantity)
		switch {
		case err == nil:
			lr.Applied = add.Applied
			lr.Merged = true
		case errors.Is(err, stock.ErrQuantityExceeded), errors.Is(err, cart.ErrProductNotFound):
			// outcome bisnis: account sudah mentok di cap, atau produk sudah
			// hilang — line guest dianggap selesai, nambah lagi tidak akan
			// pernah berhasil
			lr.Merged = true
			lr.Error = err.Error()
		default:
			// transient: biarkan line tinggal di store guest untuk retry
			lr.Error = err.Error()
			res.Complete = false
		}
		if lr.Merged {
			if derr := m.Guest.RemoveCartLine(ctx, sessionID, ln.ProductID); derr != nil {
				log.Printf("guest merge: drop line %s: %v", ln.ProductID, derr)
			}
		}
		res.CartLines = append(res.CartLines, lr)
	}
	if res.Complete {
		if err := m.Guest.ClearCart(ctx, sessionID); err != nil {
			log.Printf("guest merge: clear cart %s: %v", sessionID, err)
		}
	}

	// wishlist: set semantics, produk yang sudah ada jadi no-op di writer
	wl, err := m.Guest.Wishlist(ctx, sessionID)
	if err != nil {
		// hasil per-line cart di atas jangan ketelan gara-gara baca wishlist
		// gagal — tandai incomplete, wishlist keulang di retry berikutnya
		log.Printf("guest merge: read wishlist %s: %v", sessionID, err)
		res.Complete = false
		return res, nil
	}
	wishlistOK := true
	for _, pid := range wl {
		if err := m.Wishlist.Add(ctx, userID, pid); err != nil {
			log.Printf("guest merge: wishlist %s: %v", pid, err)
			wishlistOK = false
			res.Complete = false
			continue
		}
		res.WishlistAdded = append(res.WishlistAdded, pid)
		if derr := m.Guest.RemoveWishlist(ctx, sessionID, pid); derr != nil {
			log.Printf("guest merge: drop wishlist %s: %v", pid, derr)
		}
	}
	if wishlistOK {
		if err := m.Guest.ClearWishlist(ctx, sessionID); err != nil {
			log.Printf("guest merge: clear wishlist %s: %v", sessionID, err)
		}
	}

	return res, nil
}
