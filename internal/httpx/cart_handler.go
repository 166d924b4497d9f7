package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/JAAFAR1996/fish-web-sub001/internal/cart"
	"github.com/JAAFAR1996/fish-web-sub001/internal/guest"
	"github.com/JAAFAR1996/fish-web-sub001/internal/notify"
	"github.com/JAAFAR1996/fish-web-sub001/internal/redisx"
)

type CartHandler struct {
	Svc      *cart.Service
	Wishlist *cart.WishlistRepo
	Guest    *guest.Store
	Merger   *guest.Merger
	Redis    *redis.Client
	Audit    *notify.Audit
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{productID}", h.updateQuantity)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.Post("/cart/items/{productID}/saved", h.saveForLater)

	r.Get("/wishlist", h.getWishlist)
	r.Post("/wishlist/{productID}", h.addWishlist)
	r.Delete("/wishlist/{productID}", h.removeWishlist)

	r.Get("/guest/cart", h.getGuestCart)
	r.Post("/guest/cart/items", h.addGuestItem)
	r.Post("/guest/wishlist/{productID}", h.addGuestWishlist)

	r.Post("/login/merge", h.mergeOnLogin)
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// cache ringkasan sebentar; write path yang invalidate
	key := fmt.Sprintf(redisx.KeyCartTotals, uid)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	sum, err := h.Svc.View(ctx, uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if b, err := json.Marshal(sum); err == nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLCartTotals).Err()
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.AddItem(ctx, uid, req.ProductID, req.Quantity)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.invalidateTotals(ctx, uid)
	writeJSON(w, http.StatusOK, res)
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.UpdateQuantity(ctx, uid, chi.URLParam(r, "productID"), req.Quantity); err != nil {
		writeErr(w, r, err)
		return
	}
	h.invalidateTotals(ctx, uid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.RemoveItem(ctx, uid, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, r, err)
		return
	}
	h.invalidateTotals(ctx, uid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) saveForLater(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Saved bool `json:"saved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.SaveForLater(ctx, uid, chi.URLParam(r, "productID"), req.Saved); err != nil {
		writeErr(w, r, err)
		return
	}
	h.invalidateTotals(ctx, uid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) getWishlist(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Wishlist.List(ctx, uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CartHandler) addWishlist(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Wishlist.Add(ctx, uid, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) removeWishlist(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Wishlist.Remove(ctx, uid, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) getGuestCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, err := h.Guest.CartLines(ctx, sid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) addGuestItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_quantity"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	qty, err := h.Guest.AddCartLine(ctx, sid, req.ProductID, req.Quantity)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guest.Line{ProductID: req.ProductID, Quantity: qty})
}

func (h *CartHandler) addGuestWishlist(w http.ResponseWriter, r *http.Request) {
	sid, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Guest.AddWishlist(ctx, sid, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mergeOnLogin: hook transisi identity anonim -> authenticated. Idempotent,
// jadi event login yang ke-retry tidak masalah.
func (h *CartHandler) mergeOnLogin(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	sid, ok := requireSession(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Merger.OnIdentityTransition(ctx, sid, uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.invalidateTotals(ctx, uid)
	h.Audit.Record(uid, "guest_merge", "cart", uid, res)

	code := http.StatusOK
	if !res.Complete {
		code = http.StatusMultiStatus // sebagian line belum ke-merge, lihat body
	}
	writeJSON(w, code, res)
}

func (h *CartHandler) invalidateTotals(ctx context.Context, userID string) {
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCartTotals, userID)).Err()
}
