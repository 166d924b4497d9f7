package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JAAFAR1996/fish-web-sub001/internal/cart"
	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
	"github.com/JAAFAR1996/fish-web-sub001/internal/referral"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr: validation & capacity error itu outcome bisnis — di-map ke 4xx
// dengan kode stabil. Error lain dianggap transient: di-log server-side,
// client cuma dapat sinyal "coba lagi".
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code, status := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, stock.ErrInvalidQuantity):
		code, status = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, stock.ErrQuantityExceeded):
		code, status = http.StatusConflict, "quantity_exceeded"
	case errors.Is(err, stock.ErrInsufficientStock):
		code, status = http.StatusConflict, "insufficient_stock"
	case errors.Is(err, points.ErrInvalidPoints):
		code, status = http.StatusBadRequest, "invalid_points"
	case errors.Is(err, points.ErrBelowMinimum):
		code, status = http.StatusBadRequest, "below_minimum_redemption"
	case errors.Is(err, points.ErrExceedsCap):
		code, status = http.StatusBadRequest, "discount_exceeds_cap"
	case errors.Is(err, points.ErrInsufficientBalance):
		code, status = http.StatusConflict, "insufficient_balance"
	case errors.Is(err, cart.ErrProductNotFound):
		code, status = http.StatusNotFound, "product_not_found"
	case errors.Is(err, orders.ErrEmptyCart):
		code, status = http.StatusBadRequest, "empty_cart"
	case errors.Is(err, referral.ErrAlreadyReferred):
		code, status = http.StatusConflict, "already_referred"
	case errors.Is(err, referral.ErrSelfReferral):
		code, status = http.StatusBadRequest, "self_referral"
	}
	if code == http.StatusInternalServerError {
		log.Printf("request %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, code, map[string]string{"error": status, "message": "something went wrong, try again"})
		return
	}
	writeJSON(w, code, map[string]string{"error": status, "message": err.Error()})
}

// Identity datang dari auth collaborator di depan service ini (di luar
// scope); yang sampai sini tinggal header hasil session lookup.
func currentUserID(r *http.Request) string { return r.Header.Get("X-User-Id") }
func sessionID(r *http.Request) string     { return r.Header.Get("X-Session-Id") }

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := currentUserID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return "", false
	}
	return uid, true
}

func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := sessionID(r)
	if sid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing session"})
		return "", false
	}
	return sid, true
}
