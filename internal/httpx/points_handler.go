package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JAAFAR1996/fish-web-sub001/internal/notify"
	"github.com/JAAFAR1996/fish-web-sub001/internal/points"
)

type PointsHandler struct {
	Repo  *points.Repo
	Audit *notify.Audit
}

func (h *PointsHandler) Register(r *chi.Mux) {
	r.Get("/points/balance", h.balance)
	r.Get("/points/history", h.history)
	r.Post("/points/redeem", h.redeem)
}

func (h *PointsHandler) balance(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Repo.Balance(ctx, uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": b})
}

func (h *PointsHandler) history(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	txs, err := h.Repo.History(ctx, uid, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type redeemReq struct {
	Points        int64  `json:"points"`
	OrderSubtotal int64  `json:"order_subtotal"`
	OrderID       string `json:"order_id,omitempty"`
}

// redeem: pre-check murni dulu (validasi range/min/cap), lalu debit atomik.
// Balance tetap di-guard lagi oleh conditional update — validasi ini bukan
// pengganti, cuma biar error-nya spesifik sebelum nyentuh transaksi.
func (h *PointsHandler) redeem(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req redeemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	balance, err := h.Repo.Balance(ctx, uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.Repo.Rules.ValidateRedemption(req.Points, balance, req.OrderSubtotal); err != nil {
		writeErr(w, r, err)
		return
	}

	discount, err := h.Repo.Redeem(ctx, uid, req.Points, req.OrderID, "points redemption")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.Audit.Record(uid, "points_redeem", "points", uid, map[string]int64{"points": req.Points, "discount": discount})
	writeJSON(w, http.StatusOK, map[string]int64{"discount": discount})
}
