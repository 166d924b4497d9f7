package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JAAFAR1996/fish-web-sub001/internal/notify"
	"github.com/JAAFAR1996/fish-web-sub001/internal/referral"
)

type ReferralHandler struct {
	Repo  *referral.Repo
	Audit *notify.Audit
}

func (h *ReferralHandler) Register(r *chi.Mux) {
	r.Post("/referrals", h.create)
	r.Get("/referrals/me", h.mine)
}

type createReferralReq struct {
	ReferrerID string `json:"referrer_id"`
	Code       string `json:"code"`
}

// create: dipanggil pas signup referee. Satu referral per referee, selamanya.
func (h *ReferralHandler) create(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createReferralReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ReferrerID == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ref, err := h.Repo.Create(ctx, req.ReferrerID, uid, req.Code)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.Audit.Record(uid, "referral_create", "referral", ref.ID, nil)
	writeJSON(w, http.StatusCreated, ref)
}

func (h *ReferralHandler) mine(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ref, err := h.Repo.ByReferee(ctx, uid)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if ref == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no referral"})
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
