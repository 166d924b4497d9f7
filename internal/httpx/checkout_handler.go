package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/JAAFAR1996/fish-web-sub001/internal/kafka"
	"github.com/JAAFAR1996/fish-web-sub001/internal/notify"
	"github.com/JAAFAR1996/fish-web-sub001/internal/orders"
	"github.com/JAAFAR1996/fish-web-sub001/internal/redisx"
)

type CheckoutHandler struct {
	Repo     *orders.Repo
	Producer *kafkax.Producer
	Redis    *redis.Client
	Audit    *notify.Audit
	Service  string
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
}

type checkoutReq struct {
	ExternalID   string `json:"external_id"`
	RedeemPoints int64  `json:"redeem_points"`
}

// checkout: konfirmasi order. Transaksinya atomik di repo; yang di sini
// cuma idempotency shortcut, publish event, dan audit — event keluar setelah
// commit, jadi abort client sebelum commit memang tanpa efek.
func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ExternalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing external_id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	conf, err := h.Repo.ConfirmOrder(ctx, orders.ConfirmInput{
		ExternalID:   req.ExternalID,
		UserID:       uid,
		RedeemPoints: req.RedeemPoints,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	// shortcut idempotency di Redis (DB tetap kebenaran lewat external_id)
	idemKey := fmt.Sprintf(redisx.KeyIdemOrderConfirm, req.ExternalID)
	_ = h.Redis.Set(ctx, idemKey, conf.OrderID, redisx.TTLIdempotency).Err()
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyCartTotals, uid)).Err()

	if !conf.Idempotent {
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventOrderConfirmed,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: conf.OrderID,
		}
		ev.Payload = kafkax.MustMarshal(orders.OrderConfirmedPayload{
			OrderID:        conf.OrderID,
			ExternalID:     req.ExternalID,
			UserID:         uid,
			Items:          conf.Items,
			Subtotal:       conf.Subtotal,
			Shipping:       conf.Shipping,
			Discount:       conf.Discount,
			Total:          conf.Total,
			PointsRedeemed: conf.PointsRedeemed,
		})
		h.Producer.Publish(orders.PartitionKey(conf.OrderID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderConfirmed)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
		h.Audit.Record(uid, "order_confirm", "order", conf.OrderID, map[string]int64{
			"subtotal": conf.Subtotal, "discount": conf.Discount, "total": conf.Total,
		})
	}

	writeJSON(w, http.StatusAccepted, conf)
}
